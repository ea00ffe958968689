package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yourorg/tracectl/internal/client"
	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/pkg/types"
)

// fakeBackend is an in-memory stand-in for the trace backend.
type fakeBackend struct {
	mu sync.Mutex

	sessions       []types.Session
	records        map[string][]types.Record
	replaySessions []types.ReplaySession
	replayRecords  map[string][]types.ReplayRecord
	providers      []types.ProviderInfo

	deleteRecordErr error
	deleteReplayErr error
	replayDebugErr  error
	healthErr       error
	providersErr    error

	listRecordsHook        func(sessionID string)
	listSessionsHook       func(page int)
	listReplaySessionsHook func(page int)
	replayDebugHook        func(req types.ReplayDebugRequest)

	listRecordCalls int
	replayCalls     []types.ReplayRequest
	debugCalls      []types.ReplayDebugRequest
	createCalls     int
	nextID          int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records:       map[string][]types.Record{},
		replayRecords: map[string][]types.ReplayRecord{},
	}
}

func paginate[T any](items []T, page, size int) *types.Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	pages := (len(items) + size - 1) / size
	return &types.Page[T]{
		Data:       append([]T(nil), items[start:end]...),
		Total:      len(items),
		Page:       page,
		Size:       size,
		TotalPages: pages,
	}
}

func notFound(what string) error {
	return &client.APIError{StatusCode: http.StatusNotFound, Message: what + " not found"}
}

func (f *fakeBackend) ListSessions(ctx context.Context, page, size int) (*types.Page[types.Session], error) {
	f.mu.Lock()
	hook := f.listSessionsHook
	f.mu.Unlock()
	if hook != nil {
		hook(page)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.sessions, page, size), nil
}

func (f *fakeBackend) ListRecords(ctx context.Context, sessionID string, page, size int) (*types.Page[types.Record], error) {
	f.mu.Lock()
	hook := f.listRecordsHook
	f.listRecordCalls++
	f.mu.Unlock()
	if hook != nil {
		hook(sessionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.records[sessionID], page, size), nil
}

func (f *fakeBackend) DeleteRecord(ctx context.Context, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteRecordErr != nil {
		return f.deleteRecordErr
	}
	for sid, recs := range f.records {
		for i, r := range recs {
			if r.ID == recordID {
				f.records[sid] = append(recs[:i:i], recs[i+1:]...)
				return nil
			}
		}
	}
	return notFound("record")
}

func (f *fakeBackend) ReplayRecord(ctx context.Context, recordID string, req types.ReplayRequest) (*types.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replayCalls = append(f.replayCalls, req)
	f.nextID++
	rec := types.Record{
		ID:         fmt.Sprintf("replayed-%d", f.nextID),
		SessionID:  req.SessionID,
		TurnNumber: req.TurnNumber,
		Request:    string(req.Request),
		Response:   `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`,
		Status:     types.StatusSuccess,
		CreatedAt:  time.Now(),
	}
	f.records[req.SessionID] = append(f.records[req.SessionID], rec)
	return &rec, nil
}

func (f *fakeBackend) CreateReplaySession(ctx context.Context, req types.CreateReplaySessionRequest) (*types.ReplaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.nextID++
	sess := types.ReplaySession{
		ID:                fmt.Sprintf("rs-%d", f.nextID),
		Name:              req.Name,
		OriginalSessionID: req.OriginalSessionID,
		StartTurnNumber:   req.StartTurnNumber,
		Status:            types.ReplayActive,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	f.replaySessions = append([]types.ReplaySession{sess}, f.replaySessions...)
	return &sess, nil
}

func (f *fakeBackend) ListReplaySessions(ctx context.Context, page, size int) (*types.Page[types.ReplaySession], error) {
	f.mu.Lock()
	hook := f.listReplaySessionsHook
	f.mu.Unlock()
	if hook != nil {
		hook(page)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.replaySessions, page, size), nil
}

func (f *fakeBackend) GetReplaySession(ctx context.Context, id string) (*types.ReplaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.replaySessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, notFound("replay session")
}

func (f *fakeBackend) DeleteReplaySession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteReplayErr != nil {
		return f.deleteReplayErr
	}
	for i, s := range f.replaySessions {
		if s.ID == id {
			f.replaySessions = append(f.replaySessions[:i:i], f.replaySessions[i+1:]...)
			delete(f.replayRecords, id)
			return nil
		}
	}
	return notFound("replay session")
}

func (f *fakeBackend) ListReplayRecords(ctx context.Context, id string, page, size int) (*types.Page[types.ReplayRecord], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return paginate(f.replayRecords[id], page, size), nil
}

// ReplayDebug echoes the last user message. Like the real backend, a failed
// call still stores an error record at that turn.
func (f *fakeBackend) ReplayDebug(ctx context.Context, req types.ReplayDebugRequest) (*types.ReplayRecord, error) {
	f.mu.Lock()
	hook := f.replayDebugHook
	f.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugCalls = append(f.debugCalls, req)
	f.nextID++
	rec := types.ReplayRecord{
		ID:              fmt.Sprintf("rr-%d", f.nextID),
		ReplaySessionID: req.ReplaySessionID,
		TurnNumber:      req.TurnNumber,
		Request:         string(req.Request),
		Provider:        req.Provider,
		Model:           req.Model,
		CreatedAt:       time.Now(),
	}
	if err := f.replayDebugErr; err != nil {
		f.replayDebugErr = nil
		rec.Status = types.StatusError
		rec.ErrorMsg = err.Error()
		f.replayRecords[req.ReplaySessionID] = append(f.replayRecords[req.ReplaySessionID], rec)
		return nil, err
	}
	reply, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]string{
			"role":    "assistant",
			"content": "echo: " + compose.UserText(string(req.Request)),
		}}},
	})
	rec.Response = string(reply)
	rec.Status = types.StatusSuccess
	f.replayRecords[req.ReplaySessionID] = append(f.replayRecords[req.ReplaySessionID], rec)
	return &rec, nil
}

func (f *fakeBackend) ListProviders(ctx context.Context) ([]types.ProviderInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.providersErr != nil {
		return nil, f.providersErr
	}
	return f.providers, nil
}

func (f *fakeBackend) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) count(kind Kind, op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == kind && it.Op == op {
			n++
		}
	}
	return n
}

func testConfig() types.ReplayConfig {
	return types.ReplayConfig{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 512, TopP: 1}
}
