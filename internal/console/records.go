package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/internal/filter"
	"github.com/yourorg/tracectl/pkg/types"
)

// ErrNoSession is returned by a refetch before any session was fetched.
var ErrNoSession = errors.New("console: no session fetched yet")

// RecordStore holds one page of a session's records. The list only changes
// through Fetch, so a delete or replay shows up after the refetch that
// follows it.
type RecordStore struct {
	api  RecordAPI
	opts Options

	mu         sync.Mutex
	records    []types.Record
	pagination types.Pagination
	sessionID  string
	issued     uint64
	applied    uint64
}

func NewRecordStore(api RecordAPI, opts Options) *RecordStore {
	return &RecordStore{api: api, opts: opts}
}

// Fetch replaces the list and pagination wholesale with one page of
// sessionID's records.
func (s *RecordStore) Fetch(ctx context.Context, sessionID string, page, size int) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.mu.Unlock()

	res, err := s.api.ListRecords(ctx, sessionID, page, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token <= s.applied {
		s.opts.debug("discarding stale record page", "session_id", sessionID, "page", page)
		return nil
	}
	if err != nil {
		return s.opts.fail("records.fetch", fmt.Errorf("console: list records of %s: %w", sessionID, err))
	}
	s.applied = token
	s.sessionID = sessionID
	s.records = append([]types.Record(nil), res.Data...)
	s.pagination = types.Pagination{Current: res.Page, PageSize: res.Size, Total: res.Total}
	return nil
}

// Refetch reloads the page last fetched.
func (s *RecordStore) Refetch(ctx context.Context) error {
	s.mu.Lock()
	sessionID, p := s.sessionID, s.pagination
	s.mu.Unlock()
	if sessionID == "" {
		return ErrNoSession
	}
	return s.Fetch(ctx, sessionID, p.Current, p.PageSize)
}

// Delete removes a record on the backend, then refetches. On failure the
// list is left as it was.
func (s *RecordStore) Delete(ctx context.Context, recordID string) error {
	if err := s.api.DeleteRecord(ctx, recordID); err != nil {
		return s.opts.fail("records.delete", fmt.Errorf("console: delete record %s: %w", recordID, err))
	}
	s.opts.succeed("records.delete", "record "+recordID+" deleted")
	return s.Refetch(ctx)
}

// ReplayOptions carry the operator's edits for a single-shot replay.
type ReplayOptions struct {
	// Request is the edited request text. Empty means the stored request.
	Request string
	Config  types.ReplayConfig
}

// Replay re-submits a record with overrides applied. Invalid JSON or an
// invalid configuration aborts before anything is sent. A successful replay
// refetches the current page; a refetch failure is reported but does not
// fail the replay.
func (s *RecordStore) Replay(ctx context.Context, record types.Record, opts ReplayOptions) (*types.Record, error) {
	text := opts.Request
	if strings.TrimSpace(text) == "" {
		text = record.Request
	}
	payload, err := compose.Compose(text, compose.OverridesFromConfig(opts.Config))
	if err != nil {
		return nil, s.opts.fail("records.replay", err)
	}
	if err := ValidateReplayConfig(opts.Config); err != nil {
		return nil, s.opts.fail("records.replay", err)
	}
	body, err := payload.Marshal()
	if err != nil {
		return nil, s.opts.fail("records.replay", fmt.Errorf("console: encode replay request: %w", err))
	}

	cfg := opts.Config
	req := types.ReplayRequest{
		SessionID:        record.SessionID,
		TurnNumber:       record.TurnNumber,
		Request:          body,
		Provider:         cfg.Provider,
		Model:            cfg.Model,
		Temperature:      &cfg.Temperature,
		MaxTokens:        &cfg.MaxTokens,
		TopP:             &cfg.TopP,
		FrequencyPenalty: &cfg.FrequencyPenalty,
		PresencePenalty:  &cfg.PresencePenalty,
	}
	out, err := s.api.ReplayRecord(ctx, record.ID, req)
	if err != nil {
		return nil, s.opts.fail("records.replay", fmt.Errorf("console: replay record %s: %w", record.ID, err))
	}
	s.opts.succeed("records.replay", "record "+record.ID+" replayed")

	s.mu.Lock()
	fetched := s.sessionID != ""
	s.mu.Unlock()
	if fetched {
		_ = s.Refetch(ctx)
	}
	return out, nil
}

// Records returns a copy of the fetched page.
func (s *RecordStore) Records() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Record(nil), s.records...)
}

// View applies a status/search filter to the fetched page without touching it.
func (s *RecordStore) View(c filter.Criteria) []types.Record {
	return filter.Records(s.Records(), c)
}

func (s *RecordStore) Pagination() types.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

func (s *RecordStore) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Find looks id up in the fetched page.
func (s *RecordStore) Find(id string) (types.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return types.Record{}, false
}
