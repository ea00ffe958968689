package console

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/yourorg/tracectl/internal/client"
	"github.com/yourorg/tracectl/internal/compose"
	"github.com/yourorg/tracectl/pkg/types"
)

// transcriptPageSize is the page size used to load a whole transcript.
const transcriptPageSize = 100

// ReplayStore tracks debug sessions, the selected one, its transcript and
// the turn sequencer driving new submissions.
type ReplayStore struct {
	api  ReplayAPI
	opts Options
	seq  *TurnSequencer

	mu          sync.Mutex
	sessions    []types.ReplaySession
	pagination  types.Pagination
	current     *types.ReplaySession
	transcript  []types.ReplayRecord
	seed        []json.RawMessage
	listIssued  uint64
	listApplied uint64
	selection   uint64
}

func NewReplayStore(api ReplayAPI, opts Options) *ReplayStore {
	return &ReplayStore{api: api, opts: opts, seq: NewTurnSequencer(1)}
}

// Sequencer exposes the turn sequencer of the selected session.
func (s *ReplayStore) Sequencer() *TurnSequencer { return s.seq }

// Create validates req, creates the session and prepends it to the list.
// The name is sent trimmed.
func (s *ReplayStore) Create(ctx context.Context, req types.CreateReplaySessionRequest) (*types.ReplaySession, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := ValidateCreateRequest(req); err != nil {
		return nil, s.opts.fail("replay.create", err)
	}
	sess, err := s.api.CreateReplaySession(ctx, req)
	if err != nil {
		return nil, s.opts.fail("replay.create", fmt.Errorf("console: create debug session: %w", err))
	}
	s.mu.Lock()
	s.sessions = append([]types.ReplaySession{*sess}, s.sessions...)
	s.pagination.Total++
	s.mu.Unlock()
	s.opts.succeed("replay.create", "debug session "+sess.ID+" created")
	return sess, nil
}

// ListPage replaces the list with one page of debug sessions.
func (s *ReplayStore) ListPage(ctx context.Context, page, size int) error {
	s.mu.Lock()
	s.listIssued++
	token := s.listIssued
	s.mu.Unlock()

	res, err := s.api.ListReplaySessions(ctx, page, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token <= s.listApplied {
		s.opts.debug("discarding stale debug session page", "page", page)
		return nil
	}
	if err != nil {
		return s.opts.fail("replay.list", fmt.Errorf("console: list debug sessions: %w", err))
	}
	s.listApplied = token
	s.sessions = append([]types.ReplaySession(nil), res.Data...)
	s.pagination = types.Pagination{Current: res.Page, PageSize: res.Size, Total: res.Total}
	return nil
}

// Get fetches one debug session without selecting it.
func (s *ReplayStore) Get(ctx context.Context, id string) (*types.ReplaySession, error) {
	sess, err := s.api.GetReplaySession(ctx, id)
	if err != nil {
		return nil, s.opts.fail("replay.get", fmt.Errorf("console: get debug session %s: %w", id, err))
	}
	return sess, nil
}

// Select makes id the current session, loads its transcript and positions
// the sequencer after its last successful turn. State is left untouched if
// either call fails.
func (s *ReplayStore) Select(ctx context.Context, id string) (*types.ReplaySession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.loadTranscript(ctx, id)
	if err != nil {
		return nil, s.opts.fail("replay.select", err)
	}
	s.mu.Lock()
	s.selection++
	s.current = sess
	s.transcript = records
	s.seed = nil
	s.mu.Unlock()
	s.seq.Reset(sess.StartTurnNumber)
	s.seq.Resume(records)
	return sess, nil
}

// SetCurrent selects sess locally with an empty transcript.
func (s *ReplayStore) SetCurrent(sess types.ReplaySession) {
	s.mu.Lock()
	s.selection++
	s.current = &sess
	s.transcript = nil
	s.seed = nil
	s.mu.Unlock()
	s.seq.Reset(sess.StartTurnNumber)
}

// Current returns the selected session.
func (s *ReplayStore) Current() (types.ReplaySession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return types.ReplaySession{}, false
	}
	return *s.current, true
}

// Delete removes a debug session. A backend not-found counts as deleted. If
// the session was selected, the selection and transcript are cleared.
func (s *ReplayStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteReplaySession(ctx, id); err != nil && !client.IsNotFound(err) {
		return s.opts.fail("replay.delete", fmt.Errorf("console: delete debug session %s: %w", id, err))
	}

	s.mu.Lock()
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
			if s.pagination.Total > 0 {
				s.pagination.Total--
			}
			break
		}
	}
	cleared := s.current != nil && s.current.ID == id
	if cleared {
		s.selection++
		s.current = nil
		s.transcript = nil
		s.seed = nil
	}
	s.mu.Unlock()

	if cleared {
		s.seq.Reset(1)
		s.opts.succeed("replay.delete", "debug session "+id+" deleted and closed")
	}
	return nil
}

// FetchRecords reloads the transcript of the selected session. A response
// for a session that is no longer selected is dropped.
func (s *ReplayStore) FetchRecords(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoCurrentSession
	}
	id, selection := s.current.ID, s.selection
	s.mu.Unlock()

	records, err := s.loadTranscript(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if selection != s.selection {
		s.opts.debug("discarding transcript of deselected session", "replay_session_id", id)
		return nil
	}
	if err != nil {
		return s.opts.fail("replay.records", err)
	}
	s.transcript = records
	return nil
}

func (s *ReplayStore) loadTranscript(ctx context.Context, id string) ([]types.ReplayRecord, error) {
	var out []types.ReplayRecord
	for page := 1; ; page++ {
		res, err := s.api.ListReplayRecords(ctx, id, page, transcriptPageSize)
		if err != nil {
			return nil, fmt.Errorf("console: list turns of %s: %w", id, err)
		}
		out = append(out, res.Data...)
		if len(res.Data) == 0 || len(out) >= res.Total || page >= res.TotalPages {
			return out, nil
		}
	}
}

// Transcript returns a copy of the selected session's turns in submission
// order.
func (s *ReplayStore) Transcript() []types.ReplayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ReplayRecord(nil), s.transcript...)
}

// LoadSeed finds the original record at the selected session's start turn
// and keeps its context messages as the head of every debug request.
func (s *ReplayStore) LoadSeed(ctx context.Context, records RecordAPI) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoCurrentSession
	}
	sess, selection := *s.current, s.selection
	s.mu.Unlock()

	var seed []json.RawMessage
	found := false
	for page := 1; !found; page++ {
		res, err := records.ListRecords(ctx, sess.OriginalSessionID, page, transcriptPageSize)
		if err != nil {
			return s.opts.fail("replay.seed", fmt.Errorf("console: load original session %s: %w", sess.OriginalSessionID, err))
		}
		for _, r := range res.Data {
			if r.TurnNumber == sess.StartTurnNumber {
				seed = compose.SeedMessages(r.Request)
				found = true
				break
			}
		}
		if len(res.Data) == 0 || page >= res.TotalPages {
			break
		}
	}
	if !found {
		s.opts.debug("no original record at start turn", "session_id", sess.OriginalSessionID, "turn", sess.StartTurnNumber)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if selection == s.selection {
		s.seed = seed
	}
	return nil
}

// AppendDebugTurn submits one debug turn. On success the returned record is
// appended to the transcript of its session if that session is selected.
func (s *ReplayStore) AppendDebugTurn(ctx context.Context, req types.ReplayDebugRequest) (*types.ReplayRecord, error) {
	rec, err := s.api.ReplayDebug(ctx, req)
	if err != nil {
		return nil, s.opts.fail("replay.debug", fmt.Errorf("console: debug turn %d: %w", req.TurnNumber, err))
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == req.ReplaySessionID {
		s.transcript = append(s.transcript, *rec)
	}
	s.mu.Unlock()
	return rec, nil
}

// Submit sends message as the next turn of the selected session, carrying
// the seed and the successful exchanges so far as history. The sequencer
// advances only when the backend confirms the turn and the session is still
// selected.
func (s *ReplayStore) Submit(ctx context.Context, message string, cfg types.ReplayConfig) (*types.ReplayRecord, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, s.opts.fail("replay.debug", ErrNoCurrentSession)
	}
	id, selection := s.current.ID, s.selection
	history := append(append([]json.RawMessage(nil), s.seed...), compose.TranscriptMessages(s.transcript)...)
	s.mu.Unlock()

	if strings.TrimSpace(message) == "" {
		return nil, s.opts.fail("replay.debug", &ValidationError{Field: "message", Message: "is required"})
	}
	if err := ValidateReplayConfig(cfg); err != nil {
		return nil, s.opts.fail("replay.debug", err)
	}
	payload, err := compose.BuildDebugRequest(cfg, history, message)
	if err != nil {
		return nil, s.opts.fail("replay.debug", err)
	}
	body, err := payload.Marshal()
	if err != nil {
		return nil, s.opts.fail("replay.debug", fmt.Errorf("console: encode debug request: %w", err))
	}

	turn := s.seq.Next()
	cfgCopy := cfg
	rec, err := s.AppendDebugTurn(ctx, types.ReplayDebugRequest{
		ReplaySessionID: id,
		TurnNumber:      turn,
		Request:         body,
		Provider:        cfg.Provider,
		Model:           cfg.Model,
		Config:          &cfgCopy,
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	unchanged := selection == s.selection
	s.mu.Unlock()
	if unchanged {
		s.seq.Advance(turn)
	}
	return rec, nil
}

// Sessions returns a copy of the fetched page.
func (s *ReplayStore) Sessions() []types.ReplaySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ReplaySession(nil), s.sessions...)
}

func (s *ReplayStore) Pagination() types.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}
