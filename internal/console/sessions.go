package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourorg/tracectl/pkg/types"
)

// SessionStore holds the fetched page of traced sessions and the session
// that scopes record queries.
type SessionStore struct {
	api  SessionAPI
	opts Options

	mu         sync.Mutex
	sessions   []types.Session
	pagination types.Pagination
	current    string
	issued     uint64
	applied    uint64
}

func NewSessionStore(api SessionAPI, opts Options) *SessionStore {
	return &SessionStore{api: api, opts: opts}
}

// Fetch replaces the list with one page from the backend. A response that
// arrives after a newer fetch was applied is dropped.
func (s *SessionStore) Fetch(ctx context.Context, page, size int) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.mu.Unlock()

	res, err := s.api.ListSessions(ctx, page, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token <= s.applied {
		s.opts.debug("discarding stale session page", "page", page)
		return nil
	}
	if err != nil {
		return s.opts.fail("sessions.fetch", fmt.Errorf("console: list sessions: %w", err))
	}
	s.applied = token
	s.sessions = append([]types.Session(nil), res.Data...)
	s.pagination = types.Pagination{Current: res.Page, PageSize: res.Size, Total: res.Total}
	return nil
}

func (s *SessionStore) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

func (s *SessionStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Sessions returns a copy of the fetched page.
func (s *SessionStore) Sessions() []types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Session(nil), s.sessions...)
}

func (s *SessionStore) Pagination() types.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// Find looks id up in the fetched page.
func (s *SessionStore) Find(id string) (types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return types.Session{}, false
}
