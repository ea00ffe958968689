package console

import (
	"sync"

	"github.com/yourorg/tracectl/pkg/types"
)

// TurnSequencer hands out the turn number of the next debug turn. It only
// moves forward after a successful submission, so failed turns are retried
// under the same number and the transcript has no gaps.
type TurnSequencer struct {
	mu    sync.Mutex
	start int
	next  int
}

// NewTurnSequencer starts at start, clamped to 1.
func NewTurnSequencer(start int) *TurnSequencer {
	if start < 1 {
		start = 1
	}
	return &TurnSequencer{start: start, next: start}
}

func (s *TurnSequencer) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Advance records a successful submission of turn. Submissions for any other
// turn are ignored.
func (s *TurnSequencer) Advance(turn int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn == s.next {
		s.next++
	}
}

// Reset goes back to a new start number.
func (s *TurnSequencer) Reset(start int) {
	if start < 1 {
		start = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = start
	s.next = start
}

// Resume continues after the highest successful turn already recorded, never
// below the start number.
func (s *TurnSequencer) Resume(records []types.ReplayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.start
	for _, r := range records {
		if r.Status == types.StatusSuccess && r.TurnNumber+1 > next {
			next = r.TurnNumber + 1
		}
	}
	s.next = next
}
