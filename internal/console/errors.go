package console

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/yourorg/tracectl/pkg/types"
)

// MaxNameLength bounds debug session names, in characters.
const MaxNameLength = 100

// ErrNoCurrentSession is returned by operations that need a selected debug
// session when none is selected.
var ErrNoCurrentSession = errors.New("console: no debug session selected")

// ValidationError reports one invalid input field. Nothing is sent to the
// backend when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every invalid field of one input.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) add(field, format string, args ...any) {
	*v = append(*v, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateReplayConfig checks provider selection and sampling ranges.
func ValidateReplayConfig(cfg types.ReplayConfig) error {
	var errs ValidationErrors
	if strings.TrimSpace(cfg.Provider) == "" {
		errs.add("provider", "is required")
	}
	if outside(cfg.Temperature, 0, 2) {
		errs.add("temperature", "must be in [0, 2], got %g", cfg.Temperature)
	}
	if cfg.MaxTokens < 1 || cfg.MaxTokens > 8192 {
		errs.add("max_tokens", "must be in [1, 8192], got %d", cfg.MaxTokens)
	}
	if outside(cfg.TopP, 0, 1) {
		errs.add("top_p", "must be in [0, 1], got %g", cfg.TopP)
	}
	if outside(cfg.FrequencyPenalty, -2, 2) {
		errs.add("frequency_penalty", "must be in [-2, 2], got %g", cfg.FrequencyPenalty)
	}
	if outside(cfg.PresencePenalty, -2, 2) {
		errs.add("presence_penalty", "must be in [-2, 2], got %g", cfg.PresencePenalty)
	}
	return errs.err()
}

// outside reports whether v is NaN or not in [lo, hi].
func outside(v, lo, hi float64) bool {
	return math.IsNaN(v) || v < lo || v > hi
}

// ValidateCreateRequest checks a new debug session before it is sent.
func ValidateCreateRequest(req types.CreateReplaySessionRequest) error {
	var errs ValidationErrors
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		errs.add("name", "is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs.add("name", "must be at most %d characters", MaxNameLength)
	}
	if strings.TrimSpace(req.OriginalSessionID) == "" {
		errs.add("original_session_id", "is required")
	}
	if req.StartTurnNumber < 1 {
		errs.add("start_turn_number", "must be at least 1, got %d", req.StartTurnNumber)
	}
	return errs.err()
}

// DefaultDebugName is the name proposed for a debug session started from a
// record.
func DefaultDebugName(sessionID string, turn int) string {
	return fmt.Sprintf("debug-%s-turn%d", sessionID, turn)
}
