package har

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/tracectl/pkg/types"
)

// Submitter posts one trace to the backend.
type Submitter interface {
	SubmitTrace(ctx context.Context, req types.TraceRequest) error
}

// Traces numbers the exchanges as consecutive turns of sessionID starting at
// startTurn.
func Traces(sessionID string, startTurn int, exchanges []Exchange) ([]types.TraceRequest, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("har: session id is required")
	}
	if startTurn < 1 {
		startTurn = 1
	}
	out := make([]types.TraceRequest, 0, len(exchanges))
	for i, ex := range exchanges {
		meta, err := json.Marshal(map[string]any{
			"source":     "har",
			"url":        ex.URL,
			"status":     ex.StatusCode,
			"latency_ms": ex.LatencyMs,
			"started_at": ex.Timestamp.UTC().Format(time.RFC3339Nano),
			"streamed":   ex.Streamed,
		})
		if err != nil {
			return nil, fmt.Errorf("har: encode metadata: %w", err)
		}
		t := types.TraceRequest{
			SessionID:  sessionID,
			TurnNumber: startTurn + i,
			Request:    ex.Request,
			Response:   ex.Response,
			Status:     types.StatusSuccess,
			Metadata:   meta,
		}
		if ex.ErrorMessage != "" {
			t.Status = types.StatusError
			t.ErrorMessage = ex.ErrorMessage
		}
		out = append(out, t)
	}
	return out, nil
}

// Import submits traces in order and stops at the first failure. It returns
// how many were accepted.
func Import(ctx context.Context, sub Submitter, traces []types.TraceRequest, logger *slog.Logger) (int, error) {
	for i, t := range traces {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := sub.SubmitTrace(ctx, t); err != nil {
			return i, fmt.Errorf("har: submit turn %d: %w", t.TurnNumber, err)
		}
		if logger != nil {
			logger.Debug("trace submitted", "session_id", t.SessionID, "turn", t.TurnNumber, "status", t.Status)
		}
	}
	return len(traces), nil
}
