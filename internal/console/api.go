// Package console holds the operator-side state of the trace console: the
// session, record and debug-session stores, the turn sequencer and the saved
// replay preferences. Stores are safe for concurrent use.
package console

import (
	"context"

	"github.com/yourorg/tracectl/pkg/types"
)

// SessionAPI lists traced sessions.
type SessionAPI interface {
	ListSessions(ctx context.Context, page, size int) (*types.Page[types.Session], error)
}

// RecordAPI reads, deletes and replays records.
type RecordAPI interface {
	ListRecords(ctx context.Context, sessionID string, page, size int) (*types.Page[types.Record], error)
	DeleteRecord(ctx context.Context, recordID string) error
	ReplayRecord(ctx context.Context, recordID string, req types.ReplayRequest) (*types.Record, error)
}

// ReplayAPI manages debug sessions and their turns.
type ReplayAPI interface {
	CreateReplaySession(ctx context.Context, req types.CreateReplaySessionRequest) (*types.ReplaySession, error)
	ListReplaySessions(ctx context.Context, page, size int) (*types.Page[types.ReplaySession], error)
	GetReplaySession(ctx context.Context, id string) (*types.ReplaySession, error)
	DeleteReplaySession(ctx context.Context, id string) error
	ListReplayRecords(ctx context.Context, id string, page, size int) (*types.Page[types.ReplayRecord], error)
	ReplayDebug(ctx context.Context, req types.ReplayDebugRequest) (*types.ReplayRecord, error)
}

// ProviderAPI lists the backend's LLM providers.
type ProviderAPI interface {
	ListProviders(ctx context.Context) ([]types.ProviderInfo, error)
}

// HealthAPI probes the backend.
type HealthAPI interface {
	Health(ctx context.Context) error
}
