package types

import (
	"encoding/json"
	"time"
)

// Record status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPending = "pending"
)

// Replay session status values.
const (
	ReplayActive    = "active"
	ReplayCompleted = "completed"
)

// Session is one traced conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Record is one captured request/response exchange within a session.
// Request, Response and Metadata hold raw JSON text as stored by the backend.
type Record struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	TurnNumber int       `json:"turn_number"`
	Request    string    `json:"request"`
	Response   string    `json:"response"`
	Status     string    `json:"status"`
	ErrorMsg   string    `json:"error_msg"`
	Metadata   string    `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReplaySession is a multi-turn debug branch seeded from a point in a session.
type ReplaySession struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	OriginalSessionID string    `json:"original_session_id"`
	StartTurnNumber   int       `json:"start_turn_number"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ReplayRecord is one debug turn. Config is the serialized sampling parameters.
type ReplayRecord struct {
	ID              string    `json:"id"`
	ReplaySessionID string    `json:"replay_session_id"`
	TurnNumber      int       `json:"turn_number"`
	Request         string    `json:"request"`
	Response        string    `json:"response"`
	Status          string    `json:"status"`
	ErrorMsg        string    `json:"error_msg"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	Config          string    `json:"config"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReplayConfig holds the provider selection and sampling parameters used for
// replay and debug calls.
type ReplayConfig struct {
	Provider         string  `json:"provider" yaml:"provider"`
	Model            string  `json:"model" yaml:"model"`
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	TopP             float64 `json:"top_p" yaml:"top_p"`
	FrequencyPenalty float64 `json:"frequency_penalty" yaml:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty" yaml:"presence_penalty"`
}

// ModelInfo is one model exposed by a provider.
type ModelInfo struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Enabled bool   `json:"enabled"`
}

// ProviderInfo describes a provider configured on the backend.
type ProviderInfo struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	Enabled bool        `json:"enabled"`
	Models  []ModelInfo `json:"models"`
}

// EnabledModels returns the provider's enabled models in backend order.
func (p ProviderInfo) EnabledModels() []ModelInfo {
	out := make([]ModelInfo, 0, len(p.Models))
	for _, m := range p.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Page is the backend's paginated list envelope.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"total_pages"`
}

// Pagination is the bookkeeping a store keeps for its current page.
type Pagination struct {
	Current  int `json:"current"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Preference is one versioned entry of the client-side preference store.
type Preference struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int             `json:"version"`
	Schema    int             `json:"schema"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Import is one HAR file submitted to the trace endpoint.
type Import struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Digest    string    `json:"digest"`
	SessionID string    `json:"session_id"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}
