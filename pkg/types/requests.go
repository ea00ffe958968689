package types

import "encoding/json"

// ReplayRequest is the body of POST /records/{id}/replay.
type ReplayRequest struct {
	SessionID        string          `json:"session_id"`
	TurnNumber       int             `json:"turn_number"`
	Request          json.RawMessage `json:"request"`
	Provider         string          `json:"provider,omitempty"`
	Model            string          `json:"model,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
}

// CreateReplaySessionRequest is the body of POST /replay-sessions.
type CreateReplaySessionRequest struct {
	OriginalSessionID string `json:"original_session_id"`
	StartTurnNumber   int    `json:"start_turn_number"`
	Name              string `json:"name"`
}

// ReplayDebugRequest is the body of POST /replay-debug.
type ReplayDebugRequest struct {
	ReplaySessionID string          `json:"replay_session_id"`
	TurnNumber      int             `json:"turn_number"`
	Request         json.RawMessage `json:"request"`
	Provider        string          `json:"provider,omitempty"`
	Model           string          `json:"model,omitempty"`
	Config          *ReplayConfig   `json:"config,omitempty"`
}

// TraceRequest is the body of POST /trace, the backend's ingestion endpoint.
type TraceRequest struct {
	SessionID    string          `json:"session_id"`
	TurnNumber   int             `json:"turn_number"`
	Request      json.RawMessage `json:"request"`
	Response     json.RawMessage `json:"response,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}
