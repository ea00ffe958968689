// Package compose builds outbound replay and debug payloads from stored
// request JSON. Everything here is a pure transformation.
package compose

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yourorg/tracectl/pkg/types"
)

// ParseError reports request text that cannot be used as a JSON object.
// Submission must be aborted when it is returned.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compose: %s: %v", e.Reason, e.Err)
	}
	return "compose: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Overrides are the operator-edited fields. A nil field leaves the original
// value untouched.
type Overrides struct {
	Model            *string
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
}

// OverridesFromConfig turns a replay configuration into a full set of
// sampling overrides. An empty model is not an override.
func OverridesFromConfig(cfg types.ReplayConfig) Overrides {
	o := Overrides{
		Temperature:      &cfg.Temperature,
		MaxTokens:        &cfg.MaxTokens,
		TopP:             &cfg.TopP,
		FrequencyPenalty: &cfg.FrequencyPenalty,
		PresencePenalty:  &cfg.PresencePenalty,
	}
	if cfg.Model != "" {
		o.Model = &cfg.Model
	}
	return o
}

// Payload is a request object whose untouched members keep their original
// encoding.
type Payload map[string]json.RawMessage

// IsChat reports whether the payload is chat-shaped.
func (p Payload) IsChat() bool {
	_, ok := p["messages"]
	return ok
}

// Marshal encodes the payload. Member values are compacted, keys are sorted
// and HTML characters are left unescaped.
func (p Payload) Marshal() (json.RawMessage, error) {
	return encode(map[string]json.RawMessage(p))
}

// encode is json.Marshal without HTML escaping.
func encode(v any) (json.RawMessage, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StringField returns the decoded value of a string member, or "".
func (p Payload) StringField(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Compose parses original and applies the present overrides on top of it.
// The model override only applies to chat-shaped requests.
func Compose(original string, o Overrides) (Payload, error) {
	p, err := Parse(original)
	if err != nil {
		return nil, err
	}
	if o.Model != nil && p.IsChat() {
		if err := p.set("model", *o.Model); err != nil {
			return nil, err
		}
	}
	fields := []struct {
		key string
		val any
	}{
		{"temperature", o.Temperature},
		{"max_tokens", o.MaxTokens},
		{"top_p", o.TopP},
		{"frequency_penalty", o.FrequencyPenalty},
		{"presence_penalty", o.PresencePenalty},
	}
	for _, f := range fields {
		if isNilPtr(f.val) {
			continue
		}
		if err := p.set(f.key, f.val); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Parse decodes request text into a Payload.
func Parse(original string) (Payload, error) {
	data := bytes.TrimSpace([]byte(original))
	if !json.Valid(data) {
		return nil, &ParseError{Reason: "request is not valid JSON"}
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ParseError{Reason: "request must be a JSON object", Err: err}
	}
	if p == nil {
		return nil, &ParseError{Reason: "request must be a JSON object"}
	}
	return p, nil
}

func (p Payload) set(key string, v any) error {
	b, err := encode(v)
	if err != nil {
		return fmt.Errorf("compose: encode %s: %w", key, err)
	}
	p[key] = b
	return nil
}

func isNilPtr(v any) bool {
	switch x := v.(type) {
	case *float64:
		return x == nil
	case *int:
		return x == nil
	case *string:
		return x == nil
	}
	return v == nil
}
