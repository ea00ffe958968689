package compose

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/yourorg/tracectl/pkg/types"
)

// TextMessage encodes a plain chat message.
func TextMessage(role, content string) json.RawMessage {
	b, _ := encode(map[string]string{"role": role, "content": content})
	return b
}

// BuildDebugRequest assembles the chat payload for one interactive debug turn:
// the history messages, then the new user message, with the sampling
// parameters of cfg.
func BuildDebugRequest(cfg types.ReplayConfig, history []json.RawMessage, message string) (Payload, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("compose: debug message is empty")
	}
	messages := make([]json.RawMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, TextMessage("user", message))

	p := Payload{}
	if err := p.set("messages", messages); err != nil {
		return nil, err
	}
	if cfg.Model != "" {
		if err := p.set("model", cfg.Model); err != nil {
			return nil, err
		}
	}
	o := OverridesFromConfig(cfg)
	for key, v := range map[string]any{
		"temperature":       o.Temperature,
		"max_tokens":        o.MaxTokens,
		"top_p":             o.TopP,
		"frequency_penalty": o.FrequencyPenalty,
		"presence_penalty":  o.PresencePenalty,
	} {
		if err := p.set(key, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type chatRequest struct {
	Messages []json.RawMessage `json:"messages"`
}

type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message json.RawMessage `json:"message"`
	} `json:"choices"`
}

// SeedMessages returns the context a debug branch inherits from the original
// record at its start turn: every message of the stored request except the
// trailing user message, which the branch replaces.
func SeedMessages(request string) []json.RawMessage {
	var req chatRequest
	if err := json.Unmarshal([]byte(request), &req); err != nil {
		return nil
	}
	msgs := req.Messages
	if n := len(msgs); n > 0 && roleOf(msgs[n-1]) == "user" {
		msgs = msgs[:n-1]
	}
	return append([]json.RawMessage(nil), msgs...)
}

// TranscriptMessages rebuilds the conversation carried by successful debug
// turns: for each, the last user message it sent and the assistant message it
// received. Turns whose JSON cannot be read are skipped.
func TranscriptMessages(records []types.ReplayRecord) []json.RawMessage {
	var out []json.RawMessage
	for _, r := range records {
		if r.Status != types.StatusSuccess {
			continue
		}
		user := lastUserMessage(r.Request)
		reply := replyMessage(r.Response)
		if user == nil || reply == nil {
			continue
		}
		out = append(out, user, reply)
	}
	return out
}

// ReplyText extracts the assistant text of a chat completion response.
func ReplyText(response string) string {
	msg := replyMessage(response)
	if msg == nil {
		return ""
	}
	var m chatMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return ""
	}
	return contentText(m.Content)
}

// UserText extracts the text of the last user message of a chat request.
func UserText(request string) string {
	msg := lastUserMessage(request)
	if msg == nil {
		return ""
	}
	var m chatMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return ""
	}
	return contentText(m.Content)
}

func lastUserMessage(request string) json.RawMessage {
	var req chatRequest
	if err := json.Unmarshal([]byte(request), &req); err != nil {
		return nil
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if roleOf(req.Messages[i]) == "user" {
			return req.Messages[i]
		}
	}
	return nil
}

func replyMessage(response string) json.RawMessage {
	var resp chatResponse
	if err := json.Unmarshal([]byte(response), &resp); err != nil {
		return nil
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message) == 0 {
		return nil
	}
	return resp.Choices[0].Message
}

func roleOf(msg json.RawMessage) string {
	var m chatMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return ""
	}
	return m.Role
}

// contentText flattens string content or an array of text parts.
func contentText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
