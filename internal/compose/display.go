package compose

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
)

// Pretty indents stored JSON text for display. Text that does not parse is
// returned unchanged.
func Pretty(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

// EstimateTokens provides a rough token estimate.
// Han characters count ~2 chars/token, others ~4 chars/token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var han, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
			continue
		}
		other++
	}
	return (han+1)/2 + (other+3)/4
}

// EstimateRequestTokens estimates the prompt size of a chat request from its
// message texts. Non-chat requests are estimated on their full text.
func EstimateRequestTokens(request string) int {
	var req chatRequest
	if err := json.Unmarshal([]byte(request), &req); err != nil || req.Messages == nil {
		return EstimateTokens(request)
	}
	total := 0
	for _, msg := range req.Messages {
		var m chatMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}
		total += EstimateTokens(contentText(m.Content))
	}
	return total
}
