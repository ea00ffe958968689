package har

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type HARFile struct {
	Log struct {
		Entries []Entry `json:"entries"`
	} `json:"log"`
}

type Entry struct {
	StartedDateTime string  `json:"startedDateTime"`
	Time            float64 `json:"time"`
	Request         struct {
		Method   string `json:"method"`
		URL      string `json:"url"`
		PostData struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status     int    `json:"status"`
		StatusText string `json:"statusText"`
		Content    struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"content"`
	} `json:"response"`
}

// Exchange is one chat-completion call found in a capture.
type Exchange struct {
	Timestamp    time.Time
	URL          string
	StatusCode   int
	LatencyMs    int64
	Request      json.RawMessage
	Response     json.RawMessage
	ErrorMessage string
	Streamed     bool
}

// Capture is a parsed HAR file.
type Capture struct {
	Source    string
	Digest    string
	Exchanges []Exchange
	Skipped   int
}

// Load reads and parses a HAR file. The digest identifies its exact content.
func Load(filePath string) (*Capture, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	exchanges, skipped, err := Parse(data)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &Capture{
		Source:    filePath,
		Digest:    hex.EncodeToString(sum[:]),
		Exchanges: exchanges,
		Skipped:   skipped,
	}, nil
}

// Parse keeps the POST entries whose body is a JSON object with a
// "messages" member, in start time order. It also returns how many entries
// were skipped.
func Parse(data []byte) ([]Exchange, int, error) {
	var hf HARFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, 0, err
	}
	out := make([]Exchange, 0, len(hf.Log.Entries))
	skipped := 0
	for _, e := range hf.Log.Entries {
		if !strings.EqualFold(e.Request.Method, http.MethodPost) {
			skipped++
			continue
		}
		reqBody, ok := decodeBody(e.Request.PostData.Text, e.Request.PostData.Encoding, e.Request.PostData.MimeType)
		if !ok || !isChatRequest(reqBody) {
			skipped++
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return nil, 0, fmt.Errorf("parse startedDateTime: %w", err)
		}

		ex := Exchange{
			Timestamp:  ts,
			URL:        e.Request.URL,
			StatusCode: e.Response.Status,
			LatencyMs:  int64(e.Time),
			Request:    json.RawMessage(reqBody),
		}
		respBody, _ := decodeBody(e.Response.Content.Text, e.Response.Content.Encoding, e.Response.Content.MimeType)
		switch {
		case json.Valid([]byte(respBody)) && strings.TrimSpace(respBody) != "":
			ex.Response = json.RawMessage(respBody)
		case strings.HasPrefix(strings.TrimSpace(respBody), "data:"):
			ex.Streamed = true
		}
		if !isSuccess(ex.StatusCode) {
			ex.ErrorMessage = errorMessage(e.Response.Status, e.Response.StatusText, ex.Response)
			ex.Response = nil
		}
		out = append(out, ex)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, skipped, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

func isChatRequest(body string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return false
	}
	_, ok := obj["messages"]
	return ok
}

// errorMessage prefers an OpenAI-style {"error":{"message":...}} body.
func errorMessage(status int, statusText string, body json.RawMessage) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	if status == 0 {
		return "no response captured"
	}
	return fmt.Sprintf("HTTP %d %s", status, statusText)
}

func decodeBody(text, encoding, mimeType string) (string, bool) {
	if text == "" {
		return "", false
	}
	if isBinaryContentType(mimeType) {
		return "", false
	}
	if strings.EqualFold(encoding, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}
	return text, true
}

func isBinaryContentType(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") || mt == "application/octet-stream"
}
