// Package client is an HTTP client for the trace backend's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/tracectl/pkg/types"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:10081/api".
	BaseURL string

	// Timeout applies to ordinary calls. Defaults to 30 seconds.
	Timeout time.Duration

	// ReplayTimeout applies to replay and debug calls, which wait on an LLM
	// provider. Defaults to 120 seconds.
	ReplayTimeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client calls the backend. All methods are safe for concurrent use and
// never retry.
type Client struct {
	baseURL       string
	timeout       time.Duration
	replayTimeout time.Duration
	http          *http.Client
	logger        *slog.Logger
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL: %w", err)
	}
	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		timeout:       cfg.Timeout,
		replayTimeout: cfg.ReplayTimeout,
		http:          cfg.HTTPClient,
		logger:        cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.replayTimeout <= 0 {
		c.replayTimeout = 120 * time.Second
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c, nil
}

// ListSessions returns one page of traced sessions.
func (c *Client) ListSessions(ctx context.Context, page, size int) (*types.Page[types.Session], error) {
	var out types.Page[types.Session]
	if err := c.get(ctx, "/sessions", pageQuery(page, size), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecords returns one page of a session's records.
func (c *Client) ListRecords(ctx context.Context, sessionID string, page, size int) (*types.Page[types.Record], error) {
	var out types.Page[types.Record]
	if err := c.get(ctx, "/sessions/"+url.PathEscape(sessionID)+"/records", pageQuery(page, size), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplayRecord re-submits a stored request as a new single call.
func (c *Client) ReplayRecord(ctx context.Context, recordID string, req types.ReplayRequest) (*types.Record, error) {
	var out types.Record
	if err := c.do(ctx, http.MethodPost, "/records/"+url.PathEscape(recordID)+"/replay", nil, req, &out, c.replayTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecord deletes one record.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	return c.do(ctx, http.MethodDelete, "/records/"+url.PathEscape(recordID), nil, nil, nil, c.timeout)
}

// ListProviders returns the providers configured on the backend.
func (c *Client) ListProviders(ctx context.Context) ([]types.ProviderInfo, error) {
	var out []types.ProviderInfo
	if err := c.get(ctx, "/providers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReplaySession starts a debug session.
func (c *Client) CreateReplaySession(ctx context.Context, req types.CreateReplaySessionRequest) (*types.ReplaySession, error) {
	var out types.ReplaySession
	if err := c.do(ctx, http.MethodPost, "/replay-sessions", nil, req, &out, c.timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReplaySessions returns one page of debug sessions.
func (c *Client) ListReplaySessions(ctx context.Context, page, size int) (*types.Page[types.ReplaySession], error) {
	var out types.Page[types.ReplaySession]
	if err := c.get(ctx, "/replay-sessions", pageQuery(page, size), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReplaySession returns one debug session.
func (c *Client) GetReplaySession(ctx context.Context, id string) (*types.ReplaySession, error) {
	var out types.ReplaySession
	if err := c.get(ctx, "/replay-sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReplaySession deletes a debug session and its records.
func (c *Client) DeleteReplaySession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/replay-sessions/"+url.PathEscape(id), nil, nil, nil, c.timeout)
}

// ListReplayRecords returns one page of a debug session's turns.
func (c *Client) ListReplayRecords(ctx context.Context, id string, page, size int) (*types.Page[types.ReplayRecord], error) {
	var out types.Page[types.ReplayRecord]
	if err := c.get(ctx, "/replay-sessions/"+url.PathEscape(id)+"/records", pageQuery(page, size), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplayDebug submits one debug turn.
func (c *Client) ReplayDebug(ctx context.Context, req types.ReplayDebugRequest) (*types.ReplayRecord, error) {
	var out types.ReplayRecord
	if err := c.do(ctx, http.MethodPost, "/replay-debug", nil, req, &out, c.replayTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTrace posts one captured exchange to the ingestion endpoint.
func (c *Client) SubmitTrace(ctx context.Context, req types.TraceRequest) error {
	return c.do(ctx, http.MethodPost, "/trace", nil, req, nil, c.timeout)
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil, c.timeout)
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, dest, c.timeout)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, dest any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("client: marshal request body: %w", err)
		}
		reader = bytes.NewReader(bytes.TrimRight(buf.Bytes(), "\n"))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.debug("api request failed", "method", method, "path", path, "request_id", requestID, "duration", time.Since(start), "error", err)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("read response body: %w", err)}
	}
	c.debug("api request", "method", method, "path", path, "request_id", requestID, "status", resp.StatusCode, "duration", time.Since(start))

	return decodeResponse(method, path, resp.StatusCode, data, dest)
}

func decodeResponse(method, path string, status int, data []byte, dest any) error {
	var env envelope
	envErr := json.Unmarshal(data, &env)

	if status >= 400 {
		msg := strings.TrimSpace(string(data))
		if envErr == nil && env.Message != "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Method: method, Path: path, StatusCode: status, Message: msg}
	}
	if envErr != nil {
		return fmt.Errorf("client: %s %s: decode response envelope: %w", method, path, envErr)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Method: method, Path: path, StatusCode: status, Message: msg}
	}
	if dest == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		// An empty list may be sent as null.
		if isSlicePtr(dest) {
			return nil
		}
		return fmt.Errorf("client: %s %s: response has no data", method, path)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("client: %s %s: decode data: %w", method, path, err)
	}
	return nil
}

func isSlicePtr(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Slice
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
