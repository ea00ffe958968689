package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError is a reportable backend failure: an HTTP error status or a
// success:false envelope.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s %s: %s (%d)", e.Method, e.Path, e.Message, e.StatusCode)
}

// TransportError is a failure to get any response from the backend.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran past its deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var e *APIError
	if errors.As(err, &e) {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTimeout returns true if the call timed out at the transport boundary.
func IsTimeout(err error) bool {
	var e *TransportError
	if errors.As(err, &e) {
		return e.Timeout()
	}
	return false
}

// IsTransport returns true if no response was received.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
