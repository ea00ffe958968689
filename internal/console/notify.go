package console

import (
	"errors"
	"log/slog"

	"github.com/yourorg/tracectl/internal/client"
	"github.com/yourorg/tracectl/internal/compose"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a user-visible outcome of a store operation.
type Notification struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Options are shared by all stores.
type Options struct {
	Logger   *slog.Logger
	Notifier Notifier
}

func (o Options) fail(op string, err error) error {
	if o.Logger != nil {
		o.Logger.Error("console operation failed", "op", op, "error", err)
	}
	if o.Notifier != nil {
		o.Notifier.Notify(Notification{Kind: KindError, Op: op, Message: Describe(err), Err: err})
	}
	return err
}

func (o Options) succeed(op, msg string) {
	if o.Logger != nil {
		o.Logger.Info(msg, "op", op)
	}
	if o.Notifier != nil {
		o.Notifier.Notify(Notification{Kind: KindSuccess, Op: op, Message: msg})
	}
}

func (o Options) debug(msg string, args ...any) {
	if o.Logger != nil {
		o.Logger.Debug(msg, args...)
	}
}

// Describe renders err as an operator-facing message.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return err.Error()
	}
	var perr *compose.ParseError
	if errors.As(err, &perr) {
		return "request is not valid JSON, nothing was sent"
	}
	if client.IsTimeout(err) {
		return "request timed out, retry manually"
	}
	var aerr *client.APIError
	if errors.As(err, &aerr) {
		return aerr.Message
	}
	if client.IsTransport(err) {
		return "backend unreachable"
	}
	return err.Error()
}
