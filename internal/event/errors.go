package event

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dshills/emitter/internal/event/topic"
)

// Sentinel errors for the emitter.
var (
	// ErrStreamClosed is returned by Stream.Next after Close.
	ErrStreamClosed = errors.New("event stream is closed")

	// ErrStreamBusy is returned when Next is called while another Next on
	// the same stream is still waiting.
	ErrStreamBusy = errors.New("event stream already has a pending read")

	// ErrHandlerPanic is matched by every PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrPayloadType is returned to a typed listener's emitter when the
	// emitted payload cannot be converted to the listener's payload type.
	ErrPayloadType = errors.New("payload type mismatch")
)

// HandlerError wraps an error returned by a handler.
type HandlerError struct {
	// ListenerID is the ID of the listener whose handler failed.
	ListenerID string

	// Topic is the key that was being emitted.
	Topic topic.Topic

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for listener " + e.ListenerID + " on topic " + string(e.Topic) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value as an error.
type PanicError struct {
	// ListenerID is the ID of the listener whose handler panicked.
	ListenerID string

	// Topic is the key that was being emitted.
	Topic topic.Topic

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for listener %s on topic %s: %v", e.ListenerID, e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// AggregateError reports every handler failure of one EmitAsync call.
type AggregateError struct {
	// Topic is the key that was being emitted.
	Topic topic.Topic

	// Err combines the individual failures in dispatch order.
	Err error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	return fmt.Sprintf("emit %s: %d handler(s) failed: %v", e.Topic, len(e.Errors()), e.Err)
}

// Errors returns the individual failures.
func (e *AggregateError) Errors() []error {
	return multierr.Errors(e.Err)
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors()
}
