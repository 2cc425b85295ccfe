package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Handler is implemented by emitter listeners.
// Declared here so the package does not import the emitter.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// Outcome classifies how a handler finished.
type Outcome uint8

const (
	Succeeded Outcome = iota
	Failed
	Panicked
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Panicked:
		return "panicked"
	default:
		return "unknown"
	}
}

// Result is the outcome of one handler call.
type Result struct {
	Outcome Outcome

	// Err is the returned error when Outcome is Failed.
	Err error

	// Recovered and Stack are set when Outcome is Panicked.
	Recovered any
	Stack     []byte

	Duration time.Duration
}

// OK reports whether the handler returned nil.
func (r Result) OK() bool {
	return r.Outcome == Succeeded
}

// PanicHandler is told about every recovered panic, with the event that
// was being handled.
type PanicHandler func(event any, recovered any, stack []byte)

type options struct {
	onPanic PanicHandler
}

// Option configures a dispatcher.
type Option func(*options)

// WithPanicHandler sets the callback for recovered panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(o *options) {
		o.onPanic = h
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// call runs h and converts a panic into a Result. ctx is passed through
// unchanged; a cancelled context does not prevent the call.
func call(ctx context.Context, event any, h Handler, onPanic PanicHandler) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		r := recover()
		if r == nil {
			return
		}
		result = Result{
			Outcome:   Panicked,
			Recovered: r,
			Stack:     debug.Stack(),
			Duration:  result.Duration,
		}
		if onPanic != nil {
			// A panicking callback is swallowed.
			func() {
				defer func() { _ = recover() }()
				onPanic(event, r, result.Stack)
			}()
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: Succeeded}
}
