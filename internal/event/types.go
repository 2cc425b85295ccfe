package event

import "github.com/dshills/emitter/internal/event/topic"

// PanicHandler is called when a handler panics. The panic is still reported
// to the emitting caller as a *PanicError.
type PanicHandler func(name topic.Topic, recovered any, stack []byte)

// Stats contains emitter statistics.
type Stats struct {
	// Emissions is the number of Emit calls.
	Emissions uint64

	// AsyncEmissions is the number of EmitAsync calls.
	AsyncEmissions uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// Listeners is the current number of keyed and wildcard listeners.
	Listeners int

	// InFlight is the number of async handlers currently running.
	InFlight int
}
