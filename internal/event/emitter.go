package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/emitter/internal/event/dispatch"
	"github.com/dshills/emitter/internal/event/topic"
)

// Emitter is a typed publish/subscribe hub. Registration and emission go
// through the generic functions in this package (On, Once, Emit, EmitAsync,
// Events...); key-agnostic operations are methods.
//
// An Emitter is safe for concurrent use. Handlers may call back into the
// emitter, including emitting, from inside their own invocation.
type Emitter struct {
	registry *Registry

	sequential *dispatch.Sequential
	concurrent *dispatch.Concurrent

	logger *zap.Logger

	emissions      atomic.Uint64
	asyncEmissions atomic.Uint64
}

// New creates an emitter with the given options.
func New(opts ...Option) *Emitter {
	config := defaultEmitterConfig()
	for _, opt := range opts {
		opt(&config)
	}

	e := &Emitter{
		registry: NewRegistry(),
		logger:   config.logger,
	}
	e.registry.SetCapacityHint(config.maxListeners)

	panicHandler := config.panicHandler
	if panicHandler == nil {
		panicHandler = e.logPanic
	}

	// dispatch.PanicHandler receives the emission; adapt it to the
	// topic-based signature.
	dispatchPanicHandler := func(event any, panicValue any, stack []byte) {
		em, _ := event.(emission)
		panicHandler(em.topic, panicValue, stack)
	}

	e.sequential = dispatch.NewSequential(dispatch.WithPanicHandler(dispatchPanicHandler))
	e.concurrent = dispatch.NewConcurrent(dispatch.WithPanicHandler(dispatchPanicHandler))

	for _, name := range config.initialEvents {
		if err := name.Validate(); err != nil {
			e.logger.Warn("skipping initial event", zap.Error(err))
			continue
		}
		e.registry.Touch(name)
	}

	return e
}

func (e *Emitter) logPanic(name topic.Topic, recovered any, stack []byte) {
	e.logger.Error("handler panicked",
		zap.String("topic", string(name)),
		zap.Any("panic", recovered),
		zap.ByteString("stack", stack),
	)
}

// add registers a keyed listener.
func (e *Emitter) add(name topic.Topic, fn func(ctx context.Context, payload any) error, once bool) *Listener {
	return e.register(newListener(name, fn, once))
}

func (e *Emitter) register(l *Listener) *Listener {
	if l.once {
		e.registry.AddTransient(l.topic, l)
	} else {
		e.registry.AddPersistent(l.topic, l)
	}

	e.logger.Debug("listener added",
		zap.String("topic", string(l.topic)),
		zap.String("listener", l.id),
		zap.Bool("once", l.once),
	)
	return l
}

// OnTopic registers fn on a key given only by name. fn receives the
// normalized argument list of each emission, like a wildcard listener,
// except that a sequence payload arrives whole as the only argument.
// It is meant for bridges that cannot name payload types at compile time.
func (e *Emitter) OnTopic(name topic.Topic, fn WildcardFunc) (*Listener, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	return e.register(newTopicListener(name, fn, false)), nil
}

// OnceTopic is the one-shot form of OnTopic.
func (e *Emitter) OnceTopic(name topic.Topic, fn WildcardFunc) (*Listener, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	return e.register(newTopicListener(name, fn, true)), nil
}

// EmitTopic emits positional arguments on a key given only by name, with
// the semantics of Emit. Typed listeners on the key receive the arguments
// as an Args payload.
func (e *Emitter) EmitTopic(ctx context.Context, name topic.Topic, args ...any) error {
	if err := name.Validate(); err != nil {
		return err
	}
	return e.emit(ctx, name, ShapeArgs, Args(args), args)
}

// EmitTopicAsync is the asynchronous form of EmitTopic.
func (e *Emitter) EmitTopicAsync(ctx context.Context, name topic.Topic, args ...any) error {
	if err := name.Validate(); err != nil {
		return err
	}
	return e.emitAsync(ctx, name, ShapeArgs, Args(args), args)
}

// Detach removes l from wherever it is registered, keyed or wildcard.
func (e *Emitter) Detach(l *Listener) *Emitter {
	if l == nil {
		return e
	}
	if l.IsWildcard() {
		return e.OffAny(l)
	}
	return e.Off(l.topic, l)
}

// Off removes l from the key, whether it was registered with On or Once.
// Unknown keys and listeners are ignored.
func (e *Emitter) Off(k Named, l *Listener) *Emitter {
	if e.registry.Remove(k.Name(), l) {
		e.logger.Debug("listener removed",
			zap.String("topic", string(k.Name())),
			zap.String("listener", l.id),
		)
	}
	return e
}

// OnAny registers a listener that receives every emission on every key,
// after the key's own listeners.
func (e *Emitter) OnAny(fn WildcardFunc) *Listener {
	l := newWildcardListener(fn)
	e.registry.AddWildcard(l)

	e.logger.Debug("wildcard listener added", zap.String("listener", l.id))
	return l
}

// OffAny removes a wildcard listener.
func (e *Emitter) OffAny(l *Listener) *Emitter {
	e.registry.RemoveWildcard(l)
	return e
}

// Clear removes every listener of the key.
func (e *Emitter) Clear(k Named) *Emitter {
	e.registry.ClearKey(k.Name())
	return e
}

// ClearAll removes every keyed and wildcard listener.
func (e *Emitter) ClearAll() *Emitter {
	e.registry.ClearAll()
	return e
}

// Cleanup is an alias for ClearAll.
func (e *Emitter) Cleanup() *Emitter {
	return e.ClearAll()
}

// ListenerCount returns the number of persistent and one-shot listeners on
// the key.
func (e *Emitter) ListenerCount(k Named) int {
	return e.registry.Count(k.Name())
}

// Listeners returns a snapshot of the key's listeners, persistent first.
func (e *Emitter) Listeners(k Named) []*Listener {
	return e.registry.List(k.Name())
}

// HasListeners reports whether the key has at least one listener.
func (e *Emitter) HasListeners(k Named) bool {
	return e.registry.Has(k.Name())
}

// Topics returns the names of every key the emitter knows about.
func (e *Emitter) Topics() []topic.Topic {
	return e.registry.Topics()
}

// SetMaxListeners stores the advisory per-key listener limit.
// The emitter never enforces it.
func (e *Emitter) SetMaxListeners(n int) *Emitter {
	e.registry.SetCapacityHint(n)
	return e
}

// MaxListeners returns the advisory per-key listener limit.
func (e *Emitter) MaxListeners() int {
	return e.registry.CapacityHint()
}

// Stats returns current emitter statistics.
func (e *Emitter) Stats() Stats {
	seq := e.sequential.Stats()
	con := e.concurrent.Stats()

	return Stats{
		Emissions:        e.emissions.Load(),
		AsyncEmissions:   e.asyncEmissions.Load(),
		HandlersExecuted: seq.Calls + con.Calls,
		HandlerErrors:    seq.Failed + con.Failed,
		HandlerPanics:    seq.Panicked + con.Panicked,
		Listeners:        e.registry.Len(),
		InFlight:         con.InFlight,
	}
}

// ResetStats zeroes the emission and handler counters. Listeners and
// handlers still running are not affected.
func (e *Emitter) ResetStats() *Emitter {
	e.emissions.Store(0)
	e.asyncEmissions.Store(0)
	e.sequential.Reset()
	e.concurrent.Reset()
	return e
}

// snapshot drains the key and appends the wildcard listeners.
// One-shot listeners are gone from the registry before any handler runs.
func (e *Emitter) snapshot(name topic.Topic) []*Listener {
	keyed := e.registry.Drain(name)
	wild := e.registry.Wildcards()

	out := make([]*Listener, 0, len(keyed)+len(wild))
	out = append(out, keyed...)
	return append(out, wild...)
}

func asHandlers(listeners []*Listener) []dispatch.Handler {
	handlers := make([]dispatch.Handler, len(listeners))
	for i, l := range listeners {
		handlers[i] = l
	}
	return handlers
}

// emit runs the snapshot in order and stops at the first failure.
func (e *Emitter) emit(ctx context.Context, name topic.Topic, shape Shape, payload any, args []any) error {
	e.emissions.Add(1)

	listeners := e.snapshot(name)
	if len(listeners) == 0 {
		return nil
	}

	em := emission{topic: name, shape: shape, payload: payload, args: args}
	results := e.sequential.RunUntilFailure(ctx, em, asHandlers(listeners))

	last := len(results) - 1
	if last < 0 || results[last].OK() {
		return nil
	}

	err := failure(name, listeners[last], results[last])
	e.logger.Debug("emit aborted",
		zap.String("topic", string(name)),
		zap.Int("skipped", len(listeners)-len(results)),
		zap.Error(err),
	)
	return err
}

// emitAsync runs the snapshot concurrently and waits for all of it.
func (e *Emitter) emitAsync(ctx context.Context, name topic.Topic, shape Shape, payload any, args []any) error {
	e.asyncEmissions.Add(1)

	listeners := e.snapshot(name)
	if len(listeners) == 0 {
		return nil
	}

	em := emission{topic: name, shape: shape, payload: payload, args: args}
	results := e.concurrent.RunAll(ctx, em, asHandlers(listeners))

	var combined error
	for i, r := range results {
		if !r.OK() {
			combined = multierr.Append(combined, failure(name, listeners[i], r))
		}
	}
	if combined == nil {
		return nil
	}

	err := &AggregateError{Topic: name, Err: combined}
	e.logger.Warn("async emit failed",
		zap.String("topic", string(name)),
		zap.Int("failures", len(err.Errors())),
		zap.Error(combined),
	)
	return err
}

// failure converts an unsuccessful result into the error reported to callers.
func failure(name topic.Topic, l *Listener, r dispatch.Result) error {
	if r.Outcome == dispatch.Panicked {
		return &PanicError{
			ListenerID: l.id,
			Topic:      name,
			Value:      r.Recovered,
			Stack:      string(r.Stack),
		}
	}
	return &HandlerError{
		ListenerID: l.id,
		Topic:      name,
		Err:        r.Err,
	}
}
