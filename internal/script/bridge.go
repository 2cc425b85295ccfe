// Package script exposes an emitter to Lua scripts.
//
// A Bridge owns one Lua state and installs a global "emitter" table:
//
//	emitter.on(name, fn)             -> id
//	emitter.once(name, fn)           -> id
//	emitter.off(id)                  -> bool
//	emitter.emit(name, ...)
//	emitter.on_any(fn [, pattern])   -> id
//	emitter.off_any(id)              -> bool
//	emitter.listener_count(name)     -> number
//
// Keyed handlers receive the emission's arguments positionally, except that
// a slice payload arrives as a single table. Wildcard handlers receive the
// key name and a list of the arguments.
//
// gopher-lua states are not safe for concurrent use, so every entry into
// Lua is serialized. Emissions started from inside a script are delivered
// synchronously on the calling goroutine.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/event/topic"
)

// ErrClosed is returned when loading into a closed bridge.
var ErrClosed = errors.New("script bridge is closed")

// GlobalName is the name of the Lua table installed by a Bridge.
const GlobalName = "emitter"

// Bridge connects a Lua state to an emitter.
type Bridge struct {
	name    string
	emitter *event.Emitter
	logger  *zap.Logger

	// lmu serializes all use of L.
	lmu sync.Mutex
	L   *lua.LState

	// Track registrations for cleanup
	mu            sync.Mutex
	registrations map[string]*event.Listener
	handlerTbl    *lua.LTable // Table storing handler functions to prevent GC
	handlerKey    string      // Global key for handler table
	closed        bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for script diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a bridge named name with a fresh Lua state.
func New(name string, em *event.Emitter, opts ...Option) *Bridge {
	b := &Bridge{
		name:          name,
		emitter:       em,
		logger:        zap.NewNop(),
		registrations: make(map[string]*event.Listener),
		handlerKey:    "_emitter_handlers",
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("script", name))

	b.L = lua.NewState()
	b.register(b.L)
	return b
}

// register installs the emitter table into L.
func (b *Bridge) register(L *lua.LState) {
	// Create table to store handler functions (prevents GC)
	b.handlerTbl = L.NewTable()
	L.SetGlobal(b.handlerKey, b.handlerTbl)

	mod := L.NewTable()
	L.SetField(mod, "on", L.NewFunction(b.on))
	L.SetField(mod, "once", L.NewFunction(b.once))
	L.SetField(mod, "off", L.NewFunction(b.off))
	L.SetField(mod, "emit", L.NewFunction(b.emit))
	L.SetField(mod, "on_any", L.NewFunction(b.onAny))
	L.SetField(mod, "off_any", L.NewFunction(b.off))
	L.SetField(mod, "listener_count", L.NewFunction(b.listenerCount))

	L.SetGlobal(GlobalName, mod)
}

// Name returns the bridge name.
func (b *Bridge) Name() string {
	return b.name
}

// LoadFile runs a Lua file.
func (b *Bridge) LoadFile(path string) error {
	return b.run(func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// LoadString runs a Lua chunk.
func (b *Bridge) LoadString(source string) error {
	return b.run(func(L *lua.LState) error {
		return L.DoString(source)
	})
}

func (b *Bridge) run(fn func(L *lua.LState) error) error {
	b.lmu.Lock()
	defer b.lmu.Unlock()

	if b.isClosed() {
		return ErrClosed
	}
	if err := fn(b.L); err != nil {
		return fmt.Errorf("script %s: %w", b.name, err)
	}
	return nil
}

// Registrations returns the number of live registrations made by the script.
func (b *Bridge) Registrations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registrations)
}

// Cleanup removes every registration the script made.
// It must not be called from a handler running inside this bridge's script.
func (b *Bridge) Cleanup() {
	b.lmu.Lock()
	regs := b.forgetAllLocked()
	b.lmu.Unlock()

	for _, l := range regs {
		b.emitter.Detach(l)
	}
}

// Close removes every registration and closes the Lua state.
func (b *Bridge) Close() {
	b.lmu.Lock()
	defer b.lmu.Unlock()

	for _, l := range b.forgetAllLocked() {
		b.emitter.Detach(l)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.handlerTbl = nil
	b.mu.Unlock()

	b.L.Close()
}

// forgetAllLocked drops every registration and unpins its handler.
// The caller holds lmu, since handlerTbl belongs to the Lua state.
func (b *Bridge) forgetAllLocked() map[string]*event.Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.registrations
	b.registrations = make(map[string]*event.Listener)
	if b.handlerTbl != nil {
		for id := range regs {
			b.handlerTbl.RawSetString(id, lua.LNil)
		}
	}
	return regs
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// track records a registration and pins its Lua handler.
func (b *Bridge) track(l *event.Listener, handler *lua.LFunction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackLocked(l, handler)
}

func (b *Bridge) trackLocked(l *event.Listener, handler *lua.LFunction) {
	b.registrations[l.ID()] = l
	if b.handlerTbl != nil {
		b.handlerTbl.RawSetString(l.ID(), handler)
	}
}

// untrack forgets a registration. Returns the listener if it existed.
// The caller holds lmu.
func (b *Bridge) untrack(id string) (*event.Listener, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.registrations[id]
	if !ok {
		return nil, false
	}
	delete(b.registrations, id)
	if b.handlerTbl != nil {
		b.handlerTbl.RawSetString(id, lua.LNil)
	}
	return l, true
}

// on(name, handler) -> id
func (b *Bridge) on(L *lua.LState) int {
	return b.subscribe(L, false)
}

// once(name, handler) -> id
// The handler is forgotten after its first call.
func (b *Bridge) once(L *lua.LState) int {
	return b.subscribe(L, true)
}

func (b *Bridge) subscribe(L *lua.LState, once bool) int {
	name := topic.Topic(L.CheckString(1))
	handler := L.CheckFunction(2)

	if err := name.Validate(); err != nil {
		L.ArgError(1, err.Error())
		return 0
	}

	var l *event.Listener
	callback := func(ctx context.Context, _ topic.Topic, args []any) error {
		return b.call(ctx, handler, func(L *lua.LState) []lua.LValue {
			// Runs with lmu held, which untrack needs for handlerTbl.
			if once {
				b.mu.Lock()
				id := l.ID()
				b.mu.Unlock()
				b.untrack(id)
			}
			values := make([]lua.LValue, len(args))
			for i, arg := range args {
				values[i] = toLValue(L, arg)
			}
			return values
		})
	}

	// Hold mu until l is tracked so a concurrent emission sees it.
	b.mu.Lock()
	var err error
	if once {
		l, err = b.emitter.OnceTopic(name, callback)
	} else {
		l, err = b.emitter.OnTopic(name, callback)
	}
	if err == nil {
		b.trackLocked(l, handler)
	}
	b.mu.Unlock()

	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	L.Push(lua.LString(l.ID()))
	return 1
}

// on_any(handler [, pattern]) -> id
// The handler receives (name, {args}). A pattern restricts it to matching keys.
func (b *Bridge) onAny(L *lua.LState) int {
	handler := L.CheckFunction(1)
	pattern := L.OptString(2, "")

	fn := func(ctx context.Context, name topic.Topic, args []any) error {
		return b.call(ctx, handler, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(name), toLValue(L, args)}
		})
	}
	if pattern != "" {
		fn = event.Filtered(event.FilterByTopic(topic.Topic(pattern)), fn)
	}

	l := b.emitter.OnAny(fn)
	b.track(l, handler)

	L.Push(lua.LString(l.ID()))
	return 1
}

// off(id) -> bool
// Removes a registration made by this script. Also installed as off_any.
func (b *Bridge) off(L *lua.LState) int {
	id := L.CheckString(1)

	l, ok := b.untrack(id)
	if ok {
		b.emitter.Detach(l)
	}

	L.Push(lua.LBool(ok))
	return 1
}

// emit(name, ...) -> nil
// Raises a Lua error if a handler fails.
func (b *Bridge) emit(L *lua.LState) int {
	name := topic.Topic(L.CheckString(1))

	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, fromLValue(L.Get(i)))
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ownerKey{}, b)

	if err := b.emitter.EmitTopic(ctx, name, args...); err != nil {
		L.RaiseError("emit %s: %s", name, err.Error())
	}
	return 0
}

// listener_count(name) -> number
func (b *Bridge) listenerCount(L *lua.LState) int {
	name := topic.Topic(L.CheckString(1))
	L.Push(lua.LNumber(b.emitter.ListenerCount(name)))
	return 1
}

// ownerKey marks a context whose emission started inside this bridge's Lua
// state, on a goroutine that already holds lmu.
type ownerKey struct{}

// call invokes a Lua handler with the values built by args.
func (b *Bridge) call(ctx context.Context, handler *lua.LFunction, args func(L *lua.LState) []lua.LValue) error {
	if owner, _ := ctx.Value(ownerKey{}).(*Bridge); owner != b {
		b.lmu.Lock()
		defer b.lmu.Unlock()
	}

	if b.isClosed() {
		return nil // Script unloaded
	}

	L := b.L
	err := L.CallByParam(lua.P{
		Fn:      handler,
		NRet:    0,
		Protect: true,
	}, args(L)...)
	if err != nil {
		b.logger.Warn("lua handler failed", zap.Error(err))
		return fmt.Errorf("script %s: %w", b.name, err)
	}
	return nil
}
