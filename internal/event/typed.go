package event

import (
	"context"
	"fmt"
)

// HandlerFunc handles the payload of a Key[P].
type HandlerFunc[P any] func(ctx context.Context, payload P) error

// adapt erases the payload type for storage in the registry.
func adapt[P any](fn HandlerFunc[P]) func(ctx context.Context, payload any) error {
	return func(ctx context.Context, payload any) error {
		p, err := payloadAs[P](payload)
		if err != nil {
			return err
		}
		return fn(ctx, p)
	}
}

// argsFiller is implemented by payload types that can be built from a
// positional argument list.
type argsFiller interface {
	fillArgs(args Args) bool
}

// payloadAs converts an emitted payload to P. A nil interface payload is
// P's zero value. An Args payload from EmitTopic is unwrapped when it holds
// exactly one P, or filled into P when P accepts argument lists.
func payloadAs[P any](payload any) (P, error) {
	var p P
	if payload == nil {
		return p, nil
	}
	if v, ok := payload.(P); ok {
		return v, nil
	}
	if args, ok := payload.(Args); ok {
		if len(args) == 1 {
			if v, ok := args[0].(P); ok {
				return v, nil
			}
		}
		if f, ok := any(&p).(argsFiller); ok && f.fillArgs(args) {
			return p, nil
		}
	}
	return p, fmt.Errorf("%w: cannot deliver %#v as %T", ErrPayloadType, payload, p)
}

// On registers fn for every emission of k.
func On[P any](e *Emitter, k Key[P], fn HandlerFunc[P]) *Listener {
	return e.add(k.name, adapt(fn), false)
}

// Once registers fn for the next emission of k only.
func Once[P any](e *Emitter, k Key[P], fn HandlerFunc[P]) *Listener {
	return e.add(k.name, adapt(fn), true)
}

// OnAsync is an alias for On. Every handler can be emitted to both
// synchronously and asynchronously.
func OnAsync[P any](e *Emitter, k Key[P], fn HandlerFunc[P]) *Listener {
	return On(e, k, fn)
}

// Emit delivers v to the key's listeners and then to the wildcard listeners,
// one after another in the caller's goroutine. The first handler that
// returns an error or panics stops the emission; its failure is returned as
// a *HandlerError or *PanicError and the remaining handlers are skipped.
func Emit[P any](ctx context.Context, e *Emitter, k Key[P], v P) error {
	return e.emit(ctx, k.name, k.shape, v, k.Normalize(v))
}

// EmitAsync runs every listener of k and every wildcard listener on its own
// goroutine and waits until all of them have returned. If any failed, the
// result is an *AggregateError holding every failure.
func EmitAsync[P any](ctx context.Context, e *Emitter, k Key[P], v P) error {
	return e.emitAsync(ctx, k.name, k.shape, v, k.Normalize(v))
}

// ArgsFunc handles the unpacked arguments of an args key.
type ArgsFunc func(ctx context.Context, args ...any) error

func adaptArgs(fn ArgsFunc) HandlerFunc[Args] {
	return func(ctx context.Context, args Args) error {
		return fn(ctx, args...)
	}
}

// OnArgs registers fn for every emission of an args key.
func OnArgs(e *Emitter, k Key[Args], fn ArgsFunc) *Listener {
	return On(e, k, adaptArgs(fn))
}

// OnceArgs registers fn for the next emission of an args key.
func OnceArgs(e *Emitter, k Key[Args], fn ArgsFunc) *Listener {
	return Once(e, k, adaptArgs(fn))
}

// EmitArgs emits positional arguments synchronously.
func EmitArgs(ctx context.Context, e *Emitter, k Key[Args], args ...any) error {
	return Emit(ctx, e, k, Args(args))
}

// EmitArgsAsync emits positional arguments asynchronously.
func EmitArgsAsync(ctx context.Context, e *Emitter, k Key[Args], args ...any) error {
	return EmitAsync(ctx, e, k, Args(args))
}

// PairFunc handles the two arguments of a pair key.
type PairFunc[A, B any] func(ctx context.Context, first A, second B) error

func adaptPair[A, B any](fn PairFunc[A, B]) HandlerFunc[Pair[A, B]] {
	return func(ctx context.Context, p Pair[A, B]) error {
		return fn(ctx, p.First, p.Second)
	}
}

// OnPair registers fn for every emission of a pair key.
func OnPair[A, B any](e *Emitter, k Key[Pair[A, B]], fn PairFunc[A, B]) *Listener {
	return On(e, k, adaptPair(fn))
}

// OncePair registers fn for the next emission of a pair key.
func OncePair[A, B any](e *Emitter, k Key[Pair[A, B]], fn PairFunc[A, B]) *Listener {
	return Once(e, k, adaptPair(fn))
}

// EmitPair emits two arguments synchronously.
func EmitPair[A, B any](ctx context.Context, e *Emitter, k Key[Pair[A, B]], first A, second B) error {
	return Emit(ctx, e, k, Pair[A, B]{First: first, Second: second})
}

// EmitPairAsync emits two arguments asynchronously.
func EmitPairAsync[A, B any](ctx context.Context, e *Emitter, k Key[Pair[A, B]], first A, second B) error {
	return EmitAsync(ctx, e, k, Pair[A, B]{First: first, Second: second})
}
