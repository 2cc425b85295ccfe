package event

import (
	"fmt"

	"github.com/dshills/emitter/internal/event/topic"
)

// Shape describes how an emitted payload is presented to handlers.
// It is fixed when the key is declared and never inferred from the value.
type Shape int

const (
	// ShapeValue delivers the payload as a single argument. Wildcard
	// listeners receive a one-element list.
	ShapeValue Shape = iota

	// ShapeSequence marks a slice-typed payload. Handlers receive the slice
	// as one argument; wildcard listeners receive its elements as the list.
	ShapeSequence

	// ShapeArgs marks a positional argument list. Handlers receive the
	// arguments unpacked; wildcard listeners receive them as the list.
	ShapeArgs
)

// String returns a human-readable shape name.
func (s Shape) String() string {
	switch s {
	case ShapeValue:
		return "value"
	case ShapeSequence:
		return "sequence"
	case ShapeArgs:
		return "args"
	default:
		return "unknown"
	}
}

// Named is implemented by every key and by topic.Topic. Untyped emitter
// operations (Off, Clear, ListenerCount...) accept any Named value.
type Named interface {
	Name() topic.Topic
}

// Key identifies an event and binds it to its payload type P.
// Keys are small values; declare them once as package-level variables.
type Key[P any] struct {
	name      topic.Topic
	shape     Shape
	normalize func(P) []any
}

// Name returns the key's topic.
func (k Key[P]) Name() topic.Topic {
	return k.name
}

// Shape returns the key's declared payload shape.
func (k Key[P]) Shape() Shape {
	return k.shape
}

// Normalize returns the argument list wildcard listeners receive for p.
func (k Key[P]) Normalize(p P) []any {
	if k.normalize == nil {
		return []any{p}
	}
	return k.normalize(p)
}

// String implements fmt.Stringer.
func (k Key[P]) String() string {
	return fmt.Sprintf("%s(%s)", k.name, k.shape)
}

// NewKey declares a single-value key. It panics if name is not a valid
// concrete topic.
func NewKey[T any](name topic.Topic) Key[T] {
	mustValidate(name)
	return Key[T]{
		name:  name,
		shape: ShapeValue,
		normalize: func(v T) []any {
			return []any{v}
		},
	}
}

// NewSliceKey declares a sequence key whose payload is a []T.
func NewSliceKey[T any](name topic.Topic) Key[[]T] {
	mustValidate(name)
	return Key[[]T]{
		name:  name,
		shape: ShapeSequence,
		normalize: func(items []T) []any {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = item
			}
			return out
		},
	}
}

// Args is a positional argument list carried by keys from NewArgsKey.
type Args []any

// NewArgsKey declares a variadic key. Handlers registered with OnArgs
// receive the emitted arguments unpacked.
func NewArgsKey(name topic.Topic) Key[Args] {
	mustValidate(name)
	return Key[Args]{
		name:  name,
		shape: ShapeArgs,
		normalize: func(args Args) []any {
			return []any(args)
		},
	}
}

// Pair is the payload of keys declared with NewPairKey.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p *Pair[A, B]) fillArgs(args Args) bool {
	if len(args) != 2 {
		return false
	}
	first, ok := args[0].(A)
	if !ok {
		return false
	}
	second, ok := args[1].(B)
	if !ok {
		return false
	}
	p.First, p.Second = first, second
	return true
}

// NewPairKey declares a key whose handlers take two typed arguments.
func NewPairKey[A, B any](name topic.Topic) Key[Pair[A, B]] {
	mustValidate(name)
	return Key[Pair[A, B]]{
		name:  name,
		shape: ShapeArgs,
		normalize: func(p Pair[A, B]) []any {
			return []any{p.First, p.Second}
		},
	}
}

func mustValidate(name topic.Topic) {
	if err := name.Validate(); err != nil {
		panic("event: " + err.Error())
	}
}
