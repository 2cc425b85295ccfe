package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/dshills/emitter/internal/event/topic"
)

// WildcardFunc receives every emission on every key, with the key's name and
// its normalized argument list.
type WildcardFunc func(ctx context.Context, name topic.Topic, args []any) error

// Listener is a registered handler. Its identity is the pointer: every
// registration creates a new Listener, even for the same function.
type Listener struct {
	id    string
	topic topic.Topic
	once  bool

	fn   func(ctx context.Context, payload any) error
	wild WildcardFunc
}

// emission is the value handed to dispatchers for one Emit call.
type emission struct {
	topic   topic.Topic
	shape   Shape
	payload any
	args    []any
}

func newListener(name topic.Topic, fn func(ctx context.Context, payload any) error, once bool) *Listener {
	return &Listener{
		id:    uuid.NewString(),
		topic: name,
		once:  once,
		fn:    fn,
	}
}

// newTopicListener creates a keyed listener that receives the normalized
// argument list instead of the typed payload.
func newTopicListener(name topic.Topic, fn WildcardFunc, once bool) *Listener {
	return &Listener{
		id:    uuid.NewString(),
		topic: name,
		once:  once,
		wild:  fn,
	}
}

func newWildcardListener(fn WildcardFunc) *Listener {
	return &Listener{
		id:   uuid.NewString(),
		wild: fn,
	}
}

// ID returns the listener's unique identifier.
func (l *Listener) ID() string {
	return l.id
}

// Topic returns the key the listener is registered on.
// Wildcard listeners return an empty topic.
func (l *Listener) Topic() topic.Topic {
	return l.topic
}

// Once reports whether the listener fires at most once.
func (l *Listener) Once() bool {
	return l.once
}

// IsWildcard reports whether the listener receives every emission.
func (l *Listener) IsWildcard() bool {
	return l.topic == ""
}

// Handle implements dispatch.Handler.
func (l *Listener) Handle(ctx context.Context, event any) error {
	em, _ := event.(emission)
	if l.wild != nil {
		// Keyed listeners see a sequence as one argument, like typed ones.
		if l.topic != "" && em.shape == ShapeSequence {
			return l.wild(ctx, em.topic, []any{em.payload})
		}
		return l.wild(ctx, em.topic, em.args)
	}
	return l.fn(ctx, em.payload)
}
