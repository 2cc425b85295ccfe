package event

import (
	"context"
	"iter"
	"sync"
)

// Stream exposes the emissions of one key as a pull-based sequence.
//
// Each Next registers a single one-shot listener and waits for it to fire.
// Values emitted while no Next is waiting are not buffered and are lost.
// A stream holds at most one registration at a time and cannot be reused
// after Close.
type Stream[P any] struct {
	emitter *Emitter
	key     Key[P]

	mu      sync.Mutex
	pending *pendingRead[P]
	closed  bool
	done    chan struct{}
}

// pendingRead is one outstanding Next. values identifies it: the handler
// only knows the channel, never the listener it was registered as.
type pendingRead[P any] struct {
	listener *Listener
	values   chan P
}

// Events returns a stream over the emissions of k.
func Events[P any](e *Emitter, k Key[P]) *Stream[P] {
	return &Stream[P]{
		emitter: e,
		key:     k,
		done:    make(chan struct{}),
	}
}

// Next waits for the next emission of the key and returns its payload.
// If ctx ends first, the pending registration is removed and ctx.Err()
// is returned.
func (s *Stream[P]) Next(ctx context.Context) (P, error) {
	var zero P

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrStreamClosed
	}
	if s.pending != nil {
		s.mu.Unlock()
		return zero, ErrStreamBusy
	}

	// Capacity 1: the listener is one-shot, so the send never blocks.
	values := make(chan P, 1)
	l := Once(s.emitter, s.key, func(_ context.Context, v P) error {
		// Release first so the caller can Next again as soon as it has v.
		s.release(values)
		values <- v
		return nil
	})
	s.pending = &pendingRead[P]{listener: l, values: values}
	s.mu.Unlock()

	select {
	case v := <-values:
		return v, nil
	case <-ctx.Done():
		s.emitter.Off(s.key, l)
		s.release(values)
		// The listener may have fired while we were unregistering it.
		select {
		case v := <-values:
			return v, nil
		default:
		}
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrStreamClosed
	}
}

// All returns an infinite sequence over the key's emissions. Iteration ends
// when the consumer stops, ctx ends, or the stream is closed.
func (s *Stream[P]) All(ctx context.Context) iter.Seq[P] {
	return func(yield func(P) bool) {
		for {
			v, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Close removes the pending registration, if any, and wakes a waiting Next.
func (s *Stream[P]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)

	if s.pending != nil {
		s.emitter.Off(s.key, s.pending.listener)
		s.pending = nil
	}
}

// Pending reports whether a Next is waiting for an emission.
func (s *Stream[P]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// release clears the pending read that owns values, if it is still current.
func (s *Stream[P]) release(values chan P) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil && s.pending.values == values {
		s.pending = nil
	}
}
