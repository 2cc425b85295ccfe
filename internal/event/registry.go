package event

import (
	"slices"
	"sync"

	"github.com/dshills/emitter/internal/event/topic"
)

// DefaultMaxListeners is the default advisory listener limit per key.
const DefaultMaxListeners = 10

// bucket holds the listeners of one key. The two collections are disjoint
// and keep insertion order.
type bucket struct {
	persistent []*Listener
	transient  []*Listener
}

func (b *bucket) count() int {
	return len(b.persistent) + len(b.transient)
}

// snapshot returns persistent listeners followed by transient ones.
func (b *bucket) snapshot() []*Listener {
	out := make([]*Listener, 0, b.count())
	out = append(out, b.persistent...)
	return append(out, b.transient...)
}

// Registry stores listeners per key plus the wildcard listeners.
// It is safe for concurrent use; the lock is never held while handlers run.
type Registry struct {
	mu           sync.RWMutex
	buckets      map[topic.Topic]*bucket
	wildcards    []*Listener
	maxListeners int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets:      make(map[topic.Topic]*bucket),
		maxListeners: DefaultMaxListeners,
	}
}

// ensure returns the bucket for name, creating it if needed.
// Caller must hold r.mu for writing.
func (r *Registry) ensure(name topic.Topic) *bucket {
	b, ok := r.buckets[name]
	if !ok {
		b = &bucket{}
		r.buckets[name] = b
	}
	return b
}

// Touch creates an empty bucket for name if none exists.
func (r *Registry) Touch(name topic.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(name)
}

// AddPersistent appends a listener that fires on every emission.
func (r *Registry) AddPersistent(name topic.Topic, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.ensure(name)
	b.persistent = append(b.persistent, l)
}

// AddTransient appends a listener that fires on the next emission only.
func (r *Registry) AddTransient(name topic.Topic, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.ensure(name)
	b.transient = append(b.transient, l)
}

// Remove deletes l from both collections of name.
// Returns false if the key or the listener is unknown.
func (r *Registry) Remove(name topic.Topic, l *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[name]
	if !ok || l == nil {
		return false
	}

	before := b.count()
	match := func(x *Listener) bool { return x == l }
	b.persistent = slices.DeleteFunc(b.persistent, match)
	b.transient = slices.DeleteFunc(b.transient, match)
	return b.count() != before
}

// ClearKey deletes the bucket for name.
func (r *Registry) ClearKey(name topic.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.buckets, name)
}

// ClearAll deletes every bucket and every wildcard listener.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buckets = make(map[topic.Topic]*bucket)
	r.wildcards = nil
}

// Count returns the number of listeners registered for name.
func (r *Registry) Count(name topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[name]
	if !ok {
		return 0
	}
	return b.count()
}

// List returns a copy of the listeners for name: persistent first, then
// transient, each in insertion order.
func (r *Registry) List(name topic.Topic) []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buckets[name]
	if !ok {
		return nil
	}
	return b.snapshot()
}

// Has reports whether name has at least one listener.
func (r *Registry) Has(name topic.Topic) bool {
	return r.Count(name) > 0
}

// Drain returns the listeners for name like List and empties the transient
// collection in the same critical section. The key's bucket is created if
// it does not exist yet.
func (r *Registry) Drain(name topic.Topic) []*Listener {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.ensure(name)
	out := b.snapshot()
	b.transient = nil
	return out
}

// AddWildcard appends a listener that receives every emission.
func (r *Registry) AddWildcard(l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcards = append(r.wildcards, l)
}

// RemoveWildcard deletes a wildcard listener.
func (r *Registry) RemoveWildcard(l *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.wildcards)
	r.wildcards = slices.DeleteFunc(r.wildcards, func(x *Listener) bool { return x == l })
	return len(r.wildcards) != before
}

// Wildcards returns a copy of the wildcard listeners in insertion order.
func (r *Registry) Wildcards() []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.wildcards)
}

// Topics returns the names of all existing buckets, sorted.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.buckets) == 0 {
		return nil
	}

	topics := make([]topic.Topic, 0, len(r.buckets))
	for t := range r.buckets {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Len returns the total number of keyed and wildcard listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.wildcards)
	for _, b := range r.buckets {
		n += b.count()
	}
	return n
}

// SetCapacityHint stores the advisory per-key listener limit.
// It is never enforced.
func (r *Registry) SetCapacityHint(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxListeners = n
}

// CapacityHint returns the advisory per-key listener limit.
func (r *Registry) CapacityHint() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.maxListeners
}
