// Package event provides a typed publish/subscribe emitter.
//
// Every event is identified by a Key, a named value that binds the event to
// its payload type. Keys are declared once and shared by producers and
// consumers, so a handler can never be registered with the wrong payload
// type:
//
//	var UserCreated = event.NewKey[User]("user.created")
//
//	event.On(em, UserCreated, func(ctx context.Context, u User) error {
//	    log.Printf("welcome %s", u.Name)
//	    return nil
//	})
//
//	err := event.Emit(ctx, em, UserCreated, User{Name: "ada"})
//
// # Key Shapes
//
// The payload shape is part of the key declaration:
//
//	NewKey[T]        - one value, handlers take T
//	NewSliceKey[T]   - a []T, handlers take the whole slice
//	NewArgsKey       - positional arguments, handlers registered with OnArgs
//	NewPairKey[A, B] - two typed arguments, handlers registered with OnPair
//
// The shape also decides what wildcard listeners receive: a one-element
// list for value keys, the elements for slice keys, and the arguments for
// args and pair keys.
//
// # Listeners
//
// On registers a persistent listener and Once a one-shot listener. Both
// return a *Listener handle; pass it to Off to unregister. Registering the
// same function twice creates two independent listeners.
//
// OnAny registers a wildcard listener that sees every emission on every key
// with the key name and its argument list. Wrap it with Filtered to restrict
// it to a topic pattern:
//
//	em.OnAny(event.Filtered(event.FilterByTopic("fs.*"), logEmission))
//
// # Delivery
//
// Emit runs the key's listeners and then the wildcard listeners in the
// caller's goroutine, persistent listeners first, then one-shot listeners,
// each in registration order. One-shot listeners are removed before any
// handler runs, so they fire at most once even when handlers emit
// re-entrantly. The first handler error or panic aborts the emission and is
// returned as a *HandlerError or *PanicError.
//
// EmitAsync starts every handler concurrently and waits for all of them.
// Failures do not stop the others; they are collected into an
// *AggregateError.
//
// # Streams
//
// Events returns a Stream that turns a key into a pull-based sequence.
// Each Next registers a single one-shot listener and waits for it, so
// values emitted while nobody is waiting are not buffered:
//
//	s := event.Events(em, UserCreated)
//	defer s.Close()
//	for u := range s.All(ctx) {
//	    fmt.Println(u.Name)
//	}
//
// # Thread Safety
//
// An Emitter is safe for concurrent use. The registry lock is never held
// while handlers run, so handlers may register, unregister and emit.
package event
