// Package dispatch runs a list of handlers against one emission.
//
// Sequential runs handlers one after another in the caller's goroutine and
// stops at the first handler that returns an error or panics. Concurrent
// starts every handler on its own goroutine and waits for all of them;
// a failing handler never affects the others.
//
// Both recover panics, report them in the Result, and pass them to an
// optional PanicHandler:
//
//	seq := dispatch.NewSequential(dispatch.WithPanicHandler(onPanic))
//	results := seq.RunUntilFailure(ctx, ev, handlers)
//	if last := results[len(results)-1]; !last.OK() {
//	    // last.Outcome is Failed or Panicked
//	}
package dispatch
