package dispatch

import "context"

// Sequential runs handlers in order in the caller's goroutine.
type Sequential struct {
	opts options
	counters
}

// NewSequential creates a sequential dispatcher.
func NewSequential(opts ...Option) *Sequential {
	return &Sequential{opts: buildOptions(opts)}
}

// RunUntilFailure calls handlers in order and stops after the first one
// that does not succeed. The returned results end with that failure, or
// cover every handler if all succeeded.
func (s *Sequential) RunUntilFailure(ctx context.Context, event any, handlers []Handler) []Result {
	results := make([]Result, 0, len(handlers))

	for _, h := range handlers {
		s.start()
		r := call(ctx, event, h, s.opts.onPanic)
		s.finish(r)

		results = append(results, r)
		if !r.OK() {
			break
		}
	}
	return results
}

// Stats returns call statistics.
func (s *Sequential) Stats() Stats {
	return s.snapshot()
}

// Reset zeroes the statistics.
func (s *Sequential) Reset() {
	s.reset()
}
