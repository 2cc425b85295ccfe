package dispatch

import (
	"context"
	"sync"
)

// Concurrent runs every handler on its own goroutine.
type Concurrent struct {
	opts options
	counters
}

// NewConcurrent creates a concurrent dispatcher.
func NewConcurrent(opts ...Option) *Concurrent {
	return &Concurrent{opts: buildOptions(opts)}
}

// RunAll starts all handlers and blocks until every one has returned or
// panicked. results[i] belongs to handlers[i]. There is no timeout.
func (c *Concurrent) RunAll(ctx context.Context, event any, handlers []Handler) []Result {
	results := make([]Result, len(handlers))

	var wg sync.WaitGroup
	for i, h := range handlers {
		c.start()
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := call(ctx, event, h, c.opts.onPanic)
			c.finish(r)
			results[i] = r
		}()
	}
	wg.Wait()

	return results
}

// Stats returns call statistics.
func (c *Concurrent) Stats() Stats {
	return c.snapshot()
}

// Reset zeroes the statistics.
func (c *Concurrent) Reset() {
	c.reset()
}
