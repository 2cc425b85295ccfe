package dispatch

import (
	"sync/atomic"
	"time"
)

// Stats counts handler calls made by a dispatcher.
type Stats struct {
	Calls     uint64
	Succeeded uint64
	Failed    uint64
	Panicked  uint64

	// InFlight is the number of handlers running now.
	InFlight int

	// Busy is the total time spent inside handlers.
	Busy time.Duration
}

// Average returns the mean handler duration.
func (s Stats) Average() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Busy / time.Duration(s.Calls)
}

type counters struct {
	calls     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	inFlight  atomic.Int64
	busyNs    atomic.Int64
}

func (c *counters) start() {
	c.calls.Add(1)
	c.inFlight.Add(1)
}

func (c *counters) finish(r Result) {
	c.inFlight.Add(-1)
	c.busyNs.Add(r.Duration.Nanoseconds())

	switch r.Outcome {
	case Succeeded:
		c.succeeded.Add(1)
	case Failed:
		c.failed.Add(1)
	case Panicked:
		c.panicked.Add(1)
	}
}

// snapshot reads each counter atomically; the set as a whole may be
// slightly inconsistent while handlers are running.
func (c *counters) snapshot() Stats {
	return Stats{
		Calls:     c.calls.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Panicked:  c.panicked.Load(),
		InFlight:  int(c.inFlight.Load()),
		Busy:      time.Duration(c.busyNs.Load()),
	}
}

// reset zeroes the totals. InFlight is left alone.
func (c *counters) reset() {
	c.calls.Store(0)
	c.succeeded.Store(0)
	c.failed.Store(0)
	c.panicked.Store(0)
	c.busyNs.Store(0)
}
