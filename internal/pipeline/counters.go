package pipeline

import (
	"sync/atomic"
)

// TeamCounters holds one team's delivery outcomes. Only that team's
// worker writes; the health reporter reads concurrently, so all access
// is atomic.
type TeamCounters struct {
	success atomic.Uint64
	failure atomic.Uint64
	dropped atomic.Uint64
}

// Snapshot is a point-in-time copy of one team's counters.
type Snapshot struct {
	Success uint64
	Failure uint64
	Dropped uint64
}

func (c *TeamCounters) snapshot() Snapshot {
	return Snapshot{
		Success: c.success.Load(),
		Failure: c.failure.Load(),
		Dropped: c.dropped.Load(),
	}
}
