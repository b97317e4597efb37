// Package quota holds the process-lifetime cap on real secret-store calls.
package quota

import "go.uber.org/atomic"

// MaxRealCalls is the hard ceiling on real external fetches per process.
const MaxRealCalls = 10

// Counter counts real fetch attempts against a fixed limit.
// It starts at zero, only ever grows by one per granted attempt and never
// exceeds the limit, regardless of how many goroutines race on it.
type Counter struct {
	limit int64
	count *atomic.Int64
}

// NewCounter returns an open counter for limit attempts.
func NewCounter(limit int) *Counter {
	return &Counter{
		limit: int64(limit),
		count: atomic.NewInt64(0),
	}
}

// TryAcquire atomically checks the limit and consumes one attempt.
// On success it returns the post-increment count. When the counter is closed it
// returns the current count and false without modifying it.
func (c *Counter) TryAcquire() (int64, bool) {
	for {
		cur := c.count.Load()
		if cur >= c.limit {
			return cur, false
		}
		if c.count.CompareAndSwap(cur, cur+1) {
			return cur + 1, true
		}
	}
}

// Count returns the number of attempts consumed so far.
func (c *Counter) Count() int64 { return c.count.Load() }

// Limit returns the configured ceiling.
func (c *Counter) Limit() int64 { return c.limit }

// Closed reports whether the quota is exhausted.
func (c *Counter) Closed() bool { return c.Count() >= c.limit }

// Remaining returns the attempts left before the counter closes.
func (c *Counter) Remaining() int64 {
	if r := c.limit - c.Count(); r > 0 {
		return r
	}
	return 0
}
