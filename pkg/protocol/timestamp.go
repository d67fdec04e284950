package protocol

import (
	"sync"
	"time"
)

// TimestampLayout is the UTC wire format with seven fractional digits.
const TimestampLayout = "2006-01-02T15:04:05.0000000Z"

// minLatency is the floor below which latency is not perceivable.
const minLatency = 20 * time.Millisecond

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.000000000Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Now returns the current time in the wire layout.
func Now() string {
	return FormatTimestamp(time.Now())
}

// ParseTimestamp accepts any fraction width the server emits. It returns the
// zero time when nothing matches.
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// LatencyClock estimates round-trip latency from server timestamps. The first
// sample calibrates the offset between the local and server clocks.
type LatencyClock struct {
	mu         sync.Mutex
	now        func() time.Time
	offset     time.Duration
	calibrated bool
}

// NewLatencyClock returns a clock reading now, or time.Now when now is nil.
func NewLatencyClock(now func() time.Time) *LatencyClock {
	if now == nil {
		now = time.Now
	}
	return &LatencyClock{now: now}
}

// ToLatency returns the latency of a packet stamped with timestamp, never
// less than 20ms.
func (c *LatencyClock) ToLatency(timestamp string) time.Duration {
	received := ParseTimestamp(timestamp)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.calibrated {
		c.offset = now.Sub(received)
		c.calibrated = true
		return minLatency
	}
	delta := now.Sub(received) - c.offset
	if delta < minLatency {
		return minLatency
	}
	return delta
}
