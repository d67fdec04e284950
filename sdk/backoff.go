package character

import "time"

const (
	defaultBackoffBase = time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// backoff tracks the reconnect threshold. Each failure doubles the threshold
// until base*threshold reaches max, and arms a timer for that delay.
type backoff struct {
	base      time.Duration
	max       time.Duration
	threshold int
	until     time.Time
}

func newBackoff(base, max time.Duration) backoff {
	if base <= 0 {
		base = defaultBackoffBase
	}
	if max < base {
		max = base
	}
	return backoff{base: base, max: max, threshold: 1}
}

// fail records a failure at now. retryAfter, when set, overrides the computed
// delay. It returns the armed delay.
func (b *backoff) fail(now time.Time, retryAfter *time.Duration) time.Duration {
	if b.base*time.Duration(b.threshold) < b.max {
		b.threshold *= 2
	}
	delay := b.delay()
	if retryAfter != nil && *retryAfter >= 0 {
		delay = *retryAfter
	}
	b.until = now.Add(delay)
	return delay
}

func (b *backoff) delay() time.Duration {
	d := b.base * time.Duration(b.threshold)
	if d > b.max {
		return b.max
	}
	return d
}

func (b *backoff) elapsed(now time.Time) bool {
	return !now.Before(b.until)
}

// reset returns the threshold to its floor and disarms the timer.
func (b *backoff) reset() {
	b.threshold = 1
	b.until = time.Time{}
}
