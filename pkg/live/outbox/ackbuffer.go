package outbox

import "sync"

// DefaultAckCapacity bounds the number of sent packets awaiting completion.
const DefaultAckCapacity = 100

// AckBuffer remembers sent items until the server completes them, so they can
// be replayed after a reconnect. When full, the oldest entry is evicted.
type AckBuffer[T any] struct {
	mu       sync.Mutex
	capacity int
	entries  []ackEntry[T]
	evicted  int
}

type ackEntry[T any] struct {
	key  string
	item T
}

// NewAckBuffer returns a buffer bounded at capacity, or DefaultAckCapacity
// when capacity is not positive.
func NewAckBuffer[T any](capacity int) *AckBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultAckCapacity
	}
	return &AckBuffer[T]{capacity: capacity}
}

// Add records item under key and returns how many entries were evicted to
// make room.
func (b *AckBuffer[T]) Add(key string, item T) (evicted int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, ackEntry[T]{key: key, item: item})
	for len(b.entries) > b.capacity {
		b.entries = b.entries[1:]
		evicted++
	}
	b.evicted += evicted
	return evicted
}

// Complete drops every entry recorded under key.
func (b *AckBuffer[T]) Complete(key string) (removed int) {
	if key == "" {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.key == key {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(b.entries[len(kept):])
	b.entries = kept
	return removed
}

// TakeAll empties the buffer and returns its items, oldest first.
func (b *AckBuffer[T]) TakeAll() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]T, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.item
	}
	b.entries = nil
	return out
}

func (b *AckBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Evicted returns the total number of entries dropped for capacity.
func (b *AckBuffer[T]) Evicted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}
