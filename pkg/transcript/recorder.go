package transcript

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-go/vai-character/pkg/protocol"
)

// Session is the part of the client a Recorder observes.
type Session interface {
	SessionID() string
	OnPacketReceived(fn func(*protocol.Packet)) func()
	OnPacketSent(fn func(*protocol.Packet)) func()
}

const defaultRecorderBuffer = 256

type RecorderOption func(*Recorder)

// WithBuffer sets how many entries may wait for the store before new ones
// are dropped.
func WithBuffer(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.buffer = n
		}
	}
}

func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// Recorder copies conversational packets of a session into a Store. Observer
// callbacks never block: entries are handed to a single writer goroutine and
// dropped when its buffer is full.
type Recorder struct {
	store   Store
	session Session
	logger  *slog.Logger
	buffer  int

	mu      sync.Mutex
	closed  bool
	entries chan Entry
	done    chan struct{}
	unsub   []func()

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewRecorder(store Store, session Session, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		session: session,
		logger:  slog.Default(),
		buffer:  defaultRecorderBuffer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.entries = make(chan Entry, r.buffer)
	r.done = make(chan struct{})

	go r.write()
	r.unsub = append(r.unsub,
		session.OnPacketReceived(func(p *protocol.Packet) { r.record(DirectionIn, p) }),
		session.OnPacketSent(func(p *protocol.Packet) { r.record(DirectionOut, p) }),
	)
	return r
}

func (r *Recorder) record(dir Direction, p *protocol.Packet) {
	e, ok := FromPacket(r.session.SessionID(), dir, p)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.entries <- e:
	default:
		r.dropped.Add(1)
		r.logger.Warn("transcript buffer full, dropping entry", "kind", e.Kind, "packet_id", e.PacketID)
	}
}

func (r *Recorder) write() {
	defer close(r.done)
	for e := range r.entries {
		if err := r.store.Append(context.Background(), e); err != nil {
			r.failed.Add(1)
			r.logger.Error("transcript append failed", "error", err, "packet_id", e.PacketID)
		}
	}
}

// Dropped reports entries lost to a full buffer.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed reports entries the store rejected.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

// Close stops observing and waits for queued entries to be written. It does
// not close the store.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	unsub := r.unsub
	r.unsub = nil
	close(r.entries)
	r.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
