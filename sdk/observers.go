package character

import (
	"sync"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// observerList is a set of callbacks. emit iterates a snapshot, so handlers
// may subscribe or unsubscribe while being called.
type observerList[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []observer[T]
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

func (l *observerList[T]) add(fn func(T)) (remove func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, observer[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *observerList[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, o := range l.entries {
		if o.id == id {
			// Copy so snapshots taken by emit stay intact.
			next := make([]observer[T], 0, len(l.entries)-1)
			next = append(next, l.entries[:i]...)
			l.entries = append(next, l.entries[i+1:]...)
			return
		}
	}
}

func (l *observerList[T]) emit(v T) {
	l.mu.Lock()
	snapshot := l.entries
	l.mu.Unlock()
	for _, o := range snapshot {
		o.fn(v)
	}
}

func (l *observerList[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// OnPacketReceived registers fn for every forwarded inbound packet. The
// returned func unsubscribes.
func (c *Client) OnPacketReceived(fn func(*protocol.Packet)) func() {
	return c.packetReceived.add(fn)
}

// OnGlobalPacketReceived registers fn for WORLD-sourced packets.
func (c *Client) OnGlobalPacketReceived(fn func(*protocol.Packet)) func() {
	return c.globalPacket.add(fn)
}

// OnStatusChanged registers fn for status changes.
func (c *Client) OnStatusChanged(fn func(Status)) func() {
	return c.statusChanged.add(fn)
}

// OnLogReceived registers fn for server log packets. Log packets are never
// forwarded to OnPacketReceived.
func (c *Client) OnLogReceived(fn func(*protocol.Packet)) func() {
	return c.logReceived.add(fn)
}

// OnPacketSent registers fn for packets queued or sent through Send, called
// once each is written to the connection. Queued packets dropped for lack of
// a live target are never reported. A packet resent after a reconnect is
// reported again.
func (c *Client) OnPacketSent(fn func(*protocol.Packet)) func() {
	return c.packetSent.add(fn)
}

// OnErrorReceived registers fn for transport and server errors.
func (c *Client) OnErrorReceived(fn func(*core.Error)) func() {
	return c.errorReceived.add(fn)
}

// OnCharacterPacket registers fn for forwarded packets related to one
// character: sent by it, or addressed to it by the player.
func (c *Client) OnCharacterPacket(brainName string, fn func(*protocol.Packet)) func() {
	if fn == nil {
		return func() {}
	}
	return c.packetReceived.add(func(p *protocol.Packet) {
		agentID, ok := c.registry.Resolve(brainName)
		if !ok || !p.Routing.IsRelated(agentID) {
			return
		}
		fn(p)
	})
}
