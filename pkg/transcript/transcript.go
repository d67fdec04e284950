// Package transcript records the conversational packets of a session so a
// chat can be reviewed or resumed later.
package transcript

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vango-go/vai-character/pkg/protocol"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Entry is one recorded utterance, action, emotion or trigger.
type Entry struct {
	ID            int64
	SessionID     string
	Direction     Direction
	Kind          string
	Source        string
	Targets       []string
	InteractionID string
	UtteranceID   string
	PacketID      string
	Text          string
	Final         bool
	At            time.Time
}

// Store persists entries. Recent returns the newest limit entries of a
// session in chronological order.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Close(ctx context.Context) error
}

var ErrClosed = errors.New("transcript store is closed")

// FromPacket converts p into an entry. Packets that carry no conversational
// content report false.
func FromPacket(sessionID string, dir Direction, p *protocol.Packet) (Entry, bool) {
	if p == nil {
		return Entry{}, false
	}
	e := Entry{
		SessionID:     sessionID,
		Direction:     dir,
		Kind:          p.Kind.String(),
		Source:        p.Routing.Source.Name,
		Targets:       targets(p),
		InteractionID: p.PacketID.InteractionID,
		UtteranceID:   p.PacketID.UtteranceID,
		PacketID:      p.PacketID.PacketID,
		At:            protocol.ParseTimestamp(p.Timestamp),
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	switch p.Kind {
	case protocol.KindText:
		if p.Text == nil {
			return Entry{}, false
		}
		e.Text = p.Text.Text
		e.Final = p.Text.Final
	case protocol.KindAction:
		if p.Action == nil || p.Action.NarratedAction == nil {
			return Entry{}, false
		}
		e.Text = p.Action.NarratedAction.Content
		e.Final = true
	case protocol.KindEmotion:
		if p.Emotion == nil {
			return Entry{}, false
		}
		e.Text = strings.TrimSpace(string(p.Emotion.Behavior) + " " + string(p.Emotion.Strength))
		e.Final = true
	case protocol.KindCustom:
		if p.Custom == nil {
			return Entry{}, false
		}
		e.Text = p.Custom.Name
		e.Final = true
	default:
		return Entry{}, false
	}
	return e, true
}

// targets prefers resolved routing and falls back to the brain names of a
// packet that has not been sent yet.
func targets(p *protocol.Packet) []string {
	r := p.Routing
	if r.Target != nil {
		return []string{r.Target.Name}
	}
	if len(r.Targets) == 0 {
		if len(p.OutgoingTargets) == 0 {
			return nil
		}
		return append([]string(nil), p.OutgoingTargets...)
	}
	out := make([]string, 0, len(r.Targets))
	for _, t := range r.Targets {
		out = append(out, t.Name)
	}
	return out
}

// MemoryStore keeps entries in process.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[string][]Entry
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

func (s *MemoryStore) Append(ctx context.Context, entries ...Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, e := range entries {
		s.nextID++
		e.ID = s.nextID
		s.entries[e.SessionID] = append(s.entries[e.SessionID], e)
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	all := s.entries[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Entry, len(all))
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
