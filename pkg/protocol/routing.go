package protocol

// SourceType identifies who produced or receives a packet.
type SourceType string

const (
	SourceNone   SourceType = ""
	SourceAgent  SourceType = "AGENT"
	SourcePlayer SourceType = "PLAYER"
	SourceWorld  SourceType = "WORLD"
)

// WorldName is the reserved routing name for scene-wide packets.
const WorldName = "WORLD"

// Source is a routing endpoint. Two sources are the same endpoint when their
// names match.
type Source struct {
	Name string     `json:"name"`
	Type SourceType `json:"type"`
}

// NewSource classifies name relative to the local player name.
func NewSource(name, player string) Source {
	switch {
	case name != "" && name == player:
		return Source{Name: name, Type: SourcePlayer}
	case name == WorldName:
		return Source{Name: name, Type: SourceWorld}
	default:
		return Source{Name: name, Type: SourceAgent}
	}
}

// Equal reports whether s and other name the same endpoint.
func (s Source) Equal(other Source) bool {
	return s.Name == other.Name
}

// Routing carries the source and at most one of target or targets. Neither
// means broadcast.
type Routing struct {
	Source  Source   `json:"source"`
	Target  *Source  `json:"target,omitempty"`
	Targets []Source `json:"targets,omitempty"`
}

// NewRouting builds player-sourced routing to the given agent ids. One id sets
// Target, several set Targets, none is a broadcast.
func NewRouting(player string, agentIDs ...string) Routing {
	r := Routing{Source: NewSource(player, player)}
	if player == "" {
		r.Source.Type = SourcePlayer
	}
	switch len(agentIDs) {
	case 0:
	case 1:
		target := NewSource(agentIDs[0], player)
		r.Target = &target
	default:
		r.Targets = make([]Source, 0, len(agentIDs))
		for _, id := range agentIDs {
			r.Targets = append(r.Targets, NewSource(id, player))
		}
	}
	return r
}

// IsBroadcast reports whether no single target is set.
func (r Routing) IsBroadcast() bool {
	return r.Target == nil || r.Target.Name == ""
}

// IsSource reports whether agentID produced the packet.
func (r Routing) IsSource(agentID string) bool {
	return agentID != "" && r.Source.Name == agentID
}

// IsTarget reports whether agentID is the target or one of the targets.
func (r Routing) IsTarget(agentID string) bool {
	if agentID == "" {
		return false
	}
	if r.Target != nil && r.Target.Name == agentID {
		return true
	}
	for _, t := range r.Targets {
		if t.Name == agentID {
			return true
		}
	}
	return false
}

// IsRelated reports whether the packet concerns agentID: as target for
// player-sourced packets, as source otherwise.
func (r Routing) IsRelated(agentID string) bool {
	if r.Source.Type == SourcePlayer {
		return r.IsTarget(agentID)
	}
	return r.IsSource(agentID)
}
