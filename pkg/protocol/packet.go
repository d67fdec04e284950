package protocol

import (
	"errors"
	"strings"
)

// Kind tags the populated payload of a Packet. It is not sent on the wire;
// Decode derives it from the frame shape.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindControl
	KindAudio
	KindCustom
	KindEmotion
	KindAction
	KindSessionResponse
	KindOperationStatus
	KindLatencyReport
	KindLog
	KindRelation
	KindMutation
	KindItemsOperation
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindText:            "text",
	KindControl:         "control",
	KindAudio:           "audio",
	KindCustom:          "custom",
	KindEmotion:         "emotion",
	KindAction:          "action",
	KindSessionResponse: "session_response",
	KindOperationStatus: "operation_status",
	KindLatencyReport:   "latency_report",
	KindLog:             "log",
	KindRelation:        "relation",
	KindMutation:        "mutation",
	KindItemsOperation:  "items_operation",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ErrNoResolvableTarget is returned by PrepareToSend when none of the
// packet's brain names maps to a live agent.
var ErrNoResolvableTarget = errors.New("no outgoing target is registered in the live session")

// AgentResolver maps a brain name to the agent id of the current session.
type AgentResolver interface {
	Resolve(brainName string) (agentID string, ok bool)
}

// Packet is one wire event. Exactly one payload field matching Kind is set.
type Packet struct {
	Kind Kind `json:"-"`

	PacketID  PacketID `json:"packetId"`
	Routing   Routing  `json:"routing"`
	Timestamp string   `json:"timestamp"`

	Text                   *TextEvent              `json:"text,omitempty"`
	Control                *ControlEvent           `json:"control,omitempty"`
	DataChunk              *DataChunk              `json:"dataChunk,omitempty"`
	Custom                 *CustomEvent            `json:"custom,omitempty"`
	Emotion                *EmotionEvent           `json:"emotion,omitempty"`
	Action                 *ActionEvent            `json:"action,omitempty"`
	SessionControlResponse *SessionControlResponse `json:"sessionControlResponse,omitempty"`
	OperationStatus        *OperationStatus        `json:"operationStatus,omitempty"`
	LatencyReport          *LatencyReportEvent     `json:"latencyReport,omitempty"`
	Log                    *LogEvent               `json:"log,omitempty"`
	DebugInfo              *RelationEvent          `json:"debugInfo,omitempty"`
	Mutation               *MutationEvent          `json:"mutation,omitempty"`
	ItemsOperation         *ItemsOperationEvent    `json:"entitiesItemsOperation,omitempty"`

	// OutgoingTargets holds the brain names this packet is addressed to until
	// PrepareToSend resolves them into Routing.
	OutgoingTargets []string `json:"-"`
}

// newPacket stamps a fresh identity and timestamp.
func newPacket(kind Kind, targets []string) *Packet {
	return &Packet{
		Kind:            kind,
		PacketID:        NewPacketID(),
		Timestamp:       Now(),
		OutgoingTargets: compactTargets(targets),
	}
}

func compactTargets(targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// payloadKinds lists the kinds whose payload field is populated.
func (p *Packet) payloadKinds() []Kind {
	var kinds []Kind
	if p.Text != nil {
		kinds = append(kinds, KindText)
	}
	if p.Control != nil {
		kinds = append(kinds, KindControl)
	}
	if p.DataChunk != nil {
		kinds = append(kinds, KindAudio)
	}
	if p.Custom != nil {
		kinds = append(kinds, KindCustom)
	}
	if p.Emotion != nil {
		kinds = append(kinds, KindEmotion)
	}
	if p.Action != nil {
		kinds = append(kinds, KindAction)
	}
	if p.SessionControlResponse != nil {
		kinds = append(kinds, KindSessionResponse)
	}
	if p.OperationStatus != nil {
		kinds = append(kinds, KindOperationStatus)
	}
	if p.LatencyReport != nil {
		kinds = append(kinds, KindLatencyReport)
	}
	if p.Log != nil {
		kinds = append(kinds, KindLog)
	}
	if p.DebugInfo != nil {
		kinds = append(kinds, KindRelation)
	}
	if p.Mutation != nil {
		kinds = append(kinds, KindMutation)
	}
	if p.ItemsOperation != nil {
		kinds = append(kinds, KindItemsOperation)
	}
	return kinds
}

// ControlAction returns the control action, or "" for non-control packets.
func (p *Packet) ControlAction() ControlType {
	if p == nil || p.Control == nil {
		return ""
	}
	return p.Control.Action
}

// IsPingPong reports whether p is a ping-pong latency exchange.
func (p *Packet) IsPingPong() bool {
	return p != nil && p.LatencyReport != nil && p.LatencyReport.PingPong != nil
}

// IsWorldSourced reports whether the packet was produced by the scene itself.
func (p *Packet) IsWorldSourced() bool {
	return p != nil && p.Routing.Source.Type == SourceWorld
}

// PrepareToSend resolves OutgoingTargets into agent ids and rewrites Routing.
// WORLD-addressed packets pass through unchanged. Packets carrying a
// conversation id may go out as a broadcast. Conversation updates always use
// broadcast routing and list the resolved agents as participants.
func (p *Packet) PrepareToSend(resolver AgentResolver) error {
	if len(p.OutgoingTargets) == 0 && p.Routing.Target != nil && p.Routing.Target.Type == SourceWorld {
		return nil
	}
	player := p.Routing.Source.Name

	agentIDs := make([]string, 0, len(p.OutgoingTargets))
	for _, brain := range p.OutgoingTargets {
		if resolver == nil {
			break
		}
		if id, ok := resolver.Resolve(brain); ok && id != "" {
			agentIDs = append(agentIDs, id)
		}
	}

	if p.Control != nil && p.Control.ConversationUpdate != nil {
		if len(agentIDs) == 0 {
			return ErrNoResolvableTarget
		}
		participants := make([]Source, 0, len(agentIDs))
		for _, id := range agentIDs {
			participants = append(participants, NewSource(id, player))
		}
		p.Control.ConversationUpdate.Participants = participants
		p.Routing = NewRouting(player)
		return nil
	}

	if len(agentIDs) == 0 {
		if len(p.OutgoingTargets) == 0 && p.PacketID.ConversationID != "" {
			p.Routing = NewRouting(player)
			return nil
		}
		return ErrNoResolvableTarget
	}
	p.Routing = NewRouting(player, agentIDs...)
	return nil
}

// CanResolve reports whether PrepareToSend would succeed against resolver,
// without mutating the packet.
func (p *Packet) CanResolve(resolver AgentResolver) bool {
	if p == nil {
		return false
	}
	if len(p.OutgoingTargets) == 0 && p.Routing.Target != nil && p.Routing.Target.Type == SourceWorld {
		return true
	}
	if resolver != nil {
		for _, brain := range p.OutgoingTargets {
			if id, ok := resolver.Resolve(brain); ok && id != "" {
				return true
			}
		}
	}
	isConversationUpdate := p.Control != nil && p.Control.ConversationUpdate != nil
	return !isConversationUpdate && len(p.OutgoingTargets) == 0 && p.PacketID.ConversationID != ""
}
