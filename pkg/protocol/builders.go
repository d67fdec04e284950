package protocol

import (
	"encoding/base64"
	"fmt"
	"time"
)

// NewTextPacket addresses typed text to the given brain names.
func NewTextPacket(text string, brainNames ...string) *Packet {
	p := newPacket(KindText, brainNames)
	p.Text = &TextEvent{Text: text, SourceType: TextSourceTypedIn, Final: true}
	return p
}

// NewNarrativeActionPacket sends a narrated player action.
func NewNarrativeActionPacket(content string, brainNames ...string) *Packet {
	p := newPacket(KindAction, brainNames)
	p.Action = &ActionEvent{NarratedAction: &NarratedAction{Content: content}}
	return p
}

// NewTriggerPacket fires a named trigger with optional parameters.
func NewTriggerPacket(name string, params []TriggerParameter, brainNames ...string) *Packet {
	p := newPacket(KindCustom, brainNames)
	p.Custom = &CustomEvent{Type: CustomTypeTrigger, Name: name, Parameters: params}
	return p
}

// NewCancelResponsesPacket interrupts an interaction. Empty utteranceIDs
// cancels the whole interaction.
func NewCancelResponsesPacket(interactionID string, utteranceIDs []string, brainNames ...string) *Packet {
	p := newPacket(KindMutation, brainNames)
	p.Mutation = &MutationEvent{CancelResponses: &CancelResponses{
		InteractionID: interactionID,
		UtteranceID:   utteranceIDs,
	}}
	return p
}

func NewRegeneratePacket(interactionID string, brainNames ...string) *Packet {
	p := newPacket(KindMutation, brainNames)
	p.Mutation = &MutationEvent{RegenerateResponse: &RegenerateResponse{InteractionID: interactionID}}
	return p
}

// NewApplyResponsePacket selects one of several candidate responses.
func NewApplyResponsePacket(selected PacketID, brainNames ...string) *Packet {
	p := newPacket(KindMutation, brainNames)
	p.Mutation = &MutationEvent{ApplyResponse: &ApplyResponse{PacketID: selected}}
	return p
}

func NewAudioSessionStartPacket(mode MicrophoneMode, brainNames ...string) *Packet {
	p := newPacket(KindControl, brainNames)
	p.Control = &ControlEvent{
		Action:            ControlAudioSessionStart,
		AudioSessionStart: &AudioSessionStartPayload{Mode: mode},
	}
	return p
}

func NewAudioSessionEndPacket(brainNames ...string) *Packet {
	p := newPacket(KindControl, brainNames)
	p.Control = &ControlEvent{Action: ControlAudioSessionEnd}
	return p
}

// NewAudioPacket wraps raw encoded audio bytes in a base64 data chunk.
func NewAudioPacket(audio []byte, brainNames ...string) *Packet {
	return NewAudioPacketBase64(base64.StdEncoding.EncodeToString(audio), brainNames...)
}

func NewAudioPacketBase64(chunk string, brainNames ...string) *Packet {
	p := newPacket(KindAudio, brainNames)
	p.DataChunk = &DataChunk{Type: DataTypeAudio, Chunk: chunk}
	return p
}

// NewConversationUpdatePacket declares the participants of a group
// conversation. Participants are filled in from the resolved agent ids.
func NewConversationUpdatePacket(conversationID string, brainNames ...string) *Packet {
	p := newPacket(KindControl, brainNames)
	p.PacketID.ConversationID = conversationID
	p.Control = &ControlEvent{
		Action:             ControlConversationUpdate,
		ConversationUpdate: &ConversationUpdatePayload{},
	}
	return p
}

// NewLoadScenePacket asks the server to load a full scene. It is routed to WORLD.
func NewLoadScenePacket(sceneName string) *Packet {
	p := newWorldPacket(KindMutation)
	p.Mutation = &MutationEvent{LoadScene: &LoadScene{Name: sceneName}}
	return p
}

// NewLoadCharactersPacket loads individual characters instead of a scene.
func NewLoadCharactersPacket(language string, brainNames ...string) *Packet {
	p := newWorldPacket(KindMutation)
	names := make([]CharacterName, 0, len(brainNames))
	for _, brain := range compactTargets(brainNames) {
		names = append(names, CharacterName{Name: brain, LanguageCode: language})
	}
	p.Mutation = &MutationEvent{LoadCharacters: &LoadCharacters{Name: names}}
	return p
}

func NewUnloadCharactersPacket(agents []CharacterData) *Packet {
	p := newWorldPacket(KindMutation)
	p.Mutation = &MutationEvent{UnloadCharacters: &UnloadCharacters{Agents: agents}}
	return p
}

// NewSessionConfigPacket is the first packet sent on a fresh connection.
func NewSessionConfigPacket(cfg SessionConfigurationPayload) *Packet {
	p := newWorldPacket(KindControl)
	p.Control = &ControlEvent{
		Action:               ControlSessionConfiguration,
		SessionConfiguration: &cfg,
	}
	return p
}

// NewPongPacket answers a server ping, echoing its packet id and timestamp.
func NewPongPacket(ping PacketID, pingTimestamp string) *Packet {
	p := newWorldPacket(KindLatencyReport)
	p.LatencyReport = &LatencyReportEvent{PingPong: &PingPongReport{
		Type:          PingPongPong,
		PingPacketID:  &ping,
		PingTimestamp: pingTimestamp,
	}}
	return p
}

// NewPerceivedLatencyPacket reports the latency the player perceived.
func NewPerceivedLatencyPacket(precision LatencyPrecision, latency time.Duration) *Packet {
	p := newWorldPacket(KindLatencyReport)
	p.LatencyReport = &LatencyReportEvent{PerceivedLatency: &PerceivedLatencyReport{
		Precision: precision,
		Latency:   FormatDuration(latency),
	}}
	return p
}

// FormatDuration renders d as protobuf JSON duration seconds, e.g. "0.250s".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func newWorldPacket(kind Kind) *Packet {
	p := newPacket(kind, nil)
	world := Source{Name: WorldName, Type: SourceWorld}
	p.Routing.Target = &world
	return p
}
