package protocol

import "github.com/google/uuid"

// PacketID is the identity triple carried by every packet. ConversationID and
// CorrelationID are optional and omitted from the wire when empty.
type PacketID struct {
	ConversationID string `json:"conversationId,omitempty"`
	CorrelationID  string `json:"correlationId,omitempty"`
	InteractionID  string `json:"interactionId"`
	PacketID       string `json:"packetId"`
	UtteranceID    string `json:"utteranceId"`
}

// NewPacketID returns an identity with fresh interaction, packet and utterance ids.
func NewPacketID() PacketID {
	return PacketID{
		InteractionID: NewID(),
		PacketID:      NewID(),
		UtteranceID:   NewID(),
	}
}

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

func (id PacketID) String() string {
	return "I: " + id.InteractionID + " U: " + id.UtteranceID + " P: " + id.PacketID
}
