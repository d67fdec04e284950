package character

import (
	"errors"
	"time"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// SendOptions controls how Send delivers a packet.
type SendOptions struct {
	// Immediate writes the packet now instead of queueing it. It fails with
	// ErrNotConnected unless the session is connected.
	Immediate bool
	// ResendOnReconnect keeps the packet until its interaction ends and sends
	// it again after a reconnect.
	ResendOnReconnect bool
}

// Send queues p for delivery, or writes it now with opts.Immediate. Queued
// packets are sent in order once the session is connected; a queued send
// starts the connection when the client is idle.
func (c *Client) Send(p *protocol.Packet, opts SendOptions) error {
	if p == nil {
		return errors.New("character: nil packet")
	}
	if c.closed.Load() {
		return ErrClosed
	}
	c.stamp(p, opts)

	if opts.Immediate {
		if c.Status() != StatusConnected {
			return ErrNotConnected
		}
		return c.transmit(p)
	}

	if c.Status() == StatusConnected && !p.CanResolve(c.registry) {
		return ErrNoResolvableTarget
	}
	if !c.outgoing.Push(p) {
		return ErrClosed
	}
	c.Start()
	return nil
}

// stamp fills in routing defaults before a packet is queued.
func (c *Client) stamp(p *protocol.Packet, opts SendOptions) {
	c.stampSource(p)
	if !c.groupChat && len(p.OutgoingTargets) > 1 {
		p.OutgoingTargets = p.OutgoingTargets[:1]
	}
	toWorld := p.Routing.Target != nil && p.Routing.Target.Type == protocol.SourceWorld
	if c.conversationID != "" && len(p.OutgoingTargets) == 0 && !toWorld && p.PacketID.ConversationID == "" {
		p.PacketID.ConversationID = c.conversationID
	}
	if opts.ResendOnReconnect && p.PacketID.CorrelationID == "" {
		p.PacketID.CorrelationID = protocol.NewID()
	}
}

// stampSource marks packets without a source as sent by the player.
func (c *Client) stampSource(p *protocol.Packet) {
	if p.Routing.Source.Name == "" && p.Routing.Source.Type == protocol.SourceNone {
		p.Routing.Source = protocol.Source{Name: c.player, Type: protocol.SourcePlayer}
	}
}

// transmit resolves and writes one packet, then notifies OnPacketSent
// observers. Packets with a correlation id are kept for resend until their
// interaction ends; others get a fresh one.
func (c *Client) transmit(p *protocol.Packet) error {
	if err := c.transmitLocked(p); err != nil {
		return err
	}
	c.packetSent.emit(p)
	return nil
}

func (c *Client) transmitLocked(p *protocol.Packet) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := p.PrepareToSend(c.registry); err != nil {
		return err
	}
	track := p.PacketID.CorrelationID != ""
	if !track {
		p.PacketID.CorrelationID = protocol.NewID()
	}
	if err := c.write(p); err != nil {
		return err
	}
	if track {
		if evicted := c.awaiting.Add(p.PacketID.CorrelationID, p); evicted > 0 {
			c.logger.Warn("character resend buffer full, dropped oldest", "evicted", evicted)
		}
	}
	return nil
}

// writeDirect sends a session packet that is never queued or tracked.
func (c *Client) writeDirect(p *protocol.Packet) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.stampSource(p)
	if err := p.PrepareToSend(c.registry); err != nil {
		return err
	}
	return c.write(p)
}

func (c *Client) write(p *protocol.Packet) error {
	data, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	return c.transport.Send(data)
}

// flush sends everything queued, in order. Unresolvable packets are dropped.
// On a transport failure the unsent remainder goes back to the head of the
// queue.
func (c *Client) flush() {
	pending := c.outgoing.Drain()
	for i, p := range pending {
		err := c.transmit(p)
		if err == nil {
			continue
		}
		if errors.Is(err, protocol.ErrNoResolvableTarget) {
			c.logger.Warn("character packet dropped, no live target",
				"targets", p.OutgoingTargets,
				"packet_id", p.PacketID.PacketID,
			)
			continue
		}
		var encErr *protocol.DecodeError
		if errors.As(err, &encErr) {
			c.logger.Warn("character packet dropped", "packet_id", p.PacketID.PacketID, "error", err)
			continue
		}
		c.outgoing.Requeue(pending[i:])
		c.fail(asCoreError(err))
		return
	}
}

// SendText sends typed text to the given characters.
func (c *Client) SendText(text string, brainNames ...string) error {
	return c.Send(protocol.NewTextPacket(text, brainNames...), SendOptions{ResendOnReconnect: true})
}

// SendNarrativeAction sends a narrated player action.
func (c *Client) SendNarrativeAction(content string, brainNames ...string) error {
	return c.Send(protocol.NewNarrativeActionPacket(content, brainNames...), SendOptions{ResendOnReconnect: true})
}

// SendTrigger fires a named trigger.
func (c *Client) SendTrigger(name string, params []protocol.TriggerParameter, brainNames ...string) error {
	return c.Send(protocol.NewTriggerPacket(name, params, brainNames...), SendOptions{ResendOnReconnect: true})
}

func (c *Client) SendAudioSessionStart(mode protocol.MicrophoneMode, brainNames ...string) error {
	return c.Send(protocol.NewAudioSessionStartPacket(mode, brainNames...), SendOptions{})
}

func (c *Client) SendAudioSessionEnd(brainNames ...string) error {
	return c.Send(protocol.NewAudioSessionEndPacket(brainNames...), SendOptions{})
}

// SendAudio streams one encoded audio chunk. Audio is only useful live, so
// it is written immediately.
func (c *Client) SendAudio(chunk []byte, brainNames ...string) error {
	return c.Send(protocol.NewAudioPacket(chunk, brainNames...), SendOptions{Immediate: true})
}

// SendPerceivedLatency reports the latency the player perceived.
func (c *Client) SendPerceivedLatency(precision protocol.LatencyPrecision, latency time.Duration) error {
	return c.Send(protocol.NewPerceivedLatencyPacket(precision, latency), SendOptions{})
}

// CancelResponses interrupts an interaction. IsPlayerCancelling stays true
// until the interaction ends.
func (c *Client) CancelResponses(interactionID string, utteranceIDs []string, brainNames ...string) error {
	if err := c.Send(protocol.NewCancelResponsesPacket(interactionID, utteranceIDs, brainNames...), SendOptions{}); err != nil {
		return err
	}
	c.cancelling.Store(true)
	return nil
}

func (c *Client) Regenerate(interactionID string, brainNames ...string) error {
	return c.Send(protocol.NewRegeneratePacket(interactionID, brainNames...), SendOptions{})
}

func (c *Client) ApplyResponse(selected protocol.PacketID, brainNames ...string) error {
	return c.Send(protocol.NewApplyResponsePacket(selected, brainNames...), SendOptions{})
}

// LoadScene replaces the live scene. The registry is refreshed when the
// server answers with the new scene status.
func (c *Client) LoadScene(sceneName string) error {
	c.mu.Lock()
	c.scene = sceneName
	c.mu.Unlock()
	return c.Send(protocol.NewLoadScenePacket(sceneName), SendOptions{})
}

// LoadCharacters adds characters to the live session.
func (c *Client) LoadCharacters(brainNames ...string) error {
	return c.Send(protocol.NewLoadCharactersPacket(c.language, brainNames...), SendOptions{})
}

// UnloadCharacters removes characters from the live session.
func (c *Client) UnloadCharacters(brainNames ...string) error {
	var agents []protocol.CharacterData
	for _, brain := range brainNames {
		if agentID, ok := c.registry.Resolve(brain); ok {
			agents = append(agents, protocol.CharacterData{AgentID: agentID, BrainName: brain})
		}
	}
	if len(agents) == 0 {
		return ErrNoResolvableTarget
	}
	if err := c.Send(protocol.NewUnloadCharactersPacket(agents), SendOptions{}); err != nil {
		return err
	}
	c.registry.Remove(brainNames...)
	return nil
}

// UnloadScene detaches every character. Metadata is kept, so a later
// scene status rebinds them.
func (c *Client) UnloadScene() error {
	if err := c.UnloadCharacters(c.registry.Loaded()...); err != nil {
		return err
	}
	c.registry.UnloadAll()
	return nil
}

// NextTurn lets the next character of a group conversation speak. It needs
// a conversation with more than one loaded character and no cancel in
// flight.
func (c *Client) NextTurn() error {
	switch {
	case c.conversationID == "" || !c.groupChat:
		return core.NewPreconditionError("next turn needs a group conversation")
	case c.cancelling.Load():
		return core.NewPreconditionError("a cancel is still waiting for its interaction to end")
	case len(c.registry.Loaded()) < 2:
		return core.NewPreconditionError("next turn needs at least two loaded characters")
	}
	return c.Send(protocol.NewTriggerPacket(protocol.TriggerNextTurn, nil), SendOptions{})
}

// CreateOrUpdateItems writes items by id and adds them to the named
// entities.
func (c *Client) CreateOrUpdateItems(items []protocol.EntityItem, addToEntities []string) error {
	if len(items) == 0 || len(addToEntities) == 0 {
		return ErrNoItems
	}
	return c.Send(protocol.NewCreateOrUpdateItemsPacket(items, addToEntities), SendOptions{})
}

func (c *Client) AddItemsToEntities(itemIDs, entityNames []string) error {
	return c.itemsInEntities(protocol.ItemsInEntitiesAdd, itemIDs, entityNames)
}

func (c *Client) RemoveItemsFromEntities(itemIDs, entityNames []string) error {
	return c.itemsInEntities(protocol.ItemsInEntitiesRemove, itemIDs, entityNames)
}

// ReplaceItemsEntities empties the named entities and fills them with
// itemIDs.
func (c *Client) ReplaceItemsEntities(itemIDs, entityNames []string) error {
	return c.itemsInEntities(protocol.ItemsInEntitiesReplace, itemIDs, entityNames)
}

// DestroyItems removes items from the session and from every entity.
func (c *Client) DestroyItems(itemIDs []string) error {
	if len(itemIDs) == 0 {
		return ErrNoItems
	}
	return c.Send(protocol.NewDestroyItemsPacket(itemIDs), SendOptions{})
}

func (c *Client) itemsInEntities(op protocol.ItemsInEntitiesType, itemIDs, entityNames []string) error {
	if len(itemIDs) == 0 || len(entityNames) == 0 {
		return ErrNoItems
	}
	return c.Send(protocol.NewItemsInEntitiesPacket(op, itemIDs, entityNames), SendOptions{})
}
