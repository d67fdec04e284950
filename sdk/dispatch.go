package character

import (
	"context"
	"log/slog"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// handleFrame decodes one inbound frame and dispatches it.
func (c *Client) handleFrame(data []byte) {
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		c.logger.Warn("character frame dropped", "error", err, "bytes", len(data))
		c.errorReceived.emit(core.NewDecodeError(err.Error(), err))
		return
	}
	if resp.Error != nil {
		c.fail(resp.Error.Err())
		return
	}

	p := resp.Result
	if p.Kind == protocol.KindUnknown {
		c.logger.Warn("character packet of unknown kind", "packet_id", p.PacketID.PacketID)
	}
	if c.consume(p) {
		return
	}
	if p.IsWorldSourced() {
		c.globalPacket.emit(p)
	}
	c.packetReceived.emit(p)
}

// consume handles session-level packets. It reports true for packets that
// are not forwarded to observers.
func (c *Client) consume(p *protocol.Packet) bool {
	switch {
	case p.Log != nil:
		c.logger.Log(context.Background(), logLevel(p.Log.Level), "character server log",
			"text", p.Log.Text,
			"source", p.Routing.Source.Name,
		)
		c.logReceived.emit(p)
		return true

	case p.LatencyReport != nil:
		if ping := p.LatencyReport.PingPong; ping != nil && ping.Type != protocol.PingPongPong {
			c.pingLatency.Store(int64(c.latency.ToLatency(p.Timestamp)))
			if err := c.writeDirect(protocol.NewPongPacket(p.PacketID, p.Timestamp)); err != nil {
				c.logger.Warn("character pong failed", "error", err)
			}
		}
		return true

	case p.SessionControlResponse != nil:
		return true

	case p.Control != nil:
		switch p.Control.Action {
		case protocol.ControlWarning:
			c.logger.Warn("character server warning", "description", p.Control.Description)
			return true
		case protocol.ControlInteractionEnd:
			c.finishInteraction(p)
		case protocol.ControlCurrentSceneStatus:
			c.onSceneStatus(p)
		}
	}
	return false
}

// finishInteraction drops acked packets of the interaction.
func (c *Client) finishInteraction(p *protocol.Packet) {
	c.awaiting.Complete(p.PacketID.CorrelationID)
	c.cancelling.Store(false)
}

// onSceneStatus binds the loaded agents and completes the connection. Packets
// awaiting completion are resent ahead of anything queued since.
func (c *Client) onSceneStatus(p *protocol.Packet) {
	status := p.Control.CurrentSceneStatus
	if status == nil {
		c.logger.Error("character scene status without payload", "packet_id", p.PacketID.PacketID)
		return
	}
	n := c.registry.Register(status.Agents)
	c.logger.Info("character scene loaded", "scene", status.SceneName, "agents", n)
	if status.SceneName != "" {
		c.mu.Lock()
		c.liveScene = status.SceneName
		c.mu.Unlock()
	}

	c.setStatus(StatusConnected)
	c.backoff.reset()
	c.updateConversation()

	if resend := c.awaiting.TakeAll(); len(resend) > 0 {
		c.logger.Debug("character resending unacknowledged packets", "count", len(resend))
		c.outgoing.Requeue(resend)
	}
	if !c.paused.Load() {
		c.flush()
	}
}

// updateConversation declares the loaded characters as the participants of
// the client's conversation.
func (c *Client) updateConversation() {
	if c.conversationID == "" {
		return
	}
	brains := c.registry.Loaded()
	if len(brains) == 0 {
		return
	}
	p := protocol.NewConversationUpdatePacket(c.conversationID, brains...)
	if err := c.writeDirect(p); err != nil {
		c.logger.Warn("character conversation update failed", "error", err)
	}
}

func logLevel(level protocol.LogLevel) slog.Level {
	switch level {
	case protocol.LogWarning:
		return slog.LevelWarn
	case protocol.LogDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

