package character

import (
	"context"

	"github.com/vango-go/vai-character/pkg/auth"
	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// Reconnect starts a new session attempt if the client is Idle, Error or
// LostConnect. It also resumes a client paused by Disconnect.
func (c *Client) Reconnect() {
	if c.closed.Load() {
		return
	}
	c.paused.Store(false)
	c.Start()
	c.do(c.reconnect)
}

// GetAccessToken fetches a fresh session token without opening a
// connection. The connection opens on the next queued send or Reconnect.
func (c *Client) GetAccessToken() {
	if c.closed.Load() {
		return
	}
	c.Start()
	c.do(func() {
		if !c.Status().canReconnect() {
			return
		}
		c.setStatus(StatusInitializing)
		c.fetchToken(false)
	})
}

func (c *Client) reconnect() {
	if c.paused.Load() || c.closed.Load() || !c.Status().canReconnect() {
		return
	}
	c.setStatus(StatusInitializing)

	c.mu.RLock()
	valid := c.token.IsValid(c.now())
	c.mu.RUnlock()
	if valid {
		c.startSession()
		return
	}
	c.fetchToken(true)
}

// fetchToken requests a token off the loop. When connect is set a
// successful fetch continues straight into startSession.
func (c *Client) fetchToken(connect bool) {
	if c.tokens == nil {
		c.fail(core.NewAuthError("no token provider configured", nil))
		return
	}
	c.gen++
	gen := c.gen
	provider := c.tokens
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.connectTimeout)
		defer cancel()
		ctx, span := c.tracer.Start(ctx, "character.token")
		defer span.End()

		tok, err := provider.Token(ctx)
		if err != nil {
			span.RecordError(err)
		}
		c.inbox.Push(inbound{kind: inToken, gen: gen, token: tok, err: err, connect: connect})
	}()
}

// handleToken stores a fetched token and, for reconnects, dials.
func (c *Client) handleToken(tok *auth.Token, err error, connect bool) {
	if c.Status() != StatusInitializing {
		return
	}
	if err != nil {
		c.fail(asAuthError(err))
		return
	}
	if !tok.IsValid(c.now()) {
		c.fail(core.NewAuthError("session token is incomplete or expired", nil))
		return
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.setStatus(StatusInitialized)
	if connect && !c.paused.Load() {
		c.startSession()
	}
}

func asAuthError(err error) *core.Error {
	if coreErr := asCoreError(err); coreErr.Kind != core.ErrTransport {
		return coreErr
	}
	return core.NewAuthError(err.Error(), err)
}

// startSession dials the session endpoint with the current token.
func (c *Client) startSession() {
	if c.paused.Load() || c.closed.Load() {
		return
	}
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if !tok.IsValid(c.now()) {
		c.setStatus(StatusIdle)
		c.reconnect()
		return
	}

	c.setStatus(StatusConnecting)
	c.gen++
	gen := c.gen
	ep := Endpoint{
		URL:          c.server.SessionURL(tok.SessionID),
		Subprotocols: tok.Subprotocols(),
	}
	events := TransportEvents{
		OnOpen: func() {
			c.inbox.Push(inbound{kind: inOpen, gen: gen})
		},
		OnMessage: func(data []byte) {
			c.inbox.Push(inbound{kind: inFrame, gen: gen, data: data})
		},
		OnClose: func(code int, reason string) {
			c.inbox.Push(inbound{kind: inClose, gen: gen, code: code, reason: reason})
		},
		OnError: func(err error) {
			c.inbox.Push(inbound{kind: inTransportError, gen: gen, err: err})
		},
	}

	transport := c.transport
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.connectTimeout)
		defer cancel()
		ctx, span := c.tracer.Start(ctx, "character.connect")
		defer span.End()

		if err := transport.Connect(ctx, ep, events); err != nil {
			span.RecordError(err)
			c.inbox.Push(inbound{kind: inDialFailed, gen: gen, err: err})
		}
	}()
}

// handleOpen prepares a fresh connection: session configuration first, then
// the scene or the configured characters. A session with nothing to load
// fails with a precondition error.
func (c *Client) handleOpen() {
	if c.Status() != StatusConnecting {
		return
	}
	c.mu.RLock()
	scene, history := c.scene, c.history
	c.mu.RUnlock()

	var load *protocol.Packet
	switch {
	case scene != "":
		load = protocol.NewLoadScenePacket(scene)
	case len(c.characters) > 0:
		load = protocol.NewLoadCharactersPacket(c.language, c.characters...)
	default:
		_ = c.transport.Close()
		c.fail(core.NewPreconditionError("no scene or characters to load"))
		return
	}

	cfg := c.sessionConfig
	if c.player != "" && cfg.UserConfiguration == nil {
		cfg.UserConfiguration = &protocol.UserConfiguration{Name: c.player}
	}
	if cfg.Continuation == nil {
		cfg.Continuation = protocol.NewSavedStateContinuation(history)
	}
	if err := c.writeDirect(protocol.NewSessionConfigPacket(cfg)); err != nil {
		c.fail(asCoreError(err))
		return
	}
	if err := c.writeDirect(load); err != nil {
		c.fail(asCoreError(err))
	}
}

// handleClose records a transport close. An Error or LostConnect status is
// kept so the backoff still applies.
func (c *Client) handleClose(code int, reason string) {
	c.logger.Debug("character session closed", "code", code, "reason", reason)
	c.registry.UnloadAll()
	switch c.Status() {
	case StatusError, StatusLostConnect:
		return
	}
	c.setStatus(StatusIdle)
}

// fail records err, arms the backoff and moves to LostConnect for
// recoverable errors or Error otherwise.
func (c *Client) fail(err *core.Error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Error("character session error",
		"kind", err.Kind,
		"code", err.Code,
		"server_type", err.ServerType.String(),
		"reconnect", err.Reconnect.String(),
		"error", err.Message,
	)
	c.errorReceived.emit(err)

	var retryAfter = err.RetryAfter
	if err.Reconnect != core.ReconnectTimeout {
		retryAfter = nil
	}
	delay := c.backoff.fail(c.now(), retryAfter)

	if err.IsInactivity() || err.IsRetryable() {
		c.setStatus(StatusLostConnect)
	} else {
		c.setStatus(StatusError)
	}
	c.logger.Debug("character session backoff armed", "delay", delay)
}
