// Package character is a live session client for cloud conversational
// characters. A Client owns one connection, queues outgoing packets, resolves
// brain names to live agent ids and dispatches inbound packets to observers.
package character

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-go/vai-character/pkg/auth"
	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/live/outbox"
	"github.com/vango-go/vai-character/pkg/live/registry"
	"github.com/vango-go/vai-character/pkg/protocol"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	defaultCloseTimeout = 5 * time.Second
)

// Client is a live character session. All state transitions happen on one
// loop goroutine started by Start; public methods are safe from any
// goroutine.
type Client struct {
	server        auth.Server
	tokens        auth.TokenProvider
	transport     Transport
	httpClient    *http.Client
	characters    []string
	player        string
	language      string
	sessionConfig protocol.SessionConfigurationPayload

	conversationID string
	groupChat      bool

	tickInterval   time.Duration
	backoffBase    time.Duration
	maxBackoff     time.Duration
	maxAwaitingAck int
	connectTimeout time.Duration
	closeTimeout   time.Duration

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	registry *registry.Registry
	outgoing *outbox.Queue[*protocol.Packet]
	awaiting *outbox.AckBuffer[*protocol.Packet]
	inbox    *outbox.Queue[inbound]
	latency  *protocol.LatencyClock

	mu      sync.RWMutex
	status  Status
	lastErr *core.Error
	token   *auth.Token
	// scene is loaded on open; liveScene is the one the server reported.
	scene     string
	liveScene string
	history   string

	// Loop-owned.
	backoff backoff
	gen     uint64

	sendMu      sync.Mutex
	pingLatency atomic.Int64
	cancelling  atomic.Bool
	paused      atomic.Bool
	closed      atomic.Bool
	started     atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	packetReceived observerList[*protocol.Packet]
	globalPacket   observerList[*protocol.Packet]
	statusChanged  observerList[Status]
	logReceived    observerList[*protocol.Packet]
	packetSent     observerList[*protocol.Packet]
	errorReceived  observerList[*core.Error]
}

type inboundKind int

const (
	inCommand inboundKind = iota
	inToken
	inOpen
	inFrame
	inClose
	inTransportError
	inDialFailed
)

// inbound is one event for the client loop. gen ties connection events to
// the attempt that produced them.
type inbound struct {
	kind    inboundKind
	gen     uint64
	data    []byte
	code    int
	reason  string
	err     error
	token   *auth.Token
	connect bool
	fn      func()
}

// NewClient creates a client. Call Start to run it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		server:         auth.DefaultServer,
		groupChat:      true,
		tickInterval:   defaultTickInterval,
		backoffBase:    defaultBackoffBase,
		maxBackoff:     defaultMaxBackoff,
		maxAwaitingAck: outbox.DefaultAckCapacity,
		connectTimeout: defaultConnectTimeout,
		closeTimeout:   defaultCloseTimeout,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.tickInterval <= 0 {
		c.tickInterval = defaultTickInterval
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = defaultConnectTimeout
	}
	if c.closeTimeout <= 0 {
		c.closeTimeout = defaultCloseTimeout
	}
	if c.transport == nil {
		c.transport = NewWebSocketTransport()
	}
	if c.httpClient == nil {
		c.httpClient = auth.NewDefaultHTTPClient()
	}
	if c.sessionConfig.CapabilitiesConfiguration == nil {
		caps := protocol.DefaultCapabilities()
		c.sessionConfig.CapabilitiesConfiguration = &caps
	}

	c.registry = registry.New()
	c.outgoing = outbox.NewQueue[*protocol.Packet]()
	c.awaiting = outbox.NewAckBuffer[*protocol.Packet](c.maxAwaitingAck)
	c.inbox = outbox.NewQueue[inbound]()
	c.latency = protocol.NewLatencyClock(c.now)
	c.backoff = newBackoff(c.backoffBase, c.maxBackoff)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	return c
}

// Start runs the client loop. It is safe to call more than once.
func (c *Client) Start() {
	if c.closed.Load() || !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run()
}

func (c *Client) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			c.processInbox()
			return
		case <-c.inbox.Ready():
			c.processInbox()
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Client) processInbox() {
	for _, ev := range c.inbox.Drain() {
		c.handle(ev)
	}
}

func (c *Client) handle(ev inbound) {
	if ev.kind == inCommand {
		ev.fn()
		return
	}
	if ev.gen != c.gen {
		if ev.kind == inOpen && (c.paused.Load() || c.Status() != StatusConnecting) {
			// A dial that finished after its attempt was abandoned.
			_ = c.transport.Close()
		}
		return
	}
	switch ev.kind {
	case inToken:
		c.handleToken(ev.token, ev.err, ev.connect)
	case inOpen:
		c.handleOpen()
	case inFrame:
		c.handleFrame(ev.data)
	case inClose:
		c.handleClose(ev.code, ev.reason)
	case inTransportError, inDialFailed:
		c.fail(asCoreError(ev.err))
	}
}

// do runs fn on the loop. The returned channel closes once fn has run, or
// immediately if the client is closed.
func (c *Client) do(fn func()) <-chan struct{} {
	done := make(chan struct{})
	ok := c.inbox.Push(inbound{kind: inCommand, fn: func() {
		defer close(done)
		fn()
	}})
	if !ok {
		close(done)
	}
	return done
}

// tick drives recovery and the outgoing queue.
func (c *Client) tick() {
	status := c.Status()
	if status == StatusError || status == StatusLostConnect {
		if !c.backoff.elapsed(c.now()) {
			return
		}
		c.setStatus(StatusIdle)
		if status == StatusLostConnect {
			c.reconnect()
		}
		return
	}

	if c.outgoing.Len() == 0 || c.paused.Load() {
		return
	}
	switch status {
	case StatusConnected:
		c.flush()
	case StatusIdle:
		c.reconnect()
	case StatusInitialized:
		c.startSession()
	}
}

// Disconnect stops sending, closes the connection and waits, bounded by ctx
// or the close timeout, for the client to settle to Idle. Queued packets are
// kept; Reconnect resumes.
func (c *Client) Disconnect(ctx context.Context) error {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()
	return c.disconnect(ctx)
}

func (c *Client) disconnect(ctx context.Context) error {
	c.paused.Store(true)
	if !c.started.Load() {
		return c.transport.Close()
	}
	done := c.do(func() {
		c.gen++
		if err := c.transport.Close(); err != nil {
			c.logger.Warn("character transport close failed", "error", err)
		}
		c.backoff.reset()
		c.setStatus(StatusIdle)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects and stops the client loop. The client cannot be reused.
func (c *Client) Close(ctx context.Context) error {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	var err error
	c.closeOnce.Do(func() {
		err = c.disconnect(ctx)
		c.closed.Store(true)
		c.cancel()
		if c.started.Load() {
			close(c.stop)
			select {
			case <-c.done:
			case <-ctx.Done():
				if err == nil {
					err = ctx.Err()
				}
			}
		}
		c.inbox.Close()
		c.outgoing.Close()
	})
	return err
}

func (c *Client) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.closeTimeout)
}

// LastError returns the most recent transport or server error.
func (c *Client) LastError() *core.Error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// SessionID returns the id of the current session token.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return ""
	}
	return c.token.SessionID
}

// Scene returns the scene loaded when a session opens.
func (c *Client) Scene() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scene
}

// Characters returns the characters of the live session, loaded or not.
func (c *Client) Characters() []protocol.CharacterData {
	return c.registry.Entries()
}

// Resolve returns the live agent id of brainName.
func (c *Client) Resolve(brainName string) (string, bool) {
	return c.registry.Resolve(brainName)
}

// Latency returns the most recent ping latency, or zero before the first ping.
func (c *Client) Latency() time.Duration {
	return time.Duration(c.pingLatency.Load())
}

// IsPlayerCancelling reports whether a CancelResponses is waiting for its
// interaction to end.
func (c *Client) IsPlayerCancelling() bool {
	return c.cancelling.Load()
}

// Pending returns the number of queued and awaiting-ack packets.
func (c *Client) Pending() (queued, awaiting int) {
	return c.outgoing.Len(), c.awaiting.Len()
}
