package character

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultConnectTimeout = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 20 * time.Second
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// WebSocketTransport is the gorilla/websocket Transport.
type WebSocketTransport struct {
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
	PingInterval time.Duration

	mu   sync.Mutex
	conn *wsConn
}

// NewWebSocketTransport returns a transport using websocket.DefaultDialer.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{}
}

type wsConn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func (t *WebSocketTransport) Connect(ctx context.Context, ep Endpoint, events TransportEvents) error {
	base := t.Dialer
	if base == nil {
		base = websocket.DefaultDialer
	}
	dialer := *base
	dialer.Subprotocols = append([]string(nil), ep.Subprotocols...)

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	ws, resp, err := dialer.DialContext(dialCtx, ep.URL, ep.Header)
	if err != nil {
		if resp != nil {
			return &TransportError{Op: "GET", URL: ep.URL, Err: errors.Join(errors.New("websocket dial failed: "+resp.Status), err)}
		}
		return &TransportError{Op: "GET", URL: ep.URL, Err: err}
	}

	conn := &wsConn{ws: ws, done: make(chan struct{})}
	t.mu.Lock()
	prev := t.conn
	t.conn = conn
	t.mu.Unlock()
	if prev != nil {
		prev.close(t.writeTimeout())
	}

	if events.OnOpen != nil {
		events.OnOpen()
	}
	go t.readLoop(conn, events)
	go t.keepalive(conn)
	return nil
}

// Send writes one text frame on the current connection.
func (t *WebSocketTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil || conn.closed.Load() {
		return &TransportError{Op: "send", Err: ErrNotConnected}
	}
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := writeText(conn.ws, data, t.writeTimeout()); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// Close sends a normal close frame and waits for the read loop to exit.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	conn.close(t.writeTimeout())
	<-conn.done
	return nil
}

func (t *WebSocketTransport) writeTimeout() time.Duration {
	if t.WriteTimeout > 0 {
		return t.WriteTimeout
	}
	return defaultWriteTimeout
}

func (c *wsConn) close(writeTimeout time.Duration) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = writeClose(c.ws, writeTimeout)
		_ = c.ws.Close()
	})
}

func (t *WebSocketTransport) readLoop(conn *wsConn, events TransportEvents) {
	defer close(conn.done)

	for {
		messageType, data, err := conn.ws.ReadMessage()
		if err != nil {
			code, reason, report := classifyReadError(err, conn.closed.Load())
			if report != nil && events.OnError != nil {
				events.OnError(report)
			}
			conn.closed.Store(true)
			_ = conn.ws.Close()
			if events.OnClose != nil {
				events.OnClose(code, reason)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if events.OnMessage != nil {
			events.OnMessage(data)
		}
	}
}

// classifyReadError maps a read failure to a close code and reason. report
// is non-nil only for failures worth surfacing as errors.
func classifyReadError(err error, closedLocally bool) (code int, reason string, report error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return closeErr.Code, closeErr.Text, nil
		}
		return closeErr.Code, closeErr.Text, &TransportError{Op: "read", Err: err}
	}
	if closedLocally {
		return websocket.CloseNormalClosure, "closed by client", nil
	}
	if strings.Contains(err.Error(), cleanCloseMessage) {
		return websocket.CloseAbnormalClosure, "", nil
	}
	return websocket.CloseAbnormalClosure, err.Error(), &TransportError{Op: "read", Err: err}
}

func (t *WebSocketTransport) keepalive(conn *wsConn) {
	interval := t.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.done:
			return
		case <-ticker.C:
			if conn.closed.Load() {
				return
			}
			if err := conn.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(t.writeTimeout())); err != nil {
				return
			}
		}
	}
}

func writeText(w wsWriter, data []byte, timeout time.Duration) error {
	if err := w.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return w.WriteMessage(websocket.TextMessage, data)
}

func writeClose(w wsWriter, timeout time.Duration) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return w.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
}
