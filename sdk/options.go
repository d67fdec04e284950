package character

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-go/vai-character/pkg/auth"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithServer sets the deployment the client talks to.
func WithServer(server auth.Server) ClientOption {
	return func(c *Client) {
		c.server = server
	}
}

// WithTokenProvider sets the source of session tokens.
func WithTokenProvider(p auth.TokenProvider) ClientOption {
	return func(c *Client) {
		c.tokens = p
	}
}

// WithTransport replaces the WebSocket transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sets the client used for feedback and session history.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithScene sets the scene loaded when a session opens.
func WithScene(sceneName string) ClientOption {
	return func(c *Client) {
		c.scene = sceneName
	}
}

// WithCharacters loads the given brain names when no scene is set.
func WithCharacters(brainNames ...string) ClientOption {
	return func(c *Client) {
		c.characters = append([]string(nil), brainNames...)
	}
}

// WithPlayerName sets the routing name of the local player.
func WithPlayerName(name string) ClientOption {
	return func(c *Client) {
		c.player = name
	}
}

// WithLanguage sets the language requested when loading characters.
func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		c.language = language
	}
}

// WithSessionConfig sets the configuration sent when a session opens.
func WithSessionConfig(cfg protocol.SessionConfigurationPayload) ClientOption {
	return func(c *Client) {
		c.sessionConfig = cfg
	}
}

// WithSessionHistory resumes a previous session from state saved by
// LoadHistory.
func WithSessionHistory(state string) ClientOption {
	return func(c *Client) {
		c.history = state
	}
}

// WithConversation routes sends through a shared conversation and keeps its
// participants in sync with the loaded characters.
func WithConversation(conversationID string) ClientOption {
	return func(c *Client) {
		c.conversationID = conversationID
	}
}

// WithGroupChat controls whether a packet may address several characters.
// When disabled only the first target brain name is kept.
func WithGroupChat(enabled bool) ClientOption {
	return func(c *Client) {
		c.groupChat = enabled
	}
}

// WithTickInterval sets the outgoing queue cadence.
func WithTickInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.tickInterval = d
	}
}

// WithBackoff sets the reconnect backoff base delay and cap.
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffBase = base
		c.maxBackoff = max
	}
}

// WithMaxAwaitingAck bounds the resend buffer.
func WithMaxAwaitingAck(n int) ClientOption {
	return func(c *Client) {
		c.maxAwaitingAck = n
	}
}

// WithConnectTimeout bounds token fetch and dial.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

// WithCloseTimeout bounds how long Close waits when its context has no
// deadline.
func WithCloseTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.closeTimeout = d
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client. Without it spans
// go to a no-op tracer.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}
