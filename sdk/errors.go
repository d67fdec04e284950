package character

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/vango-go/vai-character/pkg/core"
	"github.com/vango-go/vai-character/pkg/protocol"
)

// Error is the canonical error surfaced by the client.
type Error = core.Error

var (
	// ErrNotConnected is returned by immediate sends while the session is not
	// connected.
	ErrNotConnected = errors.New("character session is not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("character session is closed")
	// ErrNoResolvableTarget is returned when no target brain name is loaded
	// in the live session.
	ErrNoResolvableTarget = protocol.ErrNoResolvableTarget
	// ErrNoItems is returned by item operations given no items or entities.
	ErrNoItems = errors.New("character items operation needs items and entities")
)

// cleanCloseMessage is reported by some socket stacks when the server drops
// the connection without a close frame. It is not an error.
const cleanCloseMessage = "The remote party closed the WebSocket connection without completing the close handshake."

// TransportError represents socket-level failures (DNS, timeouts,
// connection reset, TLS handshake, etc.) while talking to the session server.
//
// Use errors.As(err, &TransportError{}) to distinguish transport failures
// from server errors (*core.Error).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURL(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// redactURL drops user info and the query, which carries the session id.
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	if parsed.RawQuery != "" {
		parsed.RawQuery = "redacted"
	}
	return parsed.String()
}

// asCoreError converts any error to *core.Error, wrapping foreign errors as
// transport errors.
func asCoreError(err error) *core.Error {
	if err == nil {
		return nil
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.NewTransportError(err.Error(), err)
}
