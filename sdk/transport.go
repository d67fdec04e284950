package character

import (
	"context"
	"net/http"
)

// Endpoint identifies one session connection.
type Endpoint struct {
	URL string
	// Subprotocols carries the token as [type, token].
	Subprotocols []string
	Header       http.Header
}

// TransportEvents are invoked from the transport's own goroutines. The
// client only queues them.
type TransportEvents struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnClose   func(code int, reason string)
	OnError   func(err error)
}

// Transport is a persistent duplex text-frame connection. Connect blocks
// until the connection is open or fails; OnOpen fires before it returns nil.
// A Transport may be connected again after Close.
type Transport interface {
	Connect(ctx context.Context, ep Endpoint, events TransportEvents) error
	Send(data []byte) error
	Close() error
}
