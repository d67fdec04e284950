package character

// Status is the connection lifecycle state of a Client.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusInitialized
	StatusConnecting
	StatusConnected
	StatusError
	StatusLostConnect
	// StatusExhausted and StatusLoadingScene are kept for hosts that persist
	// status values; the client never enters them.
	StatusExhausted
	StatusLoadingScene
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusInitializing:
		return "INITIALIZING"
	case StatusInitialized:
		return "INITIALIZED"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusError:
		return "ERROR"
	case StatusLostConnect:
		return "LOST_CONNECT"
	case StatusExhausted:
		return "EXHAUSTED"
	case StatusLoadingScene:
		return "LOADING_SCENE"
	default:
		return "UNKNOWN"
	}
}

// canReconnect reports whether Reconnect may start a new attempt from s.
func (s Status) canReconnect() bool {
	switch s {
	case StatusIdle, StatusError, StatusLostConnect:
		return true
	default:
		return false
	}
}

// setStatus records s and notifies observers once per actual change. It is
// only called from the client loop.
func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	old := c.status
	c.status = s
	c.mu.Unlock()

	if old == s {
		return
	}
	c.logger.Debug("character session status", "from", old.String(), "to", s.String())
	c.statusChanged.emit(s)
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	if c == nil {
		return StatusIdle
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}
