package protocol

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vango-go/vai-character/pkg/core"
)

// ErrorDetail is the retry policy attached to a server error.
type ErrorDetail struct {
	ErrorType     core.ErrorType        `json:"errorType"`
	ReconnectType core.ReconnectionType `json:"reconnectType"`
	ReconnectTime string                `json:"reconnectTime,omitempty"`
	MaxRetries    int                   `json:"maxRetries,omitempty"`
}

// ServerError is the error half of an inbound envelope.
type ServerError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// IsValid reports whether the error carries a message.
func (e *ServerError) IsValid() bool {
	return e != nil && strings.TrimSpace(e.Message) != ""
}

// Err converts the envelope error to a *core.Error. The first detail, when
// present, supplies the error type and reconnection policy.
func (e *ServerError) Err() *core.Error {
	if e == nil {
		return nil
	}
	out := core.NewProtocolError(e.Code, e.Message, core.ErrorTypeUndefined, core.ReconnectUndefined)
	if len(e.Details) > 0 {
		d := e.Details[0]
		out.ServerType = d.ErrorType
		out.Reconnect = d.ReconnectType
		out.MaxRetries = d.MaxRetries
		if after, ok := parseReconnectTime(d.ReconnectTime); ok {
			out.RetryAfter = &after
		}
	}
	return out
}

// parseReconnectTime accepts either a duration ("5s") or an absolute
// timestamp, which is converted to a delay from now.
func parseReconnectTime(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d, true
	}
	if t := ParseTimestamp(s); !t.IsZero() {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// Response is an inbound envelope.
type Response struct {
	Result *Packet
	Error  *ServerError
}

// typographicQuotes folds curly quotes to ASCII. They only occur inside JSON
// strings, so double quotes are escaped.
var typographicQuotes = strings.NewReplacer("’", "'", "‘", "'", "“", `\"`, "”", `\"`)

// DecodeResponse reads an inbound envelope. A valid Error takes precedence
// and leaves Result nil.
func DecodeResponse(data []byte) (*Response, error) {
	normalized := typographicQuotes.Replace(string(data))

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *ServerError    `json:"error"`
	}
	if err := json.Unmarshal([]byte(normalized), &envelope); err != nil {
		return nil, badFrame("invalid json envelope", "")
	}
	if envelope.Error.IsValid() {
		return &Response{Error: envelope.Error}, nil
	}

	fields, err := objectFields(envelope.Result)
	if err != nil || len(envelope.Result) == 0 {
		return nil, badFrame("envelope has no result", "result")
	}
	if len(fields) == 0 {
		return nil, badFrame("envelope has no result", "result")
	}
	packet, err := decodeFields(fields)
	if err != nil {
		return nil, err
	}
	return &Response{Result: packet}, nil
}

// EncodeResponse wraps p in an envelope. It is the server side of
// DecodeResponse and is used by fakes and tools.
func EncodeResponse(p *Packet) ([]byte, error) {
	body, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Result json.RawMessage `json:"result"`
	}{Result: body})
}

// EncodeErrorResponse builds an error envelope.
func EncodeErrorResponse(serverErr ServerError) ([]byte, error) {
	return json.Marshal(struct {
		Error ServerError `json:"error"`
	}{Error: serverErr})
}
