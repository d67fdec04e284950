package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error is the canonical error surfaced by the character session client.
type Error struct {
	Kind       ErrorKind        `json:"kind"`
	Message    string           `json:"message"`
	Code       int              `json:"code,omitempty"`
	ServerType ErrorType        `json:"server_type,omitempty"`
	Reconnect  ReconnectionType `json:"reconnect,omitempty"`
	RetryAfter *time.Duration   `json:"retry_after,omitempty"`
	MaxRetries int              `json:"max_retries,omitempty"`
	Err        error            `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code: %d)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorKind categorizes where an error came from.
type ErrorKind string

const (
	ErrTransport    ErrorKind = "transport_error"
	ErrProtocol     ErrorKind = "protocol_error"
	ErrDecode       ErrorKind = "decode_error"
	ErrPrecondition ErrorKind = "precondition_error"
	ErrClient       ErrorKind = "client_error"
	ErrAuth         ErrorKind = "authentication_error"
)

// NewTransportError wraps a socket-level failure.
func NewTransportError(message string, underlying error) *Error {
	return &Error{
		Kind:       ErrTransport,
		Message:    message,
		Code:       -1,
		ServerType: ErrorTypeClient,
		Err:        underlying,
	}
}

// NewProtocolError creates an error reported by the server in an error envelope.
func NewProtocolError(code int, message string, serverType ErrorType, reconnect ReconnectionType) *Error {
	return &Error{
		Kind:       ErrProtocol,
		Message:    message,
		Code:       code,
		ServerType: serverType,
		Reconnect:  reconnect,
	}
}

// NewDecodeError creates an error for a malformed inbound frame.
func NewDecodeError(message string, underlying error) *Error {
	return &Error{
		Kind:       ErrDecode,
		Message:    message,
		ServerType: ErrorTypeClient,
		Err:        underlying,
	}
}

// NewPreconditionError creates an error for a send that cannot be issued yet.
func NewPreconditionError(message string) *Error {
	return &Error{
		Kind:       ErrPrecondition,
		Message:    message,
		ServerType: ErrorTypeClient,
	}
}

// NewClientError mirrors a locally raised failure with no retry policy.
func NewClientError(message string) *Error {
	return &Error{
		Kind:       ErrClient,
		Message:    message,
		Code:       -1,
		ServerType: ErrorTypeClient,
		Reconnect:  ReconnectUndefined,
	}
}

// NewAuthError creates a token acquisition error.
func NewAuthError(message string, underlying error) *Error {
	return &Error{
		Kind:       ErrAuth,
		Message:    message,
		Code:       -1,
		ServerType: ErrorTypeClient,
		Err:        underlying,
	}
}

// IsRetryable reports whether the server allows reconnecting after this error.
func (e *Error) IsRetryable() bool {
	switch e.Reconnect {
	case ReconnectImmediate, ReconnectTimeout:
		return true
	default:
		return false
	}
}

// IsInactivity reports whether the server closed the session for inactivity.
func (e *Error) IsInactivity() bool {
	if e == nil {
		return false
	}
	switch e.ServerType {
	case ErrorTypeSessionExpired, ErrorTypeSessionPaused:
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "inactivity")
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorType is the server-side error classification.
type ErrorType int

const (
	ErrorTypeUndefined                 ErrorType = -2
	ErrorTypeClient                    ErrorType = -1
	ErrorTypeSessionTokenExpired       ErrorType = 0
	ErrorTypeSessionTokenInvalid       ErrorType = 1
	ErrorTypeSessionResourcesExhausted ErrorType = 2
	ErrorTypeBillingTokensExhausted    ErrorType = 3
	ErrorTypeAccountDisabled           ErrorType = 4
	ErrorTypeSessionInvalid            ErrorType = 5
	ErrorTypeResourceNotFound          ErrorType = 6
	ErrorTypeSafetyViolation           ErrorType = 7
	ErrorTypeSessionExpired            ErrorType = 8
	ErrorTypeAudioSessionExpired       ErrorType = 9
	ErrorTypeSessionPaused             ErrorType = 10
	ErrorTypeVersionConflict           ErrorType = 11
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUndefined:                 "UNDEFINED",
	ErrorTypeClient:                    "CLIENT_ERROR",
	ErrorTypeSessionTokenExpired:       "SESSION_TOKEN_EXPIRED",
	ErrorTypeSessionTokenInvalid:       "SESSION_TOKEN_INVALID",
	ErrorTypeSessionResourcesExhausted: "SESSION_RESOURCES_EXHAUSTED",
	ErrorTypeBillingTokensExhausted:    "BILLING_TOKENS_EXHAUSTED",
	ErrorTypeAccountDisabled:           "ACCOUNT_DISABLED",
	ErrorTypeSessionInvalid:            "SESSION_INVALID",
	ErrorTypeResourceNotFound:          "RESOURCE_NOT_FOUND",
	ErrorTypeSafetyViolation:           "SAFETY_VIOLATION",
	ErrorTypeSessionExpired:            "SESSION_EXPIRED",
	ErrorTypeAudioSessionExpired:       "AUDIO_SESSION_EXPIRED",
	ErrorTypeSessionPaused:             "SESSION_PAUSED",
	ErrorTypeVersionConflict:           "VERSION_CONFLICT",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "ErrorType(" + strconv.Itoa(int(t)) + ")"
}

func (t ErrorType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ErrorType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "errorType", int(ErrorTypeUndefined), func(name string) (int, bool) {
		for k, n := range errorTypeNames {
			if n == name {
				return int(k), true
			}
		}
		return 0, false
	})
	if err != nil {
		return err
	}
	*t = ErrorType(v)
	return nil
}

// ReconnectionType tells the client how it may recover from a server error.
type ReconnectionType int

const (
	ReconnectUndefined ReconnectionType = 0
	ReconnectNoRetry   ReconnectionType = 1
	ReconnectImmediate ReconnectionType = 2
	ReconnectTimeout   ReconnectionType = 3
)

var reconnectionTypeNames = map[ReconnectionType]string{
	ReconnectUndefined: "UNDEFINED",
	ReconnectNoRetry:   "NO_RETRY",
	ReconnectImmediate: "IMMEDIATE",
	ReconnectTimeout:   "TIMEOUT",
}

func (t ReconnectionType) String() string {
	if name, ok := reconnectionTypeNames[t]; ok {
		return name
	}
	return "ReconnectionType(" + strconv.Itoa(int(t)) + ")"
}

func (t ReconnectionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ReconnectionType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, "reconnectType", int(ReconnectUndefined), func(name string) (int, bool) {
		for k, n := range reconnectionTypeNames {
			if n == name {
				return int(k), true
			}
		}
		return 0, false
	})
	if err != nil {
		return err
	}
	*t = ReconnectionType(v)
	return nil
}

// unmarshalEnum accepts either the wire name or the numeric value. Unknown
// names map to fallback so a newer server cannot break envelope decoding.
func unmarshalEnum(data []byte, field string, fallback int, lookup func(string) (int, bool)) (int, error) {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		name = strings.ToUpper(strings.TrimSpace(name))
		if v, ok := lookup(name); ok {
			return v, nil
		}
		if n, err := strconv.Atoi(name); err == nil {
			return n, nil
		}
		return fallback, nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return n, nil
}
