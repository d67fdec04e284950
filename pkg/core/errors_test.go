package core

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Kind:    ErrPrecondition,
		Message: "character is not registered",
	}

	expected := "precondition_error: character is not registered"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestError_WithCode(t *testing.T) {
	err := NewProtocolError(16, "session expired", ErrorTypeSessionExpired, ReconnectTimeout)

	expected := "protocol_error: session expired (code: 16)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewClientError(t *testing.T) {
	err := NewClientError("bad frame")
	if err.Code != -1 {
		t.Errorf("Code = %d, want -1", err.Code)
	}
	if err.ServerType != ErrorTypeClient {
		t.Errorf("ServerType = %v, want %v", err.ServerType, ErrorTypeClient)
	}
	if err.Reconnect != ReconnectUndefined {
		t.Errorf("Reconnect = %v, want %v", err.Reconnect, ReconnectUndefined)
	}
}

func TestError_IsRetryable(t *testing.T) {
	cases := []struct {
		reconnect ReconnectionType
		want      bool
	}{
		{ReconnectUndefined, false},
		{ReconnectNoRetry, false},
		{ReconnectImmediate, true},
		{ReconnectTimeout, true},
	}
	for _, tc := range cases {
		err := NewProtocolError(1, "x", ErrorTypeUndefined, tc.reconnect)
		if got := err.IsRetryable(); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.reconnect, got, tc.want)
		}
	}
}

func TestError_IsInactivity(t *testing.T) {
	if !NewProtocolError(8, "Session closed due to Inactivity", ErrorTypeUndefined, ReconnectNoRetry).IsInactivity() {
		t.Fatalf("expected message match to be inactivity")
	}
	if !NewProtocolError(8, "closed", ErrorTypeSessionPaused, ReconnectNoRetry).IsInactivity() {
		t.Fatalf("expected SESSION_PAUSED to be inactivity")
	}
	if NewProtocolError(8, "closed", ErrorTypeSafetyViolation, ReconnectNoRetry).IsInactivity() {
		t.Fatalf("safety violation is not inactivity")
	}
	var nilErr *Error
	if nilErr.IsInactivity() {
		t.Fatalf("nil error is not inactivity")
	}
}

func TestError_Unwrap(t *testing.T) {
	err := NewTransportError("dial failed", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("errors.Is should find the underlying transport error")
	}
}

func TestEnums_UnmarshalNamesAndNumbers(t *testing.T) {
	var detail struct {
		ErrorType     ErrorType        `json:"errorType"`
		ReconnectType ReconnectionType `json:"reconnectType"`
	}
	if err := json.Unmarshal([]byte(`{"errorType":"SESSION_PAUSED","reconnectType":"TIMEOUT"}`), &detail); err != nil {
		t.Fatalf("unmarshal names: %v", err)
	}
	if detail.ErrorType != ErrorTypeSessionPaused || detail.ReconnectType != ReconnectTimeout {
		t.Fatalf("got %v/%v", detail.ErrorType, detail.ReconnectType)
	}

	if err := json.Unmarshal([]byte(`{"errorType":7,"reconnectType":2}`), &detail); err != nil {
		t.Fatalf("unmarshal numbers: %v", err)
	}
	if detail.ErrorType != ErrorTypeSafetyViolation || detail.ReconnectType != ReconnectImmediate {
		t.Fatalf("got %v/%v", detail.ErrorType, detail.ReconnectType)
	}

	if err := json.Unmarshal([]byte(`{"errorType":"SOMETHING_NEW","reconnectType":"LATER"}`), &detail); err != nil {
		t.Fatalf("unmarshal unknown names: %v", err)
	}
	if detail.ErrorType != ErrorTypeUndefined || detail.ReconnectType != ReconnectUndefined {
		t.Fatalf("unknown names should fall back, got %v/%v", detail.ErrorType, detail.ReconnectType)
	}
}

func TestEnums_MarshalAsNames(t *testing.T) {
	data, err := json.Marshal(struct {
		T ErrorType        `json:"t"`
		R ReconnectionType `json:"r"`
	}{ErrorTypeVersionConflict, ReconnectNoRetry})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"t":"VERSION_CONFLICT","r":"NO_RETRY"}` {
		t.Fatalf("got %s", data)
	}
}
