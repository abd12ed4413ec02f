package mqttcore

import (
	"errors"
	"testing"
)

func TestConnectErrorForCode(t *testing.T) {
	tests := []struct {
		code   uint8
		reason error
	}{
		{1, ErrUnacceptableProtocolVersion},
		{2, ErrIdentifierRejected},
		{3, ErrServerUnavailable},
		{4, ErrBadUsernameOrPassword},
		{5, ErrNotAuthorized},
		{99, ErrConnectionRefused},
	}
	for _, tt := range tests {
		err := connectErrorForCode(tt.code)
		if !errors.Is(err, ErrConnectionRefused) {
			t.Errorf("code %d: errors.Is(err, ErrConnectionRefused) = false", tt.code)
		}
		if !errors.Is(err, tt.reason) {
			t.Errorf("code %d: errors.Is(err, %v) = false", tt.code, tt.reason)
		}
		var connErr *ConnectError
		if !errors.As(err, &connErr) {
			t.Fatalf("code %d: errors.As did not find a *ConnectError", tt.code)
		}
		if connErr.ReturnCode != tt.code {
			t.Errorf("code %d: ReturnCode = %d", tt.code, connErr.ReturnCode)
		}
	}
}
