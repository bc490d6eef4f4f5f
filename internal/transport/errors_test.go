package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrTypeConnection, "Connection Error"},
		{ErrTypeTimeout, "Timeout"},
		{ErrTypeConnectionRefused, "Connection Refused"},
		{ErrTypeDNS, "DNS Error"},
		{ErrTypeEncoding, "Encoding Error"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", int(tt.et), got, tt.want)
		}
	}
}

func TestError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Type: ErrTypeConnection, Message: "dial failed", Err: cause}

	if got := err.Error(); got != "Connection Error: dial failed (caused by: boom)" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	bare := &Error{Type: ErrTypeTimeout, Message: "no sentinel"}
	if got := bare.Error(); got != "Timeout: no sentinel" {
		t.Errorf("Error() = %q", got)
	}
}

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
		retryable   bool
	}{
		{
			name:      "deadline exceeded",
			err:       os.ErrDeadlineExceeded,
			wantType:  ErrTypeTimeout,
			retryable: true,
		},
		{
			name:     "dns",
			err:      &net.DNSError{Name: "hub.invalid", Err: "no such host"},
			wantType: ErrTypeDNS,
		},
		{
			name:      "refused",
			err:       &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			wantType:  ErrTypeConnectionRefused,
			retryable: true,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.EHOSTUNREACH)},
			wantType:    ErrTypeConnection,
			wantSubtype: NetworkErrorHostUnreachable,
			retryable:   true,
		},
		{
			name:        "network unreachable",
			err:         &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)},
			wantType:    ErrTypeConnection,
			wantSubtype: NetworkErrorNetworkUnreachable,
			retryable:   true,
		},
		{
			name:      "generic",
			err:       errors.New("something odd"),
			wantType:  ErrTypeConnection,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "10.0.0.2:522")

			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", got.NetworkSubtype, tt.wantSubtype)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.Address != "10.0.0.2:522" {
				t.Errorf("Address = %q", got.Address)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestClassifyNetworkError_KeepsTypedError(t *testing.T) {
	orig := &Error{Type: ErrTypeEncoding, Message: "bad rune"}
	wrapped := fmt.Errorf("send: %w", orig)

	if got := ClassifyNetworkError(wrapped, ""); got != orig {
		t.Errorf("ClassifyNetworkError() = %v, want the original *Error", got)
	}
}

func TestNewConnectionError_DeadlineIsConnectionFailure(t *testing.T) {
	err := newConnectionError("failed to connect to controller", os.ErrDeadlineExceeded, "10.0.0.2:522")

	if err.Type != ErrTypeConnection {
		t.Errorf("Type = %v, want %v", err.Type, ErrTypeConnection)
	}
	if !IsConnectionError(err) || IsTimeoutError(err) {
		t.Error("dial deadline should classify as a connection error")
	}
}

func TestPredicates(t *testing.T) {
	timeout := newTimeoutError("no sentinel", nil, "", 3)
	refused := &Error{Type: ErrTypeConnectionRefused, Retryable: true}
	encoding := &Error{Type: ErrTypeEncoding}
	wrapped := fmt.Errorf("refresh: %w", timeout)

	if !IsTimeoutError(timeout) || !IsTimeoutError(wrapped) {
		t.Error("IsTimeoutError should match direct and wrapped timeouts")
	}
	if IsConnectionError(timeout) {
		t.Error("timeout is not a connection error")
	}
	if !IsConnectionError(refused) {
		t.Error("refused is a connection error")
	}
	if !IsRetryable(wrapped) || IsRetryable(encoding) {
		t.Error("IsRetryable mismatch")
	}
	if IsTimeoutError(errors.New("plain")) || IsRetryable(errors.New("plain")) {
		t.Error("plain errors match no predicate")
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	errs := []error{
		newTimeoutError("x", nil, "", 0),
		newTimeoutError("x", os.ErrDeadlineExceeded, "", 0),
		&Error{Type: ErrTypeConnectionRefused},
		&Error{Type: ErrTypeDNS},
		&Error{Type: ErrTypeConnection, NetworkSubtype: NetworkErrorHostUnreachable, Address: "10.0.0.2:522"},
		&Error{Type: ErrTypeConnection, NetworkSubtype: NetworkErrorNetworkUnreachable},
		&Error{Type: ErrTypeConnection},
		&Error{Type: ErrTypeEncoding},
	}

	for _, err := range errs {
		if hints := GetTroubleshootingHint(err); len(hints) == 0 {
			t.Errorf("GetTroubleshootingHint(%v) returned no hints", err)
		}
	}

	hints := GetTroubleshootingHint(errs[4])
	if hints[len(hints)-1] != "Try pinging the controller: ping 10.0.0.2" {
		t.Errorf("ping hint = %q", hints[len(hints)-1])
	}

	if GetTroubleshootingHint(errors.New("plain")) != nil {
		t.Error("plain errors have no hints")
	}
}
