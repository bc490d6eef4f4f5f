package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnection indicates the socket could not be opened or the banner never arrived
	ErrTypeConnection ErrorType = iota
	// ErrTypeTimeout indicates the sentinel was not seen before the deadline or the stream closed
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the controller refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeEncoding indicates a request that cannot be expressed in the wire code page
	ErrTypeEncoding
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
	NetworkErrorClosed
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeEncoding:
		return "Encoding Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure while talking to the controller
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // host:port of the controller
	Discarded      int                 // bytes received before the failure and thrown away
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a socket error and returns a typed Error
func ClassifyNetworkError(err error, address string) *Error {
	if err == nil {
		return nil
	}

	var te *Error
	if errors.As(err, &te) {
		return te
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:      ErrTypeTimeout,
			Message:   "Controller did not respond in time",
			Err:       err,
			Address:   address,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Address:   address,
			Retryable: false,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{
			Type:      ErrTypeConnectionRefused,
			Message:   "Controller refused connection",
			Err:       err,
			Address:   address,
			Retryable: true,
		}
	}
	if errors.Is(err, syscall.EHOSTUNREACH) {
		return &Error{
			Type:           ErrTypeConnection,
			Message:        "Host unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorHostUnreachable,
			Address:        address,
			Retryable:      true,
		}
	}
	if errors.Is(err, syscall.ENETUNREACH) {
		return &Error{
			Type:           ErrTypeConnection,
			Message:        "Network unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorNetworkUnreachable,
			Address:        address,
			Retryable:      true,
		}
	}

	return &Error{
		Type:           ErrTypeConnection,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        address,
		Retryable:      true,
	}
}

// newConnectionError classifies err and overrides its message.
// A deadline hit while connecting or writing is a connection failure, not a
// missed sentinel.
func newConnectionError(message string, err error, address string) *Error {
	classified := ClassifyNetworkError(err, address)
	classified.Message = message
	if classified.Type == ErrTypeTimeout {
		classified.Type = ErrTypeConnection
	}
	return classified
}

// newTimeoutError reports a response that never reached its sentinel
func newTimeoutError(message string, err error, address string, discarded int) *Error {
	subtype := NetworkErrorGeneral
	if err == nil {
		subtype = NetworkErrorClosed
	}
	return &Error{
		Type:           ErrTypeTimeout,
		Message:        message,
		Err:            err,
		NetworkSubtype: subtype,
		Address:        address,
		Discarded:      discarded,
		Retryable:      true,
	}
}

// IsConnectionError checks if an error happened while opening the connection
// (including refused connections and DNS failures)
func IsConnectionError(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Type == ErrTypeConnection ||
			te.Type == ErrTypeConnectionRefused ||
			te.Type == ErrTypeDNS
	}
	return false
}

// IsTimeoutError checks if an error is a missed sentinel
func IsTimeoutError(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Type == ErrTypeTimeout
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	var te *Error
	if !errors.As(err, &te) {
		return nil
	}

	switch te.Type {
	case ErrTypeTimeout:
		if te.NetworkSubtype == NetworkErrorClosed {
			return []string{
				"The controller closed the connection mid-response",
				"Another client may be connected; the controller serves one at a time",
				"Wait a few seconds and retry",
			}
		}
		return []string{
			"The controller did not finish its reply in time",
			"Try increasing --timeout",
			"Check that the controller is not busy running a scene",
		}

	case ErrTypeConnectionRefused:
		return []string{
			"Verify the port number (default is 522)",
			"Power-cycle the controller if it stopped accepting connections",
		}

	case ErrTypeDNS:
		return []string{
			"Use the IP address instead of hostname",
			"Check your network DNS settings",
		}

	case ErrTypeConnection:
		switch te.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return []string{
				"Verify the controller IP address is correct",
				"Check that you're on the same network as the controller",
				"Try pinging the controller: ping " + hostOf(te.Address),
			}
		case NetworkErrorNetworkUnreachable:
			return []string{
				"Check your network adapter settings",
				"Verify you are connected to the home network",
			}
		default:
			return []string{
				"Check that the controller is powered on",
				"Verify the address and port",
				"The controller must print its banner on connect; another device may be answering",
			}
		}

	case ErrTypeEncoding:
		return []string{"Requests may only contain characters from code page 437"}

	default:
		return nil
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var te *Error
	if !errors.As(err, &te) {
		return err.Error()
	}

	switch te.Type {
	case ErrTypeTimeout:
		if te.NetworkSubtype == NetworkErrorClosed {
			return "Controller closed the connection"
		}
		return "Controller not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Controller refused connection"
	case ErrTypeDNS:
		return "Cannot resolve controller hostname"
	case ErrTypeConnection:
		switch te.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Controller unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable"
		default:
			return "Cannot connect to controller"
		}
	default:
		return te.Message
	}
}

func hostOf(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return strings.TrimSpace(address)
}
