package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/gorilla/websocket"
)

// Configuration errors: bad input, never worth retrying.
var (
	ErrURLParse   = errors.New("invalid server url")
	ErrProxyParse = errors.New("invalid proxy url")
)

// Connection errors: the server could not be reached or dropped the exchange.
var (
	ErrConnect            = errors.New("connect failed")
	ErrTLSHandshake       = errors.New("tls handshake failed")
	ErrWebSocketHandshake = errors.New("websocket handshake failed")
	ErrTransport          = errors.New("connection broken")
)

var (
	// ErrTimeout marks a read, write or dial that exceeded Config.Timeout.
	ErrTimeout = errors.New("timed out")

	// ErrProtocol marks a response that does not follow the protocol.
	ErrProtocol = errors.New("protocol violation")

	// ErrNoResponse is returned in strict mode when the server answers a
	// register or authenticated send with nothing.
	ErrNoResponse = errors.New("no response from server")

	// ErrSpoofRejected is returned when every shadow account attempt of a
	// spoofed send was refused.
	ErrSpoofRejected = errors.New("spoofed send rejected")
)

// IsRetriable reports whether err is a connection or timeout failure, after
// which trying again with a fresh connection may succeed.
func IsRetriable(err error) bool {
	for _, target := range []error{ErrConnect, ErrTLSHandshake, ErrWebSocketHandshake, ErrTransport, ErrTimeout} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// wrapKind tags a connect-phase failure with its kind, and with ErrTimeout
// when it was a timeout.
func wrapKind(kind, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// ioError tags a failure during an exchange on an established connection.
func ioError(op string, err error) error {
	switch {
	case isTimeout(err):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.Is(err, websocket.ErrReadLimit):
		return fmt.Errorf("%s: %w: %w", op, ErrProtocol, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
}

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

// noResponse builds the strict-mode error for a missing status answer. err
// is the read failure, or nil when a frame arrived but carried no status.
func noResponse(op string, err error) error {
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", op, ErrNoResponse)
	case isTimeout(err):
		return fmt.Errorf("%s: %w: %w: %w", op, ErrNoResponse, ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrNoResponse, err)
	}
}
