package protocol

import "errors"

// Request opcodes. The same byte means different things depending on whether
// it follows a size query on the same connection.
const (
	OpSizeQuery = 0x00 // query log size / begin a read
	OpSend      = 0x01 // top level: plain send
	OpAuthSend  = 0x02 // top level: authenticated send
	OpRegister  = 0x03 // register user

	OpFetchAll   = 0x01 // after OpSizeQuery: whole log
	OpFetchAfter = 0x02 // after OpSizeQuery: bytes after the decimal offset that follows
)

// Default ports per scheme.
const (
	PortRAC   = 42666
	PortRACS  = 42667
	PortWRAC  = 52666
	PortWRACS = 52667
)

// ShadowMarker prefixes the username of an auto-registered shadow account.
const ShadowMarker = '\x1f'

// AuthStatus is the single status byte answered to an authenticated send.
type AuthStatus byte

const (
	StatusOK            AuthStatus = 0
	StatusUnknownUser   AuthStatus = 1
	StatusWrongPassword AuthStatus = 2
)

func (s AuthStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknownUser:
		return "unknown user"
	case StatusWrongPassword:
		return "wrong password"
	default:
		return "unknown status"
	}
}

// Register response bytes.
const (
	RegisterOK     = 0x00
	RegisterExists = 0x01
)

var (
	ErrBadURL      = errors.New("malformed server url")
	ErrBadProxyURL = errors.New("malformed proxy url")
	ErrBadRequest  = errors.New("malformed request")
)

// Target is a parsed server URL.
type Target struct {
	Host      string // host:port, port filled from the scheme when omitted
	TLS       bool
	WebSocket bool
}

// Proxy is a parsed SOCKS5 proxy URL.
type Proxy struct {
	Address  string
	Username string
	Password string
	HasAuth  bool
}

// Requests decoded by ParseRequest.

// SizeQuery asks for the current log size.
type SizeQuery struct{}

// FetchRequest asks for the log body. Offset is zero for a full fetch.
type FetchRequest struct {
	Full   bool
	Offset int
}

// SendRequest appends an unauthenticated message.
type SendRequest struct {
	Message []byte
}

// AuthSendRequest appends a message on behalf of a registered user.
type AuthSendRequest struct {
	Name     string
	Password string
	Message  []byte
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Name     string
	Password string
}
