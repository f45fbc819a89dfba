package client

import (
	"io"

	"github.com/gorilla/websocket"

	"github.com/rcoop/rac/internal/protocol"
	"github.com/rcoop/rac/internal/transport"
)

// Dialect is the framing a Conn speaks.
type Dialect int

const (
	DialectRAC  Dialect = iota // raw stream, NUL-padded decimal fields
	DialectWRAC                // one WebSocket binary frame per message
)

func (d Dialect) String() string {
	if d == DialectWRAC {
		return "wrac"
	}
	return "rac"
}

// codec is the wire half of one dialect.
type codec interface {
	querySize() (int, error)
	fetch(full bool, lastSize, want int) ([]byte, error)
	send(message string) error
	register(name, password string) (bool, error)
	authSend(name, password, message string) (protocol.AuthStatus, error)
}

// Conn is one connection to a RAC or WRAC server. It owns the underlying
// transport. Operations on a Conn are strictly sequential and a Conn must
// not be shared between goroutines; open one per logical exchange.
type Conn struct {
	dialect Dialect
	codec   codec
	closer  io.Closer
	cfg     Config
}

func newRACConn(s transport.Stream, cfg Config) *Conn {
	return &Conn{
		dialect: DialectRAC,
		codec: &racCodec{
			s:          s,
			removeNull: cfg.RemoveNull,
			strict:     cfg.StrictResponses,
		},
		closer: s,
		cfg:    cfg,
	}
}

func newWRACConn(ws *websocket.Conn, cfg Config) *Conn {
	c := &wracCodec{ws: ws, strict: cfg.StrictResponses}
	return &Conn{
		dialect: DialectWRAC,
		codec:   c,
		closer:  c,
		cfg:     cfg,
	}
}

// Dialect reports which framing the connection uses.
func (c *Conn) Dialect() Dialect { return c.dialect }

// Close releases the connection.
func (c *Conn) Close() error { return c.closer.Close() }

// Size returns the server's current log size without fetching any body.
func (c *Conn) Size() (int, error) {
	return c.codec.querySize()
}

// SendMessage appends message to the log. No response is awaited.
func (c *Conn) SendMessage(message string) error {
	return c.codec.send(message)
}

// RegisterUser creates an account. It returns false, without error, when the
// server reports that the name is taken.
func (c *Conn) RegisterUser(name, password string) (bool, error) {
	return c.codec.register(name, password)
}

// SendMessageAuth appends message as the registered user name.
func (c *Conn) SendMessageAuth(name, password, message string) (protocol.AuthStatus, error) {
	return c.codec.authSend(name, password, message)
}
