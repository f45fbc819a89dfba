// Package transport builds the byte stream a RAC connection runs over: a
// direct or SOCKS5-proxied TCP connection, optionally wrapped in TLS. Every
// layer implements Stream, so TLS can wrap any other layer, including another
// TLS session.
package transport

import (
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Stream is a duplex byte stream with per-operation timeouts. Timeouts are
// best effort: a layer that cannot honour them accepts the call and ignores it.
type Stream interface {
	io.ReadWriteCloser
	SetReadTimeout(d time.Duration)
	SetWriteTimeout(d time.Duration)
}

// addresser is implemented by streams that know their socket addresses.
type addresser interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// netStream adapts a net.Conn. Each Read and Write arms a fresh deadline from
// the configured timeout; zero disables it.
type netStream struct {
	conn         net.Conn
	readTimeout  atomic.Int64
	writeTimeout atomic.Int64
}

// NewNetStream wraps conn as a Stream.
func NewNetStream(conn net.Conn) Stream {
	return &netStream{conn: conn}
}

func (s *netStream) Read(p []byte) (int, error) {
	if d := time.Duration(s.readTimeout.Load()); d > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(d))
	}
	return s.conn.Read(p)
}

func (s *netStream) Write(p []byte) (int, error) {
	if d := time.Duration(s.writeTimeout.Load()); d > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(d))
	}
	return s.conn.Write(p)
}

func (s *netStream) Close() error { return s.conn.Close() }

func (s *netStream) SetReadTimeout(d time.Duration)  { s.readTimeout.Store(int64(d)) }
func (s *netStream) SetWriteTimeout(d time.Duration) { s.writeTimeout.Store(int64(d)) }

func (s *netStream) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *netStream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// AsConn presents s as a net.Conn so crypto/tls and the WebSocket client can
// be layered on top of it. Deadlines set through the returned conn are
// ignored; the stream's own timeouts govern every read and write.
func AsConn(s Stream) net.Conn {
	if c, ok := s.(*streamConn); ok {
		return c
	}
	return &streamConn{Stream: s}
}

type streamConn struct {
	Stream
}

func (c *streamConn) LocalAddr() net.Addr {
	if a, ok := c.Stream.(addresser); ok {
		return a.LocalAddr()
	}
	return streamAddr{}
}

func (c *streamConn) RemoteAddr() net.Addr {
	if a, ok := c.Stream.(addresser); ok {
		return a.RemoteAddr()
	}
	return streamAddr{}
}

func (c *streamConn) SetDeadline(time.Time) error      { return nil }
func (c *streamConn) SetReadDeadline(time.Time) error  { return nil }
func (c *streamConn) SetWriteDeadline(time.Time) error { return nil }

type streamAddr struct{}

func (streamAddr) Network() string { return "stream" }
func (streamAddr) String() string  { return "stream" }
