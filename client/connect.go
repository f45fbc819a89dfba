package client

import (
	"context"
	"fmt"
	"net"

	"github.com/gorilla/websocket"

	"github.com/rcoop/rac/internal/protocol"
	"github.com/rcoop/rac/internal/transport"
)

// Connect opens a connection to the server named by rawURL. The stack is
// built bottom-up: a direct or SOCKS5 (cfg.Proxy) socket, TLS for racs and
// wracs, then the WebSocket handshake for wrac and wracs.
func Connect(ctx context.Context, rawURL string, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()

	target, err := protocol.ParseRACURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLParse, err)
	}

	d := &transport.Dialer{Timeout: cfg.Timeout}
	if cfg.Resolver != "" {
		d.Resolver = transport.NewResolver(cfg.Resolver, cfg.Timeout)
	}

	var s transport.Stream
	if cfg.Proxy != "" {
		p, err := protocol.ParseSocks5URL(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProxyParse, err)
		}
		s, err = d.DialSOCKS5(ctx, p, target.Host)
		if err != nil {
			return nil, wrapKind(ErrConnect, err)
		}
	} else {
		s, err = d.DialDirect(ctx, target.Host)
		if err != nil {
			return nil, wrapKind(ErrConnect, err)
		}
	}

	// Timeouts live on the socket layer; TLS and WebSocket layers delegate.
	s.SetReadTimeout(cfg.Timeout)
	s.SetWriteTimeout(cfg.Timeout)

	if target.TLS {
		ts, err := transport.WrapTLS(ctx, s, transport.ClientTLSConfig(target.Host, cfg.InsecureSkipVerify))
		if err != nil {
			s.Close()
			return nil, wrapKind(ErrTLSHandshake, err)
		}
		s = ts
	}

	if !target.WebSocket {
		return newRACConn(s, cfg), nil
	}

	ws, err := handshakeWebSocket(ctx, s, target.Host, cfg)
	if err != nil {
		s.Close()
		return nil, wrapKind(ErrWebSocketHandshake, err)
	}
	return newWRACConn(ws, cfg), nil
}

// handshakeWebSocket runs the client handshake over an already assembled
// stream. The URL scheme is always ws: TLS, if any, sits below.
func handshakeWebSocket(ctx context.Context, s transport.Stream, host string, cfg Config) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(context.Context, string, string) (net.Conn, error) {
			return transport.AsConn(s), nil
		},
		HandshakeTimeout: cfg.Timeout,
	}

	ws, resp, err := dialer.DialContext(ctx, "ws://"+host, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(cfg.MaxMessageSize)
	return ws, nil
}
