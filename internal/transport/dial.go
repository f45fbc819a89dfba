package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"github.com/rcoop/rac/internal/protocol"
)

// Dialer opens the bottom layer of a connection.
type Dialer struct {
	Timeout  time.Duration
	Resolver *Resolver // nil uses the system resolver
}

// DialDirect opens a TCP connection to addr (host:port).
func (d *Dialer) DialDirect(ctx context.Context, addr string) (Stream, error) {
	nd := &net.Dialer{Timeout: d.Timeout}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("bad address %q: %w", addr, err)
	}

	if d.Resolver == nil || net.ParseIP(host) != nil {
		conn, err := nd.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewNetStream(conn), nil
	}

	ips, err := d.Resolver.LookupIP(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), port))
		if err != nil {
			lastErr = err
			continue
		}
		return NewNetStream(conn), nil
	}
	return nil, fmt.Errorf("dial %s: %w", addr, lastErr)
}

// DialSOCKS5 opens a tunnel to addr through the SOCKS5 proxy p. The target
// host name is resolved by the proxy.
func (d *Dialer) DialSOCKS5(ctx context.Context, p *protocol.Proxy, addr string) (Stream, error) {
	var auth *proxy.Auth
	if p.HasAuth {
		auth = &proxy.Auth{User: p.Username, Password: p.Password}
	}

	pd, err := proxy.SOCKS5("tcp", p.Address, auth, &net.Dialer{Timeout: d.Timeout})
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}

	cd, ok := pd.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer does not support contexts")
	}

	conn, err := cd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s via %s: %w", addr, p.Address, err)
	}
	return NewNetStream(conn), nil
}
