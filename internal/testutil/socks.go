package testutil

import (
	"context"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	socks5 "github.com/armon/go-socks5"
)

// SOCKS5Server is a SOCKS5 proxy for tests that records the destinations it
// connects to. When User is set the username/password method is required.
type SOCKS5Server struct {
	User     string
	Password string

	listener net.Listener
	connects atomic.Int32

	mu      sync.Mutex
	targets []string
}

// StartSOCKS5 listens on a loopback port and serves until the test ends.
func StartSOCKS5(t testing.TB, user, password string) *SOCKS5Server {
	t.Helper()

	s := &SOCKS5Server{User: user, Password: password}

	conf := &socks5.Config{
		Dial:   s.dial,
		Logger: log.New(io.Discard, "", 0),
	}
	if user != "" {
		conf.Credentials = socks5.StaticCredentials{user: password}
	}

	srv, err := socks5.New(conf)
	if err != nil {
		t.Fatalf("socks5 server: %v", err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("socks5 listen: %v", err)
	}
	s.listener = l
	t.Cleanup(func() { l.Close() })

	go srv.Serve(l)
	return s
}

// dial opens the upstream connection for an accepted CONNECT request.
func (s *SOCKS5Server) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	s.connects.Add(1)
	s.mu.Lock()
	s.targets = append(s.targets, addr)
	s.mu.Unlock()
	return conn, nil
}

// Addr returns the proxy's listen address.
func (s *SOCKS5Server) Addr() string { return s.listener.Addr().String() }

// Connects returns the number of successful CONNECT requests.
func (s *SOCKS5Server) Connects() int { return int(s.connects.Load()) }

// Targets returns the requested destinations in order.
func (s *SOCKS5Server) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.targets...)
}
