package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Config selects which listeners a Server opens. Empty addresses are
// skipped. The TLS listeners need TLSConfig.
type Config struct {
	RACAddr     string
	RACSAddr    string
	WRACAddr    string
	WRACSAddr   string
	MetricsAddr string

	TLSConfig      *tls.Config
	MaxRequestSize int
}

// Listener names, as accepted by Server.Addr.
const (
	ListenerRAC     = "rac"
	ListenerRACS    = "racs"
	ListenerWRAC    = "wrac"
	ListenerWRACS   = "wracs"
	ListenerMetrics = "metrics"
)

// Server runs the RAC, RACS, WRAC, WRACS and metrics listeners over one
// shared Handler.
type Server struct {
	Handler  *Handler
	Registry *prometheus.Registry

	cfg Config

	mu        sync.Mutex
	listeners map[string]net.Listener
}

// New creates a Server with an empty log and a private metrics registry.
func New(cfg Config) *Server {
	reg := prometheus.NewRegistry()
	h := NewHandler(NewMetrics(reg))
	h.MaxRequestSize = cfg.MaxRequestSize

	return &Server{
		Handler:   h,
		Registry:  reg,
		cfg:       cfg,
		listeners: make(map[string]net.Listener),
	}
}

// Listen binds every configured listener. On error nothing stays bound.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range []struct {
		name string
		addr string
		tls  bool
	}{
		{ListenerRAC, s.cfg.RACAddr, false},
		{ListenerRACS, s.cfg.RACSAddr, true},
		{ListenerWRAC, s.cfg.WRACAddr, false},
		{ListenerWRACS, s.cfg.WRACSAddr, true},
		{ListenerMetrics, s.cfg.MetricsAddr, false},
	} {
		if l.addr == "" {
			continue
		}
		if l.tls && s.cfg.TLSConfig == nil {
			s.closeListeners()
			return fmt.Errorf("%s listener: no tls config", l.name)
		}

		ln, err := net.Listen("tcp", l.addr)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("%s listener: %w", l.name, err)
		}
		if l.tls {
			ln = tls.NewListener(ln, s.cfg.TLSConfig)
		}
		s.listeners[l.name] = ln
	}

	if len(s.listeners) == 0 {
		return errors.New("no listeners configured")
	}
	return nil
}

func (s *Server) closeListeners() {
	for name, l := range s.listeners {
		l.Close()
		delete(s.listeners, name)
	}
}

// Addr returns the bound address of the named listener, or "" when it is
// not open.
func (s *Server) Addr(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listeners[name]; ok {
		return l.Addr().String()
	}
	return ""
}

// Run binds the listeners and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve serves on listeners bound by Listen until ctx is done or one of
// them fails. Open client connections are closed on return.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listeners := make(map[string]net.Listener, len(s.listeners))
	for name, l := range s.listeners {
		listeners[name] = l
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	var httpServers []*http.Server

	for name, l := range listeners {
		log.Printf("[%s] listening on %s", name, l.Addr())

		switch name {
		case ListenerRAC, ListenerRACS:
			g.Go(func() error { return s.acceptLoop(ctx, name, l) })
		case ListenerWRAC, ListenerWRACS:
			hs := &http.Server{Handler: s.Handler, ReadHeaderTimeout: 10 * time.Second}
			httpServers = append(httpServers, hs)
			g.Go(func() error { return serveHTTP(hs, l) })
		case ListenerMetrics:
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
			hs := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			httpServers = append(httpServers, hs)
			g.Go(func() error { return serveHTTP(hs, l) })
		}
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, hs := range httpServers {
			hs.Shutdown(shutdownCtx)
		}
		s.mu.Lock()
		s.closeListeners()
		s.mu.Unlock()
		s.Handler.CloseAll()
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, name string, l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s accept: %w", name, err)
		}
		go s.Handler.ServeRAC(conn)
	}
}

func serveHTTP(hs *http.Server, l net.Listener) error {
	if err := hs.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
