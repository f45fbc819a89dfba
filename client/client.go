package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcoop/rac/internal/protocol"
)

// pingPollInterval is the pause between reads while waiting for a ping
// marker to show up in the log.
const pingPollInterval = 100 * time.Millisecond

// Client runs each operation on a fresh connection to one server, the way
// RAC clients are expected to behave.
type Client struct {
	url string
	cfg Config
}

// New creates a Client for the server at url.
func New(url string, cfg Config) *Client {
	return &Client{url: url, cfg: cfg.withDefaults()}
}

// URL returns the server URL.
func (c *Client) URL() string { return c.url }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Connect opens a connection for a multi-step exchange. The caller closes it.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	return Connect(ctx, c.url, c.cfg)
}

func (c *Client) do(ctx context.Context, fn func(*Conn) error) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// ReadMessages polls the log on a fresh connection. See Conn.ReadMessages.
func (c *Client) ReadMessages(ctx context.Context, maxMessages, lastSize int, chunked bool) (*Page, error) {
	var page *Page
	err := c.do(ctx, func(conn *Conn) error {
		var err error
		page, err = conn.ReadMessages(maxMessages, lastSize, chunked)
		return err
	})
	return page, err
}

// Size returns the current log size.
func (c *Client) Size(ctx context.Context) (int, error) {
	var size int
	err := c.do(ctx, func(conn *Conn) error {
		var err error
		size, err = conn.Size()
		return err
	})
	return size, err
}

// SendMessage appends an unauthenticated message.
func (c *Client) SendMessage(ctx context.Context, message string) error {
	return c.do(ctx, func(conn *Conn) error {
		return conn.SendMessage(message)
	})
}

// RegisterUser creates an account; false means the name is taken.
func (c *Client) RegisterUser(ctx context.Context, name, password string) (bool, error) {
	var ok bool
	err := c.do(ctx, func(conn *Conn) error {
		var err error
		ok, err = conn.RegisterUser(name, password)
		return err
	})
	return ok, err
}

// SendMessageAuth appends a message as a registered user.
func (c *Client) SendMessageAuth(ctx context.Context, name, password, message string) (protocol.AuthStatus, error) {
	var status protocol.AuthStatus
	err := c.do(ctx, func(conn *Conn) error {
		var err error
		status, err = conn.SendMessageAuth(name, password, message)
		return err
	})
	return status, err
}

// SendMessageSpoofAuth sends "name> text" under the claimed name. The whole
// fallback sequence runs on one connection. See Conn.SendMessageSpoofAuth.
func (c *Client) SendMessageSpoofAuth(ctx context.Context, message string) error {
	return c.do(ctx, func(conn *Conn) error {
		return conn.SendMessageSpoofAuth(message)
	})
}

// Ping measures how long a message takes to appear in the log: it sends a
// unique marker and polls until a line containing it is read back. ctx
// bounds the wait.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	before, err := c.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}

	marker := fmt.Sprintf("Checking ping... %X", time.Now().UnixMilli())
	if err := c.SendMessage(ctx, marker); err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}
	start := time.Now()

	for {
		page, err := c.ReadMessages(ctx, 0, before, true)
		if err == nil && page != nil {
			for _, line := range page.Messages {
				if strings.Contains(line, marker) {
					return time.Since(start), nil
				}
			}
			before = page.Size
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("ping: %w", ctx.Err())
		case <-time.After(pingPollInterval):
		}
	}
}
