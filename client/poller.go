package client

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller repeatedly reads the log and keeps the watermark and a bounded
// history between polls. It is safe for concurrent use.
type Poller struct {
	client      *Client
	maxMessages int
	chunked     bool
	interval    time.Duration

	// OnMessages, when set, receives every batch of new lines. reset is
	// true when the batch replaces the history instead of extending it.
	OnMessages func(lines []string, reset bool)

	pollMu sync.Mutex // serializes polls so two never share a watermark

	mu      sync.Mutex
	size    int
	history []string
}

// NewPoller creates a Poller reading through c.
func NewPoller(c *Client, maxMessages int, chunked bool, interval time.Duration) *Poller {
	return &Poller{
		client:      c,
		maxMessages: maxMessages,
		chunked:     chunked,
		interval:    interval,
	}
}

// Size returns the current watermark.
func (p *Poller) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// History returns a copy of the retained lines, oldest first.
func (p *Poller) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...)
}

// Reset forgets the watermark and history so the next poll reads the whole log.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = 0
	p.history = nil
}

// Poll performs one read and returns the new lines, if any.
func (p *Poller) Poll(ctx context.Context) ([]string, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	last := p.Size()
	page, err := p.client.ReadMessages(ctx, p.maxMessages, last, p.chunked)
	if err != nil || page == nil {
		return nil, err
	}

	reset := !p.chunked || last == 0 || page.Size < last

	p.mu.Lock()
	if reset {
		p.history = append([]string(nil), page.Messages...)
	} else {
		p.history = keepLast(append(p.history, page.Messages...), p.maxMessages)
	}
	p.size = page.Size
	p.mu.Unlock()

	if p.OnMessages != nil {
		p.OnMessages(page.Messages, reset)
	}
	return page.Messages, nil
}

// Run polls every interval until ctx is done. Failed polls are logged and
// the next tick proceeds as scheduled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[poll %s] read failed (retriable=%t): %v", p.client.URL(), IsRetriable(err), err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
