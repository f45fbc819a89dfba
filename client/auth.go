package client

import (
	"fmt"
	"log"
	"strings"

	"github.com/rcoop/rac/internal/protocol"
)

// SendMessageSpoofAuth sends a message of the form "name> text" under the
// claimed name without owning that account.
//
// The message is first sent authenticated with name as both user name and
// password. If the server refuses, a shadow account (name prefixed with
// protocol.ShadowMarker) is registered with itself as password and the send
// is retried as that account. At most Config.MaxSpoofAttempts shadow
// accounts are tried. Messages without a "name> " prefix are sent plainly.
func (c *Conn) SendMessageSpoofAuth(message string) error {
	return c.sendSpoofAuth(message, c.cfg.MaxSpoofAttempts)
}

func (c *Conn) sendSpoofAuth(message string, attempts int) error {
	name, text, ok := strings.Cut(message, "> ")
	if !ok {
		return c.SendMessage(message)
	}

	status, err := c.SendMessageAuth(name, name, text)
	if err != nil {
		return fmt.Errorf("spoofed send as %q: %w", name, err)
	}
	if status == protocol.StatusOK {
		return nil
	}
	if attempts <= 0 {
		return fmt.Errorf("%w: %q: %s", ErrSpoofRejected, name, status)
	}

	shadow := protocol.ShadowName(name)
	log.Printf("[spoof] %q refused (%s), falling back to shadow account", name, status)

	// The shadow account may already exist from an earlier session; the
	// retry below settles whether it is usable.
	if _, err := c.RegisterUser(shadow, shadow); err != nil {
		return fmt.Errorf("registering shadow account: %w", err)
	}

	return c.sendSpoofAuth(shadow+">  "+text, attempts-1)
}
