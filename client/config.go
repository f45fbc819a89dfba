package client

import "time"

const (
	DefaultTimeout          = 15 * time.Second
	DefaultMaxMessageSize   = 512 << 20 // one WRAC frame may carry the whole log
	DefaultMaxSpoofAttempts = 1
)

// Config holds the connection and protocol settings shared by every
// operation.
type Config struct {
	// Timeout bounds dialing and every individual read and write.
	Timeout time.Duration

	// MaxMessageSize caps a single body fetch (RAC) or frame (WRAC).
	MaxMessageSize int64

	// InsecureSkipVerify disables TLS certificate and hostname checks for
	// racs:// and wracs:// servers. Most RAC deployments use self-signed
	// certificates, so DefaultConfig enables it.
	InsecureSkipVerify bool

	// RemoveNull selects the NUL-skipping read discipline of the RAC dialect:
	// leading NUL bytes before a size field or body are discarded and the
	// size field is read until its NUL terminator. When false the size field
	// is read with a single fixed-size read. Status bytes are always read
	// as-is.
	RemoveNull bool

	// Resolver is an optional DNS server (host:port) used instead of the
	// system resolver for direct connections.
	Resolver string

	// Proxy is an optional SOCKS5 URL: [scheme://][user:pass@]host:port.
	Proxy string

	// MaxSpoofAttempts caps how many shadow accounts one spoofed send may
	// register before giving up. Zero means the default; a negative value
	// disables the fallback.
	MaxSpoofAttempts int

	// StrictResponses makes a missing status byte after register or
	// authenticated send an ErrNoResponse instead of an implicit success.
	StrictResponses bool
}

// DefaultConfig returns the settings used by the reference client.
func DefaultConfig() Config {
	return Config{
		Timeout:            DefaultTimeout,
		MaxMessageSize:     DefaultMaxMessageSize,
		InsecureSkipVerify: true,
		MaxSpoofAttempts:   DefaultMaxSpoofAttempts,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.MaxSpoofAttempts == 0 {
		c.MaxSpoofAttempts = DefaultMaxSpoofAttempts
	}
	return c
}
