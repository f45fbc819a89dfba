package client

import (
	"io"

	"github.com/rcoop/rac/internal/encoding"
	"github.com/rcoop/rac/internal/protocol"
	"github.com/rcoop/rac/internal/transport"
)

const (
	sizeFieldLen = 10       // single read used for the size field without RemoveNull
	maxNullRun   = 64 << 10 // leading NULs tolerated before a field
)

// racCodec speaks the raw-stream dialect. Requests carry no length prefix;
// numbers travel as decimal ASCII that the server may pad with NUL bytes.
type racCodec struct {
	s          transport.Stream
	removeNull bool
	strict     bool
}

func (c *racCodec) write(op string, b []byte) error {
	if _, err := c.s.Write(b); err != nil {
		return ioError(op, err)
	}
	return nil
}

// skipNull discards NUL bytes and returns the first non-NUL one.
func (c *racCodec) skipNull() (byte, error) {
	var b [1]byte
	for i := 0; i < maxNullRun; i++ {
		if _, err := io.ReadFull(c.s, b[:]); err != nil {
			return 0, err
		}
		if b[0] != 0 {
			return b[0], nil
		}
	}
	return 0, protocolError("more than %d leading NUL bytes", maxNullRun)
}

func (c *racCodec) querySize() (int, error) {
	if err := c.write("size query", []byte{protocol.OpSizeQuery}); err != nil {
		return 0, err
	}

	var field []byte
	if c.removeNull {
		first, err := c.skipNull()
		if err != nil {
			return 0, ioError("read size", err)
		}
		field = append(field, first)

		var b [1]byte
		for len(field) <= encoding.MaxSizeDigits {
			if _, err := io.ReadFull(c.s, b[:]); err != nil {
				return 0, ioError("read size", err)
			}
			if b[0] == 0 {
				break
			}
			field = append(field, b[0])
		}
	} else {
		buf := make([]byte, sizeFieldLen)
		n, err := c.s.Read(buf)
		if n == 0 && err != nil {
			return 0, ioError("read size", err)
		}
		field = buf[:n]
	}

	size, err := encoding.ParseSize(field)
	if err != nil {
		return 0, protocolError("size field: %v", err)
	}
	return size, nil
}

func (c *racCodec) fetch(full bool, lastSize, want int) ([]byte, error) {
	if err := c.write("body request", protocol.BuildFetch(full, lastSize)); err != nil {
		return nil, err
	}
	if want == 0 {
		return nil, nil
	}

	body := make([]byte, want)
	off := 0
	if c.removeNull {
		first, err := c.skipNull()
		if err != nil {
			return nil, ioError("read body", err)
		}
		body[0] = first
		off = 1
	}
	if _, err := io.ReadFull(c.s, body[off:]); err != nil {
		return nil, ioError("read body", err)
	}
	return body, nil
}

func (c *racCodec) send(message string) error {
	return c.write("send", protocol.BuildSend(message))
}

// readStatus reads the one-byte answer to register and authenticated send.
// A status is never padded and 0x00 means success, so it is read raw even
// in RemoveNull mode.
func (c *racCodec) readStatus() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *racCodec) register(name, password string) (bool, error) {
	if err := c.write("register", protocol.BuildRegister(name, password)); err != nil {
		return false, err
	}
	status, err := c.readStatus()
	if err != nil {
		if c.strict {
			return false, noResponse("register", err)
		}
		return true, nil
	}
	return status == protocol.RegisterOK, nil
}

func (c *racCodec) authSend(name, password, message string) (protocol.AuthStatus, error) {
	if err := c.write("auth send", protocol.BuildAuthSend(name, password, message)); err != nil {
		return 0, err
	}
	status, err := c.readStatus()
	if err != nil {
		if c.strict {
			return 0, noResponse("auth send", err)
		}
		return protocol.StatusOK, nil
	}
	return protocol.AuthStatus(status), nil
}
