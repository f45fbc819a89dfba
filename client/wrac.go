package client

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/rcoop/rac/internal/encoding"
	"github.com/rcoop/rac/internal/protocol"
)

// wracCodec speaks the WebSocket dialect: every request and response is one
// binary frame, with no NUL padding.
type wracCodec struct {
	ws     *websocket.Conn
	strict bool
}

func (c *wracCodec) write(op string, b []byte) error {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return ioError(op, err)
	}
	return nil
}

func (c *wracCodec) readBinary(op string) ([]byte, error) {
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, ioError(op, err)
	}
	if mt != websocket.BinaryMessage {
		return nil, protocolError("%s: expected binary frame, got type %d", op, mt)
	}
	return data, nil
}

func (c *wracCodec) querySize() (int, error) {
	if err := c.write("size query", []byte{protocol.OpSizeQuery}); err != nil {
		return 0, err
	}
	data, err := c.readBinary("read size")
	if err != nil {
		return 0, err
	}
	size, err := encoding.ParseSize(data)
	if err != nil {
		return 0, protocolError("size field: %v", err)
	}
	return size, nil
}

func (c *wracCodec) fetch(full bool, lastSize, want int) ([]byte, error) {
	req := append([]byte{protocol.OpSizeQuery}, protocol.BuildFetch(full, lastSize)...)
	if err := c.write("body request", req); err != nil {
		return nil, err
	}
	data, err := c.readBinary("read body")
	if err != nil {
		return nil, err
	}
	if len(data) > want {
		return nil, protocolError("body frame of %d bytes, requested %d", len(data), want)
	}
	return data, nil
}

func (c *wracCodec) send(message string) error {
	return c.write("send", protocol.BuildSend(message))
}

// readStatus returns the first byte of a binary answer. ok is false when the
// server sent nothing usable.
func (c *wracCodec) readStatus() (status byte, ok bool, err error) {
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return 0, false, err
	}
	if mt != websocket.BinaryMessage {
		return 0, false, nil
	}
	if len(data) == 0 {
		return 0, true, nil
	}
	return data[0], true, nil
}

func (c *wracCodec) register(name, password string) (bool, error) {
	if err := c.write("register", protocol.BuildRegister(name, password)); err != nil {
		return false, err
	}
	status, ok, err := c.readStatus()
	if err != nil || !ok {
		if c.strict {
			return false, noResponse("register", err)
		}
		return true, nil
	}
	return status == protocol.RegisterOK, nil
}

func (c *wracCodec) authSend(name, password, message string) (protocol.AuthStatus, error) {
	if err := c.write("auth send", protocol.BuildAuthSend(name, password, message)); err != nil {
		return 0, err
	}
	status, ok, err := c.readStatus()
	if err != nil || !ok {
		if c.strict {
			return 0, noResponse("auth send", err)
		}
		return protocol.StatusOK, nil
	}
	return protocol.AuthStatus(status), nil
}

// Close sends a close frame, best effort, and closes the transport.
func (c *wracCodec) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}
