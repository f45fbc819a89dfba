package client

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcoop/rac/internal/protocol"
)

// frame is one scripted WebSocket message.
type frame struct {
	kind int
	data []byte
}

func binary(s string) frame { return frame{websocket.BinaryMessage, []byte(s)} }

// wracStep is one request the scripted server expects and its replies.
type wracStep struct {
	want    []byte
	replies []frame
}

// startWRAC serves one WebSocket connection that follows steps, then waits
// for the client to close.
func startWRAC(t *testing.T, steps ...wracStep) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer ws.Close()

		for _, step := range steps {
			mt, data, err := ws.ReadMessage()
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, websocket.BinaryMessage, mt)
			assert.Equal(t, step.want, data)
			for _, f := range step.replies {
				if err := ws.WriteMessage(f.kind, f.data); err != nil {
					return
				}
			}
		}
		ws.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return "wrac://" + strings.TrimPrefix(srv.URL, "http://")
}

func dialWRAC(t *testing.T, url string, cfg Config) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Connect(ctx, url, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Equal(t, DialectWRAC, conn.Dialect())
	return conn
}

func TestWRACSize(t *testing.T) {
	url := startWRAC(t, wracStep{[]byte{0x00}, []frame{binary("123")}})
	conn := dialWRAC(t, url, Config{})

	size, err := conn.Size()
	require.NoError(t, err)
	assert.Equal(t, 123, size)
}

func TestWRACReadMessagesChunked(t *testing.T) {
	url := startWRAC(t,
		wracStep{[]byte{0x00}, []frame{binary("140")}},
		wracStep{[]byte("\x00\x02100"), []frame{binary(strings.Repeat("x", 39) + "\n")}},
	)
	conn := dialWRAC(t, url, Config{})

	page, err := conn.ReadMessages(10, 100, true)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 140, page.Size)
	assert.Equal(t, []string{strings.Repeat("x", 39)}, page.Messages)
}

func TestWRACReadMessagesFull(t *testing.T) {
	url := startWRAC(t,
		wracStep{[]byte{0x00}, []frame{binary("4")}},
		wracStep{[]byte{0x00, 0x01}, []frame{binary("a\nb\n")}},
	)
	conn := dialWRAC(t, url, Config{})

	page, err := conn.ReadMessages(0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page.Messages)
}

func TestWRACOversizedFrame(t *testing.T) {
	url := startWRAC(t,
		wracStep{[]byte{0x00}, []frame{binary("5")}},
		wracStep{[]byte{0x00, 0x01}, []frame{binary("0123456789")}},
	)
	conn := dialWRAC(t, url, Config{})

	_, err := conn.ReadMessages(0, 0, false)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestWRACTextFrame(t *testing.T) {
	url := startWRAC(t, wracStep{[]byte{0x00}, []frame{{websocket.TextMessage, []byte("5")}}})
	conn := dialWRAC(t, url, Config{})

	_, err := conn.Size()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestWRACReadLimit(t *testing.T) {
	url := startWRAC(t, wracStep{[]byte{0x00}, []frame{binary(strings.Repeat("1", 64))}})
	conn := dialWRAC(t, url, Config{MaxMessageSize: 16})

	_, err := conn.Size()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestWRACRegisterAndAuth(t *testing.T) {
	url := startWRAC(t,
		wracStep{protocol.BuildRegister("bob", "pw"), []frame{binary("\x01")}},
		wracStep{protocol.BuildAuthSend("bob", "pw", "hi"), []frame{binary("\x00")}},
		wracStep{protocol.BuildSend("plain"), nil},
	)
	conn := dialWRAC(t, url, Config{})

	ok, err := conn.RegisterUser("bob", "pw")
	require.NoError(t, err)
	assert.False(t, ok)

	status, err := conn.SendMessageAuth("bob", "pw", "hi")
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusOK, status)

	require.NoError(t, conn.SendMessage("plain"))
}

func TestWRACMissingStatus(t *testing.T) {
	text := []frame{{websocket.TextMessage, []byte("?")}}

	t.Run("lenient", func(t *testing.T) {
		url := startWRAC(t, wracStep{protocol.BuildRegister("bob", "pw"), text})
		conn := dialWRAC(t, url, Config{})

		ok, err := conn.RegisterUser("bob", "pw")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("strict", func(t *testing.T) {
		url := startWRAC(t, wracStep{protocol.BuildRegister("bob", "pw"), text})
		conn := dialWRAC(t, url, Config{StrictResponses: true})

		_, err := conn.RegisterUser("bob", "pw")
		assert.ErrorIs(t, err, ErrNoResponse)
	})
}

func TestWRACHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := Connect(context.Background(), "wrac://"+strings.TrimPrefix(srv.URL, "http://"), Config{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrWebSocketHandshake)
	assert.True(t, IsRetriable(err))
}

func TestConnectErrors(t *testing.T) {
	_, err := Connect(context.Background(), "http://host", Config{})
	assert.ErrorIs(t, err, ErrURLParse)
	assert.False(t, IsRetriable(err))

	_, err = Connect(context.Background(), "rac://host", Config{Proxy: "a:b:c@host:1"})
	assert.ErrorIs(t, err, ErrProxyParse)
	assert.False(t, IsRetriable(err))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = Connect(context.Background(), "rac://"+addr, Config{Timeout: time.Second})
	assert.ErrorIs(t, err, ErrConnect)
	assert.True(t, IsRetriable(err))
}
