package server

import (
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcoop/rac/internal/protocol"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

// racPeer serves one net.Pipe end with h and returns the client end.
func racPeer(t *testing.T, h *Handler) net.Conn {
	t.Helper()
	client, srv := net.Pipe()
	go h.ServeRAC(srv)
	t.Cleanup(func() { client.Close() })
	client.SetDeadline(time.Now().Add(5 * time.Second))
	return client
}

func roundTrip(t *testing.T, c net.Conn, req []byte) []byte {
	t.Helper()
	_, err := c.Write(req)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	n, err := c.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestServeRACReadFlow(t *testing.T) {
	h := NewHandler(NewMetrics(prometheus.NewRegistry()))
	h.Log.Append([]byte("first"))
	h.Log.Append([]byte("second"))
	c := racPeer(t, h)

	assert.Equal(t, []byte("13\x00"), roundTrip(t, c, []byte{protocol.OpSizeQuery}))
	assert.Equal(t, []byte("first\nsecond\n"), roundTrip(t, c, []byte{protocol.OpFetchAll}))

	assert.Equal(t, []byte("13\x00"), roundTrip(t, c, []byte{protocol.OpSizeQuery}))
	assert.Equal(t, []byte("second\n"), roundTrip(t, c, []byte("\x026")))

	assert.Equal(t, float64(2), counterValue(t, h.Metrics.requests.WithLabelValues("rac", "size")))
	assert.Equal(t, float64(2), counterValue(t, h.Metrics.requests.WithLabelValues("rac", "fetch")))
}

func TestServeRACFetchServesReportedSize(t *testing.T) {
	h := NewHandler(nil)
	h.Log.Append([]byte("abc"))
	c := racPeer(t, h)

	assert.Equal(t, []byte("4\x00"), roundTrip(t, c, []byte{protocol.OpSizeQuery}))
	h.Log.Append([]byte("later"))
	assert.Equal(t, []byte("abc\n"), roundTrip(t, c, []byte{protocol.OpFetchAll}))
}

func TestServeRACSendAndAuth(t *testing.T) {
	h := NewHandler(NewMetrics(prometheus.NewRegistry()))
	c := racPeer(t, h)

	_, err := c.Write(protocol.BuildSend("plain"))
	require.NoError(t, err)

	assert.Equal(t, []byte{protocol.RegisterOK}, roundTrip(t, c, protocol.BuildRegister("bob", "pw")))
	assert.Equal(t, []byte{protocol.RegisterExists}, roundTrip(t, c, protocol.BuildRegister("bob", "x")))

	assert.Equal(t, []byte{byte(protocol.StatusOK)}, roundTrip(t, c, protocol.BuildAuthSend("bob", "pw", "hello")))
	assert.Equal(t, []byte{byte(protocol.StatusWrongPassword)}, roundTrip(t, c, protocol.BuildAuthSend("bob", "no", "x")))
	assert.Equal(t, []byte{byte(protocol.StatusUnknownUser)}, roundTrip(t, c, protocol.BuildAuthSend("eve", "no", "x")))

	assert.Equal(t, []byte("plain\n<bob> hello\n"), h.Log.Slice(0, -1))
	assert.Equal(t, float64(len("plain\n<bob> hello\n")), gaugeValue(t, h.Metrics.logSize))
	assert.Equal(t, float64(1), counterValue(t, h.Metrics.registrations.WithLabelValues("created")))
	assert.Equal(t, float64(1), counterValue(t, h.Metrics.registrations.WithLabelValues("exists")))
	assert.Equal(t, float64(1), counterValue(t, h.Metrics.authFailures.WithLabelValues("wrong password")))
}

func TestServeRACOpcodeAfterSize(t *testing.T) {
	h := NewHandler(nil)
	c := racPeer(t, h)

	// 0x01 right after a size query is a fetch, not a send.
	assert.Equal(t, []byte("0\x00"), roundTrip(t, c, []byte{protocol.OpSizeQuery}))
	_, err := c.Write([]byte{protocol.OpFetchAll})
	require.NoError(t, err)

	// Top level again, so this one is a send.
	_, err = c.Write(protocol.BuildSend("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2\x00"), roundTrip(t, c, []byte{protocol.OpSizeQuery}))
}

func TestServeRACBadRequestDrops(t *testing.T) {
	h := NewHandler(NewMetrics(prometheus.NewRegistry()))
	c := racPeer(t, h)

	_, err := c.Write([]byte{0x7f})
	require.NoError(t, err)

	_, err = c.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Equal(t, float64(1), counterValue(t, h.Metrics.badRequests.WithLabelValues("rac")))
}

func TestServeWRAC(t *testing.T) {
	h := NewHandler(nil)
	h.Log.Append([]byte("one"))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	exchange := func(req []byte) []byte {
		t.Helper()
		require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, req))
		mt, data, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		return data
	}

	assert.Equal(t, []byte("4"), exchange([]byte{protocol.OpSizeQuery}))
	assert.Equal(t, []byte("one\n"), exchange([]byte{protocol.OpSizeQuery, protocol.OpFetchAll}))
	assert.Equal(t, []byte("ne\n"), exchange([]byte("\x00\x021")))

	// Text frames are ignored.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte{protocol.OpSizeQuery}))
	assert.Equal(t, []byte{protocol.RegisterOK}, exchange(protocol.BuildRegister("bob", "pw")))

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, protocol.BuildSend("two")))
	assert.Equal(t, []byte("8"), exchange([]byte{protocol.OpSizeQuery}))
	assert.Equal(t, []byte{}, exchange([]byte("\x00\x028")))
}
