package server

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rcoop/rac/internal/encoding"
	"github.com/rcoop/rac/internal/protocol"
)

// DefaultMaxRequestSize bounds one request: a single read on a RAC stream
// or one frame on a WRAC connection.
const DefaultMaxRequestSize = 64 << 10

const (
	dialectRAC  = "rac"
	dialectWRAC = "wrac"
)

// Handler serves RAC streams and WRAC WebSocket connections against one
// log and account store.
type Handler struct {
	Log            *MessageLog
	Accounts       *Accounts
	Metrics        *Metrics
	MaxRequestSize int

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[io.Closer]struct{}
}

// NewHandler creates a Handler with an empty log and account store.
func NewHandler(m *Metrics) *Handler {
	return &Handler{
		Log:      NewMessageLog(),
		Accounts: NewAccounts(),
		Metrics:  m,
	}
}

// session is the per-connection request state.
type session struct {
	id      string
	dialect string

	// afterSize is set while the previous RAC request was a bare size
	// query, which turns 0x01 and 0x02 into fetches.
	afterSize bool

	// reported is the size answered to the last size query, or -1. A
	// fetch serves the log up to this point so the body matches the size
	// the client was told.
	reported int
}

func newSession(id, dialect string) *session {
	return &session{id: id, dialect: dialect, reported: -1}
}

func (h *Handler) maxRequestSize() int {
	if h.MaxRequestSize > 0 {
		return h.MaxRequestSize
	}
	return DefaultMaxRequestSize
}

func (h *Handler) track(c io.Closer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns == nil {
		h.conns = make(map[io.Closer]struct{})
	}
	h.conns[c] = struct{}{}
}

func (h *Handler) untrack(c io.Closer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// CloseAll closes every open client connection.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
	h.conns = nil
}

// ServeRAC serves one raw RAC stream until the client disconnects. Requests
// carry no framing: each read is taken as one request.
func (h *Handler) ServeRAC(conn net.Conn) {
	h.track(conn)
	defer h.untrack(conn)
	defer conn.Close()

	sess := newSession(conn.RemoteAddr().String(), dialectRAC)
	h.Metrics.connOpened(sess.dialect)
	defer h.Metrics.connClosed(sess.dialect)

	buf := make([]byte, h.maxRequestSize())
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("[%s] read error: %v", sess.id, err)
			}
			return
		}

		req, err := protocol.ParseRequest(buf[:n], sess.afterSize)
		if err != nil {
			h.Metrics.badRequest(sess.dialect)
			log.Printf("[%s] %v", sess.id, err)
			return
		}

		reply, ok := h.dispatch(sess, req)
		if !ok || len(reply) == 0 {
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			log.Printf("[%s] write error: %v", sess.id, err)
			return
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and serves WRAC frames.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[%s] websocket upgrade: %v", r.RemoteAddr, err)
		return
	}
	h.track(ws)
	defer h.untrack(ws)
	defer ws.Close()
	ws.SetReadLimit(int64(h.maxRequestSize()))

	sess := newSession(r.RemoteAddr, dialectWRAC)
	h.Metrics.connOpened(sess.dialect)
	defer h.Metrics.connClosed(sess.dialect)

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				log.Printf("[%s] read error: %v", sess.id, err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			h.Metrics.badRequest(sess.dialect)
			continue
		}

		// Fetches arrive prefixed with the size query opcode, so the
		// previous request never changes how a frame is read.
		req, err := protocol.ParseRequest(data, false)
		if err != nil {
			h.Metrics.badRequest(sess.dialect)
			log.Printf("[%s] %v", sess.id, err)
			continue
		}

		reply, ok := h.dispatch(sess, req)
		if !ok {
			continue
		}
		if err := ws.WriteMessage(websocket.BinaryMessage, reply); err != nil {
			log.Printf("[%s] write error: %v", sess.id, err)
			return
		}
	}
}

// dispatch applies one request and returns the reply. ok is false for
// requests that get no answer.
func (h *Handler) dispatch(sess *session, req interface{}) (reply []byte, ok bool) {
	sess.afterSize = false

	switch r := req.(type) {
	case *protocol.SizeQuery:
		h.Metrics.request(sess.dialect, "size")
		size := h.Log.Size()
		sess.reported = size
		sess.afterSize = true
		reply = encoding.FormatSize(size)
		if sess.dialect == dialectRAC {
			reply = append(reply, 0)
		}
		return reply, true

	case *protocol.FetchRequest:
		h.Metrics.request(sess.dialect, "fetch")
		end := sess.reported
		sess.reported = -1
		if end < 0 {
			end = h.Log.Size()
		}
		if r.Full {
			return h.Log.Slice(0, end), true
		}
		return h.Log.Slice(r.Offset, end), true

	case *protocol.SendRequest:
		h.Metrics.request(sess.dialect, "send")
		h.Metrics.setLogSize(h.Log.Append(r.Message))
		return nil, false

	case *protocol.AuthSendRequest:
		h.Metrics.request(sess.dialect, "auth_send")
		status := h.Accounts.Authenticate(r.Name, r.Password)
		if status != protocol.StatusOK {
			h.Metrics.authFailure(status.String())
			log.Printf("[%s] auth send as %q refused: %s", sess.id, r.Name, status)
			return []byte{byte(status)}, true
		}
		line := append([]byte("<"+r.Name+"> "), r.Message...)
		h.Metrics.setLogSize(h.Log.Append(line))
		return []byte{byte(status)}, true

	case *protocol.RegisterRequest:
		h.Metrics.request(sess.dialect, "register")
		created, err := h.Accounts.Register(r.Name, r.Password)
		if err != nil {
			log.Printf("[%s] %v", sess.id, err)
		}
		h.Metrics.registration(created)
		if !created {
			return []byte{protocol.RegisterExists}, true
		}
		log.Printf("[%s] registered %q", sess.id, r.Name)
		return []byte{protocol.RegisterOK}, true

	default:
		return nil, false
	}
}
