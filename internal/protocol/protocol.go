package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rcoop/rac/internal/encoding"
)

// ParseRACURL parses a server URL of the form scheme://host[:port][/path].
// A missing scheme means rac. The path is ignored and the scheme's default
// port is appended when the host has none.
//
//	127.0.0.1          -> 127.0.0.1:42666, plain
//	racs://host/       -> host:42667, tls
//	wrac://host:1234   -> host:1234, websocket
//	wracs://host       -> host:52667, tls + websocket
func ParseRACURL(url string) (*Target, error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		scheme, rest = "rac", url
	}
	host, _, _ := strings.Cut(rest, "/")

	t := &Target{}
	var port int
	switch strings.ToLower(scheme) {
	case "rac":
		port = PortRAC
	case "racs":
		t.TLS = true
		port = PortRACS
	case "wrac":
		t.WebSocket = true
		port = PortWRAC
	case "wracs":
		t.TLS = true
		t.WebSocket = true
		port = PortWRACS
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrBadURL, scheme)
	}

	if host == "" {
		return nil, fmt.Errorf("%w: empty host in %q", ErrBadURL, url)
	}
	if !strings.Contains(host, ":") {
		host = fmt.Sprintf("%s:%d", host, port)
	}
	t.Host = host
	return t, nil
}

// ParseSocks5URL parses [scheme://][user:pass@]host:port[/path].
// The scheme and path are ignored.
func ParseSocks5URL(url string) (*Proxy, error) {
	if _, rest, ok := strings.Cut(url, "://"); ok {
		url = rest
	}
	url, _, _ = strings.Cut(url, "/")

	p := &Proxy{}
	if auth, addr, ok := strings.Cut(url, "@"); ok {
		if strings.Count(auth, ":") != 1 {
			return nil, fmt.Errorf("%w: credentials must be user:pass", ErrBadProxyURL)
		}
		p.Username, p.Password, _ = strings.Cut(auth, ":")
		p.HasAuth = true
		url = addr
	}

	if url == "" {
		return nil, fmt.Errorf("%w: empty address", ErrBadProxyURL)
	}
	p.Address = url
	return p, nil
}

// BuildSend builds a plain send request.
func BuildSend(message string) []byte {
	return append([]byte{OpSend}, message...)
}

// BuildRegister builds a registration request: name\npassword.
func BuildRegister(name, password string) []byte {
	b := []byte{OpRegister}
	b = append(b, name...)
	b = append(b, '\n')
	return append(b, password...)
}

// BuildAuthSend builds an authenticated send request: name\npassword\nmessage.
func BuildAuthSend(name, password, message string) []byte {
	b := []byte{OpAuthSend}
	b = append(b, name...)
	b = append(b, '\n')
	b = append(b, password...)
	b = append(b, '\n')
	return append(b, message...)
}

// BuildFetch builds the body request that follows a size query. A full fetch
// is a single byte; a partial fetch carries lastSize as decimal text.
func BuildFetch(full bool, lastSize int) []byte {
	if full {
		return []byte{OpFetchAll}
	}
	return append([]byte{OpFetchAfter}, encoding.FormatSize(lastSize)...)
}

// ParseRequest decodes one request as received by a server. afterSize reports
// whether the previous request on the connection was a bare size query, which
// changes the meaning of opcodes 0x01 and 0x02. A size query immediately
// followed by a fetch in the same buffer (the WRAC framing) is returned as a
// *FetchRequest. Returns one of *SizeQuery, *FetchRequest, *SendRequest,
// *AuthSendRequest or *RegisterRequest.
func ParseRequest(data []byte, afterSize bool) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadRequest)
	}

	if afterSize && (data[0] == OpFetchAll || data[0] == OpFetchAfter) {
		return parseFetch(data)
	}

	switch data[0] {
	case OpSizeQuery:
		if len(data) == 1 {
			return &SizeQuery{}, nil
		}
		return parseFetch(data[1:])
	case OpSend:
		return &SendRequest{Message: data[1:]}, nil
	case OpAuthSend:
		parts := bytes.SplitN(data[1:], []byte{'\n'}, 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: auth send: expected 3 fields, got %d", ErrBadRequest, len(parts))
		}
		return &AuthSendRequest{
			Name:     string(parts[0]),
			Password: string(parts[1]),
			Message:  parts[2],
		}, nil
	case OpRegister:
		parts := bytes.SplitN(data[1:], []byte{'\n'}, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: register: expected 2 fields, got %d", ErrBadRequest, len(parts))
		}
		return &RegisterRequest{Name: string(parts[0]), Password: string(parts[1])}, nil
	default:
		return nil, fmt.Errorf("%w: unknown opcode 0x%02x", ErrBadRequest, data[0])
	}
}

func parseFetch(data []byte) (*FetchRequest, error) {
	switch data[0] {
	case OpFetchAll:
		return &FetchRequest{Full: true}, nil
	case OpFetchAfter:
		offset, err := encoding.ParseSize(data[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: fetch offset: %v", ErrBadRequest, err)
		}
		return &FetchRequest{Offset: offset}, nil
	default:
		return nil, fmt.Errorf("%w: unknown fetch opcode 0x%02x", ErrBadRequest, data[0])
	}
}

// ShadowName returns the shadow account name for a claimed display name.
func ShadowName(name string) string {
	return string(ShadowMarker) + name
}
