package client

import (
	"strings"

	"github.com/rcoop/rac/internal/encoding"
)

// Page is the result of a poll that found new data.
type Page struct {
	// Messages holds at most the requested number of lines, oldest first.
	Messages []string
	// Size is the log size the messages were read at. Pass it as lastSize
	// to the next ReadMessages call.
	Size int
}

// ReadMessages polls the log. lastSize is the Size of the previous Page (0
// on the first poll). A nil Page with a nil error means nothing changed
// since lastSize.
//
// With chunked set and a known lastSize only the bytes appended since then
// are fetched; otherwise the whole log is. If the server reports a log
// smaller than lastSize the log was reset and the whole log is fetched.
func (c *Conn) ReadMessages(maxMessages, lastSize int, chunked bool) (*Page, error) {
	size, err := c.codec.querySize()
	if err != nil {
		return nil, err
	}
	if size == lastSize {
		return nil, nil
	}

	full := !chunked || lastSize == 0 || size < lastSize
	want := size
	if !full {
		want = size - lastSize
	}
	if int64(want) > c.cfg.MaxMessageSize {
		return nil, protocolError("body of %d bytes exceeds limit %d", want, c.cfg.MaxMessageSize)
	}

	body, err := c.codec.fetch(full, lastSize, want)
	if err != nil {
		return nil, err
	}

	return &Page{Messages: SplitMessages(body, maxMessages), Size: size}, nil
}

// SplitMessages decodes a log payload (invalid UTF-8 is replaced, never
// rejected) and splits it into lines, keeping only the last maxMessages.
// A terminating newline does not produce an empty last line. maxMessages
// <= 0 keeps every line.
func SplitMessages(body []byte, maxMessages int) []string {
	if len(body) == 0 {
		return []string{}
	}

	text := strings.TrimSuffix(encoding.DecodeLossy(body), "\n")
	lines := strings.Split(text, "\n")
	return keepLast(lines, maxMessages)
}

func keepLast(lines []string, n int) []string {
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
