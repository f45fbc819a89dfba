package encoding

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// MaxSizeDigits bounds a size field. A 64-bit length never needs more.
const MaxSizeDigits = 20

// FormatSize renders n as decimal ASCII text.
func FormatSize(n int) []byte {
	return strconv.AppendInt(nil, int64(n), 10)
}

// TrimNull strips leading and trailing NUL bytes.
func TrimNull(b []byte) []byte {
	return bytes.Trim(b, "\x00")
}

// ParseSize parses a decimal size field that may be padded or terminated
// with NUL bytes on either side.
func ParseSize(b []byte) (int, error) {
	s := string(TrimNull(b))
	if s == "" {
		return 0, fmt.Errorf("empty size field")
	}
	if len(s) > MaxSizeDigits {
		return 0, fmt.Errorf("size field too long: %d bytes", len(s))
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad size field %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size field %d", n)
	}
	return n, nil
}

// DecodeLossy decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func DecodeLossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
