package client

import (
	"strings"
	"unicode/utf8"
)

// DefaultMessageFormat is the outgoing template used by bRAC-compatible
// clients; the leading runes identify the client to other users.
const DefaultMessageFormat = "리㹰<{name}> {text}"

const (
	hideIPPrefix = "\r\x07"
	padWidth     = 54
)

// FormatMessage fills the {name} and {text} placeholders of format.
func FormatMessage(format, name, text string) string {
	return strings.NewReplacer("{name}", name, "{text}", text).Replace(format)
}

// PrepareMessage applies the sender IP policy. Servers append the sender's
// address after the message; a leading "\r\x07" makes clients hide it,
// otherwise the message is padded so the address lands in a column.
func PrepareMessage(message string, hideIP bool) string {
	if hideIP {
		return hideIPPrefix + message
	}
	if n := utf8.RuneCountInString(message); n < padWidth {
		return message + strings.Repeat(" ", padWidth-n)
	}
	return message
}
