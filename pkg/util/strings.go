package util

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLogBodySize is the default maximum body size for logging (4KB).
const MaxLogBodySize = 4 * 1024

const truncatedSuffix = "...(truncated)"

// TruncateBody caps data at maxSize bytes and marks the cut. The cut never
// splits a UTF-8 sequence. If maxSize <= 0, uses MaxLogBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) <= maxSize {
		return data
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut] + truncatedSuffix
}

// Printable truncates s like TruncateBody and escapes control characters,
// so raw socket payloads stay on one log line.
func Printable(s string, maxSize int) string {
	s = TruncateBody(s, maxSize)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
