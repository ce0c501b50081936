package analysis

import (
	"strings"
	"sync"
)

// builderPool reuses strings.Builder instances to reduce allocations during normalization.
var builderPool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

// NormalizeEvent reduces a message to a signature shared by every
// occurrence of the same event: numbers, hexadecimal identifiers and quoted
// values become "?", and runs of whitespace collapse to one space.
//
// Example:
//
//	Input:  `pod "api-6f7d" failed after 3 retries (id 0x1f2e)`
//	Output: "pod ? failed after ? retries (id ?)"
func NormalizeEvent(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}

	buf := builderPool.Get().(*strings.Builder)
	buf.Reset()
	buf.Grow(len(msg))
	defer builderPool.Put(buf)

	lastWasSpace := false
	for i := 0; i < len(msg); i++ {
		c := msg[i]

		switch {
		case c == '"' || c == '`' || (c == '\'' && (i == 0 || !isIdentifierChar(msg[i-1]))):
			end := strings.IndexByte(msg[i+1:], c)
			if end < 0 {
				buf.WriteString(msg[i:])
				return buf.String()
			}
			buf.WriteByte('?')
			i += end + 1
			lastWasSpace = false
			continue

		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if !lastWasSpace {
				buf.WriteByte(' ')
				lastWasSpace = true
			}
			continue

		case isIdentifierChar(c) && (i == 0 || !isIdentifierChar(msg[i-1])):
			j := tokenEnd(msg, i)
			if variable(msg[i:j]) {
				buf.WriteByte('?')
				i = j - 1
				lastWasSpace = false
				continue
			}
			buf.WriteString(msg[i:j])
			i = j - 1
			lastWasSpace = false
			continue
		}

		buf.WriteByte(c)
		lastWasSpace = false
	}
	return strings.TrimRight(buf.String(), " ")
}

// tokenEnd returns the end of the identifier-like token starting at i.
// Dots, dashes and colons are part of the token, so that versions,
// addresses and UUIDs are read whole.
func tokenEnd(s string, i int) int {
	j := i
	for j < len(s) && (isIdentifierChar(s[j]) || s[j] == '.' || s[j] == '-' || s[j] == ':') {
		j++
	}
	for j > i+1 && (s[j-1] == '.' || s[j-1] == '-' || s[j-1] == ':') {
		j--
	}
	return j
}

// variable reports whether a token looks like a value rather than a word:
// a number, an address or version, a hex identifier of at least 8 digits,
// or a word with at least as many digits as letters.
func variable(tok string) bool {
	digits, letters := 0, 0
	allHex := true
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case isDigit(c):
			digits++
		case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
			letters++
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			letters++
			allHex = false
		default:
			allHex = false
		}
	}
	switch {
	case digits == 0:
		return false
	case letters == 0 || strings.ContainsAny(tok, "-.:"):
		return true
	case allHex && len(tok) >= 8:
		return true
	}
	return digits >= letters
}

func isIdentifierChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c) || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
