package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FirstLine returns the first line of text, without its line terminator.
func FirstLine(text string) string {
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}

// CleanLine normalizes s to NFC, drops control characters, and collapses runs
// of whitespace into single spaces.
func CleanLine(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
		case unicode.IsControl(r):
		default:
			if space {
				b.WriteByte(' ')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
