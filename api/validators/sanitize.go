package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims s, drops control characters and invalid UTF-8, and
// keeps at most maxRunes characters. A non-positive maxRunes disables the cap.
func SanitizeString(s string, maxRunes int) string {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	var b strings.Builder
	b.Grow(len(s))
	kept := 0
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if maxRunes > 0 && kept == maxRunes {
			break
		}
		b.WriteRune(r)
		kept++
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
