package artifact

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode turns raw artifact bytes into text. A UTF-8 or UTF-16 byte order mark
// selects the encoding; invalid sequences become U+FFFD. It never fails.
func Decode(raw []byte) string {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		out = raw
	}
	return strings.ToValidUTF8(string(out), string(utf8.RuneError))
}

// cut returns the first n runes of s and whether anything was dropped
func cut(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
