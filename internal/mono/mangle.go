package mono

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// symbolEscapes spells the punctuation of type labels inside symbols.
var symbolEscapes = map[rune]string{
	'<': "$LT$",
	'>': "$GT$",
	'&': "$RF$",
	'*': "$BP$",
	',': "$C$",
	' ': "$SP$",
	'(': "$LP$",
	')': "$RP$",
	'[': "$LB$",
	']': "$RB$",
	';': "$SC$",
}

// mangle derives a linker-safe symbol from an instance's display name. The
// encoding is reversible: ASCII letters, digits and '_' pass through, "::"
// becomes "..", and everything else is a '$'-delimited escape, so distinct
// names never share a symbol. Names arrive NFC-normalized from the loader.
func mangle(name string) string {
	var b strings.Builder
	b.Grow(len(name) + len(name)/2)
	for i := 0; i < len(name); {
		r, size := utf8.DecodeRuneInString(name[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, "$x%02x$", name[i])
		case r == ':' && strings.HasPrefix(name[i:], "::"):
			b.WriteString("..")
			size = 2
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteByte(byte(r))
		default:
			if esc, ok := symbolEscapes[r]; ok {
				b.WriteString(esc)
			} else {
				fmt.Fprintf(&b, "$u%x$", r)
			}
		}
		i += size
	}
	return b.String()
}
