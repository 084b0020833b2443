package pdf

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// The core PDF fonts only cover Windows-1252.
var punctuation = strings.NewReplacer(
	"\u2192", "->",
	"\u2190", "<-",
	"\u2194", "<->",
	"\u00a0", " ",
	"\u202f", " ",
	"\u200b", "",
	"\u2212", "-",
	"\u2010", "-",
	"\u2011", "-",
)

// sanitize converts s to Windows-1252 bytes. Runes the code page lacks, such
// as emoji, are dropped after a few arrows and dashes are spelled out.
func sanitize(s string) string {
	s = punctuation.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteByte(byte(r))
			continue
		}
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		}
	}
	return b.String()
}
