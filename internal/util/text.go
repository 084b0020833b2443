package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Normalize trims and lower-cases chat input for keyword comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
