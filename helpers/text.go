package helpers

import (
	"strings"
	"unicode"
)

// Normalize collapses every whitespace run, NBSP included, to a single space
// and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// StripSpaces removes every whitespace rune, NBSP included.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\u200b' || r == '\ufeff'
}
