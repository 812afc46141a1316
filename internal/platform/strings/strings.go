// Package strings holds small string and slice helpers
package strings

import (
	std "strings"
	"unicode"
)

// IfEmpty returns def if in is empty, otherwise in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// KeepWord drops every rune that is not an ASCII letter, digit or underscore
func KeepWord(s string) string {
	return std.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return r
		}
		return -1
	}, s)
}
