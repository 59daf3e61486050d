package provider

import (
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf16"
)

// The provider returns error bodies with JSON \uXXXX escapes left in place.
// A high surrogate may be followed by its low half.
var unicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})(?:\\u([dD][c-fC-F][0-9a-fA-F]{2}))?`)

// DecodeUnicodeEscapes replaces literal \uXXXX sequences with the characters
// they encode. Everything else is left untouched.
func DecodeUnicodeEscapes(text string) string {
	return unicodeEscape.ReplaceAllStringFunc(text, func(match string) string {
		groups := unicodeEscape.FindStringSubmatch(match)
		hi, _ := strconv.ParseUint(groups[1], 16, 16)
		if groups[2] == "" {
			return string(rune(hi))
		}
		lo, _ := strconv.ParseUint(groups[2], 16, 16)
		if r := utf16.DecodeRune(rune(hi), rune(lo)); r != unicode.ReplacementChar {
			return string(r)
		}
		return string(rune(hi)) + string(rune(lo))
	})
}
