package section

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTitleRunes is the longest title kept before truncation.
const MaxTitleRunes = 60

// Ellipsis is appended to truncated titles.
const Ellipsis = "…"

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Truncate cuts s to MaxTitleRunes runes and appends Ellipsis when it is longer.
// Counting is in runes so multi-byte titles are never split mid-character.
func Truncate(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxTitleRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxTitleRunes]) + Ellipsis
}

// Matches reports whether the entry title contains the search term.
// An empty term matches everything.
func Matches(title, term string) bool {
	return strings.Contains(Normalize(title), Normalize(term))
}
