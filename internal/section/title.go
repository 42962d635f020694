package section

import (
	"regexp"
	"strings"
)

var (
	// headingPattern matches "# Title" through "#### Title".
	headingPattern = regexp.MustCompile(`^#{1,4}\s*(.*)$`)

	// boldPattern matches a line that opens with **bold** text.
	boldPattern = regexp.MustCompile(`^\*\*(.+?)\*\*`)

	// separatorPattern matches horizontal rules such as ---, ___ or ===.
	separatorPattern = regexp.MustCompile(`^[-_=]{3,}$`)

	// sentencePattern matches a leading sentence terminated by . ? or ! followed by a
	// space or the end of input. "v1.2" does not end a sentence.
	sentencePattern = regexp.MustCompile(`^(.+?[.?!])(?:\s|$)`)
)

// ExtractTitle derives a short label from the visible text of a node.
// It returns false when the text is blank; such nodes are not indexed.
//
// Rules, in order:
//  1. first line is a heading (#..####): the heading text
//  2. first line opens with **bold**: the bold text
//  3. a separator line below the first line: the whole line right above it
//  4. otherwise the first line, cut to its first sentence when it holds several
//  5. first line is itself a separator: first sentence of the remaining text
//  6. the first line
func ExtractTitle(text string) (string, bool) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return "", false
	}
	first := lines[0]

	if m := headingPattern.FindStringSubmatch(first); m != nil && strings.TrimSpace(m[1]) != "" {
		return Truncate(m[1]), true
	}
	if m := boldPattern.FindStringSubmatch(first); m != nil && strings.TrimSpace(m[1]) != "" {
		return Truncate(m[1]), true
	}

	if idx := separatorIndex(lines); idx > 0 {
		return Truncate(lines[idx-1]), true
	}
	if !separatorPattern.MatchString(first) {
		return Truncate(firstSentence(first)), true
	}

	var rest []string
	for _, l := range lines {
		if !separatorPattern.MatchString(l) {
			rest = append(rest, l)
		}
	}
	if len(rest) > 0 {
		return Truncate(firstSentence(strings.Join(rest, " "))), true
	}
	return Truncate(first), true
}

// nonBlankLines splits text into trimmed, non-empty lines.
func nonBlankLines(text string) []string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// separatorIndex returns the index of the first separator line, or -1.
func separatorIndex(lines []string) int {
	for i, l := range lines {
		if separatorPattern.MatchString(l) {
			return i
		}
	}
	return -1
}

// firstSentence returns the leading sentence of s, or s when no terminator is found.
func firstSentence(s string) string {
	if m := sentencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
