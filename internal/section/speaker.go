package section

import "strings"

// RoleAttributes are the node attributes consulted for an explicit speaker, in order.
var RoleAttributes = []string{"data-role", "data-author"}

// Classify assigns a badge to a section.
//
// attr is the first non-empty role attribute of the node, text its visible text and
// prev the badge of the previous accepted entry in the same pass (nil for the first).
// When neither attr nor text name a speaker the badge alternates from prev, which
// mislabels turns that do not strictly alternate.
func Classify(attr, text string, prev *Badge) Badge {
	if b, ok := badgeIn(attr); ok {
		return b
	}
	if b, ok := badgeIn(text); ok {
		return b
	}
	if prev != nil {
		return prev.Opposite()
	}
	return BadgeUser
}

// badgeIn scans s for an "assistant" or "user" token, case-insensitively.
// Assistant wins when both appear.
func badgeIn(s string) (Badge, bool) {
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "assistant") {
		return BadgeAssistant, true
	}
	if strings.Contains(lower, "user") {
		return BadgeUser, true
	}
	return "", false
}
