package section

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Badge labels the speaker of a section.
type Badge string

const (
	BadgeUser      Badge = "User"
	BadgeAssistant Badge = "Assistant"
)

// Opposite returns the other badge. Used by the alternation fallback.
func (b Badge) Opposite() Badge {
	if b == BadgeAssistant {
		return BadgeUser
	}
	return BadgeAssistant
}

// ParseBadge maps a case-insensitive badge name to a Badge.
func ParseBadge(s string) (Badge, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return BadgeUser, true
	case "assistant":
		return BadgeAssistant, true
	}
	return "", false
}

// UnmarshalJSON accepts any casing of a known badge.
func (b *Badge) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseBadge(s)
	if !ok {
		return fmt.Errorf("unknown badge %q", s)
	}
	*b = parsed
	return nil
}

// Entry is one indexed content node.
// Entries are recreated on every rebuild; only AnchorID survives across rebuilds.
type Entry[N comparable] struct {
	// Title is the heuristic label, at most MaxTitleRunes runes plus an ellipsis
	Title string

	// Badge is the speaker role
	Badge Badge

	// Position is the 1-based rank among accepted entries, in document order
	Position int

	// AnchorID is the durable marker attached to Node
	AnchorID string

	// Node is a non-owning reference to the content node
	Node N
}

// Key returns the dedup key of the entry.
func (e Entry[N]) Key() string {
	return DedupKey(e.Title, e.AnchorID)
}

// Summary returns the transport-safe projection of the entry.
func (e Entry[N]) Summary() Summary {
	return Summary{
		Title:    e.Title,
		Badge:    e.Badge,
		Position: e.Position,
	}
}

// Summary is the projection of an Entry that carries no node reference.
// It is what gets sent over transports and cached by the background store.
type Summary struct {
	Title    string `json:"title"`
	Badge    Badge  `json:"badge"`
	Position int    `json:"position"`
}

// Label renders the position the way the panel shows it ("#3").
func (s Summary) Label() string {
	return fmt.Sprintf("#%d", s.Position)
}

// MarshalJSON writes the position as its "#n" label.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title    string `json:"title"`
		Badge    Badge  `json:"badge"`
		Position string `json:"position"`
	}{s.Title, s.Badge, s.Label()})
}

// UnmarshalJSON reads a position given either as "#n" or as a bare number.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var wire struct {
		Title    string          `json:"title"`
		Badge    Badge           `json:"badge"`
		Position json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	pos, err := parsePosition(wire.Position)
	if err != nil {
		return err
	}
	*s = Summary{Title: wire.Title, Badge: wire.Badge, Position: pos}
	return nil
}

func parsePosition(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return 0, fmt.Errorf("invalid position %s", raw)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(label), "#"))
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", label)
	}
	return n, nil
}

// Summaries projects an index into its transport-safe form.
func Summaries[N comparable](entries []Entry[N]) []Summary {
	out := make([]Summary, len(entries))
	for i, e := range entries {
		out[i] = e.Summary()
	}
	return out
}

// DedupKey builds the key that must be unique within a published index.
func DedupKey(title, anchorID string) string {
	return Normalize(title) + "::" + anchorID
}
