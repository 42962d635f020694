package toc

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultMatchers select message nodes on common chat front-ends, most specific first.
var DefaultMatchers = []string{
	`[data-role="message"]`,
	`[data-test^="message"]`,
	`[role="listitem"]`,
	`.message`,
	`.chat-message`,
	`.chat-line`,
	`.chat-entry`,
	`.message-group`,
}

// FallbackMatchers are tried only when no DefaultMatchers node survives filtering.
var FallbackMatchers = []string{"article", "section"}

// FallbackMinText is the visible text length a fallback node must exceed.
const FallbackMinText = 20

// PanelID and ToggleID identify the navigation UI, which is never indexed.
const (
	PanelID  = "chat-toc-panel"
	ToggleID = "chat-toc-toggle"
)

// DefaultExcludeSelectors select the navigation UI in the content tree.
var DefaultExcludeSelectors = []string{"#" + PanelID, "#" + ToggleID}

// Collector selects and orders candidate section nodes.
type Collector[N comparable] struct {
	Tree             Tree[N]
	Matchers         []string
	Fallback         []string
	FallbackMinText  int
	Exclude          []N
	ExcludeSelectors []string
}

// NewCollector returns a collector with the default matchers and exclusions.
func NewCollector[N comparable](tree Tree[N], exclude ...N) *Collector[N] {
	return &Collector[N]{
		Tree:             tree,
		Matchers:         DefaultMatchers,
		Fallback:         FallbackMatchers,
		FallbackMinText:  FallbackMinText,
		Exclude:          exclude,
		ExcludeSelectors: DefaultExcludeSelectors,
	}
}

// Collect returns candidate nodes in document order. An empty result is valid.
func (c *Collector[N]) Collect() []N {
	containers := slices.Clone(c.Exclude)
	if len(c.ExcludeSelectors) > 0 {
		containers = append(containers, c.Tree.ListCandidates(c.ExcludeSelectors)...)
	}

	found := c.gather(c.Matchers, containers, 0)
	if len(found) == 0 && len(c.Fallback) > 0 {
		found = c.gather(c.Fallback, containers, c.FallbackMinText)
	}

	slices.SortFunc(found, c.Tree.ComparePosition)
	return found
}

// gather collects unique matches that are outside every container and whose
// trimmed text is longer than minText runes (non-blank when minText is 0).
func (c *Collector[N]) gather(selectors []string, containers []N, minText int) []N {
	seen := make(map[N]bool)
	var out []N
	for _, n := range c.Tree.ListCandidates(selectors) {
		if seen[n] {
			continue
		}
		seen[n] = true
		if c.excluded(n, containers) {
			continue
		}
		text := strings.TrimSpace(c.Tree.TextOf(n))
		if text == "" || (minText > 0 && utf8.RuneCountInString(text) <= minText) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (c *Collector[N]) excluded(n N, containers []N) bool {
	for _, container := range containers {
		if c.Tree.Contains(container, n) {
			return true
		}
	}
	return false
}
