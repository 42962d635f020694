package toc

import (
	"fmt"

	"github.com/hpungsan/chattoc/internal/section"
)

// AnchorPrefix starts every minted anchor id.
const AnchorPrefix = "chat-toc-"

// Builder turns ordered candidates into a published index.
// Its anchor counter lives as long as the builder, so ids are never reused
// within one engine even after the nodes that carried them are gone.
type Builder[N comparable] struct {
	tree Tree[N]
	seq  int
}

// NewBuilder creates a builder over tree.
func NewBuilder[N comparable](tree Tree[N]) *Builder[N] {
	return &Builder[N]{tree: tree}
}

// Build annotates each candidate and returns the deduplicated index.
// nodes must already be in document order.
func (b *Builder[N]) Build(nodes []N) []section.Entry[N] {
	entries := make([]section.Entry[N], 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	var prev *section.Badge

	for _, n := range nodes {
		text := b.tree.TextOf(n)
		title, ok := section.ExtractTitle(text)
		if !ok {
			continue
		}

		anchor := b.ensureAnchor(n)
		key := section.DedupKey(title, anchor)
		if seen[key] {
			continue
		}
		seen[key] = true

		badge := section.Classify(b.roleAttr(n), text, prev)
		prev = &badge

		entries = append(entries, section.Entry[N]{
			Title:    title,
			Badge:    badge,
			Position: len(entries) + 1,
			AnchorID: anchor,
			Node:     n,
		})
	}
	return entries
}

// ensureAnchor reuses the marker on n or mints and attaches a fresh one.
// Minted ids skip any id already present in the tree.
func (b *Builder[N]) ensureAnchor(n N) string {
	if id := b.tree.Marker(n); id != "" {
		return id
	}
	for {
		b.seq++
		id := fmt.Sprintf("%s%d", AnchorPrefix, b.seq)
		if _, taken := b.tree.Lookup(id); taken {
			continue
		}
		b.tree.AttachMarker(n, id)
		return id
	}
}

// roleAttr returns the first non-empty role attribute on n.
func (b *Builder[N]) roleAttr(n N) string {
	for _, name := range section.RoleAttributes {
		if v := b.tree.AttrOf(n, name); v != "" {
			return v
		}
	}
	return ""
}
