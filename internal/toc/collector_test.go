package toc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/chattoc/internal/dom"
	"github.com/hpungsan/chattoc/internal/toc"
)

func TestCollector_FallbackToArticles(t *testing.T) {
	doc := dom.NewDocument(dom.E("body", nil,
		dom.E("article", nil, dom.T("short")),
		dom.E("article", nil, dom.T("An article long enough to count")),
		dom.E("section", nil, dom.T("   ")),
		dom.E("section", nil, dom.T("Exactly twenty chars")),
	))

	got := toc.NewCollector[*dom.Node](doc).Collect()
	require.Len(t, got, 1)
	assert.Equal(t, "An article long enough to count", doc.TextOf(got[0]))
}

func TestCollector_PrimaryMatchersSkipFallback(t *testing.T) {
	doc := dom.NewDocument(dom.E("body", nil,
		dom.E("article", nil, dom.T("An article long enough to count")),
		dom.E("li", dom.Attrs{"role": "listitem"}, dom.T("hi")),
		dom.E("div", dom.Attrs{"data-test": "message-1", "class": "message"}, dom.T("both matchers")),
		dom.E("div", dom.Attrs{"class": "chat-line"}, dom.T("")),
	))

	got := toc.NewCollector[*dom.Node](doc).Collect()
	require.Len(t, got, 2, "duplicates collapse and blank nodes drop")
	assert.Equal(t, "hi", doc.TextOf(got[0]))
	assert.Equal(t, "both matchers", doc.TextOf(got[1]))
}

func TestCollector_ExplicitExclusions(t *testing.T) {
	sidebar := dom.E("div", nil, dom.E("div", dom.Attrs{"class": "message"}, dom.T("sidebar")))
	doc := dom.NewDocument(dom.E("body", nil,
		sidebar,
		dom.E("div", dom.Attrs{"class": "message"}, dom.T("content")),
	))

	got := toc.NewCollector(doc, sidebar).Collect()
	require.Len(t, got, 1)
	assert.Equal(t, "content", doc.TextOf(got[0]))
}

func TestBuilder_SkipsTakenIDs(t *testing.T) {
	taken := dom.E("div", dom.Attrs{"id": "chat-toc-1"}, dom.T("not a message"))
	msg := dom.E("div", dom.Attrs{"class": "message"}, dom.T("# Hello"))
	doc := dom.NewDocument(dom.E("body", nil, taken, msg))

	b := toc.NewBuilder[*dom.Node](doc)
	entries := b.Build([]*dom.Node{msg})
	require.Len(t, entries, 1)
	assert.Equal(t, "chat-toc-2", entries[0].AnchorID)

	// Untitled nodes are dropped and the same node keeps its anchor.
	blank := dom.E("div", nil, dom.T("   "))
	doc.Append(doc.Root(), blank)
	again := b.Build([]*dom.Node{msg, blank})
	require.Len(t, again, 1)
	assert.Equal(t, "chat-toc-2", again[0].AnchorID)
}
