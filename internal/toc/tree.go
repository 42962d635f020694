// Package toc builds and maintains the live section index of a content tree.
//
// The engine never touches a rendering environment directly. It reads the tree
// through Tree, hears about structural changes through Observable, and pushes
// results to a Panel and a transport.Sender. Every rebuild is a full pass over
// the tree; nothing is patched incrementally.
package toc

// Tree is the traversal surface the indexer needs from a host document.
// N is the host's node handle; the engine holds handles but never owns nodes.
type Tree[N comparable] interface {
	// ListCandidates returns the nodes under the observed root that match any
	// of the selectors. Order is unspecified and duplicates are allowed.
	ListCandidates(selectors []string) []N

	// TextOf returns the visible text of n, one line per block.
	TextOf(n N) string

	// AttrOf returns the value of attribute name on n, or "".
	AttrOf(n N, name string) string

	// ComparePosition orders a and b by document position (-1, 0, 1).
	ComparePosition(a, b N) int

	// Contains reports whether n is container or one of its descendants.
	Contains(container, n N) bool

	// AttachMarker records the anchor id on n. It must be idempotent.
	AttachMarker(n N, id string)

	// Marker returns the anchor id previously attached to n, or "".
	Marker(n N) string

	// Lookup finds the connected node carrying the anchor id.
	Lookup(anchorID string) (N, bool)
}

// MutationBatch summarizes one delivery of structural changes.
type MutationBatch struct {
	Added   int
	Removed int

	// RootRemoved is set when the observed root itself left the tree.
	RootRemoved bool
}

// Observable is implemented by trees that report insertions and removals
// anywhere under their root. Attribute changes are not reported.
type Observable interface {
	Observe(fn func(MutationBatch)) (cancel func())
}
