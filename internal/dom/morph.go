package dom

import (
	"slices"

	"github.com/hpungsan/chattoc/internal/toc"
)

// Sync reshapes the document to match src while keeping every node whose tag
// and attributes are unchanged, so their anchor markers survive a reload.
// Changes are reported to observers as a single batch. src is consumed.
func (d *Document) Sync(src *Node) toc.MutationBatch {
	d.mu.Lock()
	var batch toc.MutationBatch
	if d.root.Tag != src.Tag {
		d.mu.Unlock()
		d.SetRoot(src)
		return toc.MutationBatch{RootRemoved: true}
	}
	copyAttrs(d.root, src)
	morphChildren(d.root, src, &batch)
	d.order = nil
	d.mu.Unlock()

	if batch.Added > 0 || batch.Removed > 0 {
		d.notify(batch, false)
	}
	return batch
}

func morphChildren(dst, src *Node, batch *toc.MutationBatch) {
	next := make([]*Node, 0, len(src.Children))
	old := dst.Children
	for i, sc := range src.Children {
		if i < len(old) && sameShape(old[i], sc) {
			keep := old[i]
			if keep.Type == ElementNode {
				copyAttrs(keep, sc)
				morphChildren(keep, sc, batch)
			}
			next = append(next, keep)
			continue
		}
		if i < len(old) {
			old[i].Parent = nil
			batch.Removed++
		}
		sc.Parent = dst
		next = append(next, sc)
		batch.Added++
	}
	for i := len(src.Children); i < len(old); i++ {
		old[i].Parent = nil
		batch.Removed++
	}
	dst.Children = next
}

// sameShape reports whether dst can be kept in place of src. Text nodes must
// match exactly; elements need the same tag and the same non-marker attributes.
func sameShape(dst, src *Node) bool {
	if dst.Type != src.Type {
		return false
	}
	if dst.Type == TextNode {
		return dst.Data == src.Data
	}
	if dst.Tag != src.Tag {
		return false
	}
	return slices.Equal(plainAttrs(dst), plainAttrs(src))
}

// plainAttrs drops the marker and an id that only mirrors it.
func plainAttrs(n *Node) []Attr {
	marker := n.Attr(MarkerAttr)
	out := make([]Attr, 0, len(n.Attrs))
	for _, a := range n.Attrs {
		if a.Key == MarkerAttr || (a.Key == "id" && a.Val == marker && marker != "") {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Attr) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// copyAttrs takes src's attributes but keeps dst's marker.
func copyAttrs(dst, src *Node) {
	marker := dst.Attr(MarkerAttr)
	markerID := marker != "" && dst.ID() == marker
	dst.Attrs = slices.Clone(src.Attrs)
	if marker != "" {
		dst.setAttr(MarkerAttr, marker)
		if markerID && dst.ID() == "" {
			dst.setAttr("id", marker)
		}
	}
}
