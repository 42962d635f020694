package dom

import (
	"slices"
	"strings"
	"sync"

	"github.com/hpungsan/chattoc/internal/toc"
)

// Document owns a root element and notifies observers of structural changes
// beneath it. All methods are safe for concurrent use. Observers run after the
// document lock is released, on the goroutine that made the change.
type Document struct {
	mu        sync.RWMutex
	root      *Node
	observers map[int]func(toc.MutationBatch)
	nextObs   int
	order     map[*Node]int
}

var (
	_ toc.Tree[*Node] = (*Document)(nil)
	_ toc.Observable  = (*Document)(nil)
)

// NewDocument wraps root, which becomes the observed root. A nil root is
// replaced with an empty body element.
func NewDocument(root *Node) *Document {
	if root == nil {
		root = E("body", nil)
	}
	root.Parent = nil
	return &Document{root: root, observers: map[int]func(toc.MutationBatch){}}
}

// Root returns the observed root.
func (d *Document) Root() *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// Observe registers fn for mutation batches under the current root.
// Replacing the root delivers a final RootRemoved batch and drops every observer.
func (d *Document) Observe(fn func(toc.MutationBatch)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

// notify must be called without the lock held.
func (d *Document) notify(batch toc.MutationBatch, drop bool) {
	d.mu.Lock()
	fns := make([]func(toc.MutationBatch), 0, len(d.observers))
	ids := make([]int, 0, len(d.observers))
	for id := range d.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, d.observers[id])
	}
	if drop {
		d.observers = map[int]func(toc.MutationBatch){}
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}

// Append adds children to the end of parent.
func (d *Document) Append(parent *Node, children ...*Node) {
	d.mu.Lock()
	added := 0
	for _, c := range children {
		c.detach()
		c.Parent = parent
		parent.Children = append(parent.Children, c)
		added++
	}
	observed := d.connected(parent)
	d.order = nil
	d.mu.Unlock()

	if observed && added > 0 {
		d.notify(toc.MutationBatch{Added: added}, false)
	}
}

// InsertBefore inserts child before ref, which must be a child of parent.
// A nil or foreign ref appends.
func (d *Document) InsertBefore(parent, child, ref *Node) {
	d.mu.Lock()
	child.detach()
	child.Parent = parent
	i := slices.Index(parent.Children, ref)
	if ref == nil || i < 0 {
		parent.Children = append(parent.Children, child)
	} else {
		parent.Children = slices.Insert(parent.Children, i, child)
	}
	observed := d.connected(parent)
	d.order = nil
	d.mu.Unlock()

	if observed {
		d.notify(toc.MutationBatch{Added: 1}, false)
	}
}

// Remove detaches n from its parent. Removing the root is done with SetRoot.
func (d *Document) Remove(n *Node) {
	d.mu.Lock()
	if n == d.root || n.Parent == nil {
		d.mu.Unlock()
		return
	}
	observed := d.connected(n)
	n.detach()
	d.order = nil
	d.mu.Unlock()

	if observed {
		d.notify(toc.MutationBatch{Removed: 1}, false)
	}
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *Node, text string) {
	d.mu.Lock()
	removed := len(n.Children)
	for _, c := range n.Children {
		c.Parent = nil
	}
	t := T(text)
	t.Parent = n
	n.Children = []*Node{t}
	observed := d.connected(n)
	d.order = nil
	d.mu.Unlock()

	if observed {
		d.notify(toc.MutationBatch{Added: 1, Removed: removed}, false)
	}
}

// SetAttr sets an attribute. Attribute changes are not reported to observers.
func (d *Document) SetAttr(n *Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.setAttr(strings.ToLower(key), val)
}

// SetRoot swaps in a new root. Observers of the old root receive a
// RootRemoved batch and are dropped; callers re-subscribe with Observe.
func (d *Document) SetRoot(root *Node) {
	d.mu.Lock()
	root.detach()
	d.root = root
	d.order = nil
	d.mu.Unlock()

	d.notify(toc.MutationBatch{RootRemoved: true}, true)
}

// connected reports whether n is under the root. Caller holds mu.
func (d *Document) connected(n *Node) bool {
	return isAncestor(d.root, n)
}

// Connected reports whether n is currently under the root.
func (d *Document) Connected(n *Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected(n)
}

// Query returns the elements under the root matching selector, in document order.
func (d *Document) Query(selector string) ([]*Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Node
	walk(d.root, func(n *Node) bool {
		if sel.Match(n) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}

// ListCandidates returns the union of matches for selectors. Selectors that
// fail to compile match nothing.
func (d *Document) ListCandidates(selectors []string) []*Node {
	var out []*Node
	for _, s := range selectors {
		nodes, err := d.Query(s)
		if err != nil {
			continue
		}
		out = append(out, nodes...)
	}
	return out
}

// TextOf returns the visible text of n.
func (d *Document) TextOf(n *Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return textOf(n)
}

// AttrOf returns attribute name of n.
func (d *Document) AttrOf(n *Node, name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return n.Attr(name)
}

// ComparePosition orders nodes by preorder position. Detached nodes sort last.
func (d *Document) ComparePosition(a, b *Node) int {
	if a == b {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.order == nil {
		d.order = make(map[*Node]int)
		i := 0
		walk(d.root, func(n *Node) bool {
			d.order[n] = i
			i++
			return true
		})
	}
	pa, okA := d.order[a]
	pb, okB := d.order[b]
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	}
	return 0
}

// Contains reports whether n is container or a descendant of it.
func (d *Document) Contains(container, n *Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return isAncestor(container, n)
}

// AttachMarker stores the anchor id on n, and uses it as the id attribute
// when n has none so the anchor is addressable as a fragment.
func (d *Document) AttachMarker(n *Node, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.setAttr(MarkerAttr, id)
	if n.ID() == "" {
		n.setAttr("id", id)
	}
}

// Marker returns the anchor id stored on n.
func (d *Document) Marker(n *Node) string {
	return d.AttrOf(n, MarkerAttr)
}

// Lookup finds the connected element whose marker or id equals anchorID.
func (d *Document) Lookup(anchorID string) (*Node, bool) {
	if anchorID == "" {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var found *Node
	walk(d.root, func(n *Node) bool {
		if n.Type != ElementNode {
			return true
		}
		if n.Attr(MarkerAttr) == anchorID || n.ID() == anchorID {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Layout renders the root into lines.
func (d *Document) Layout() *Layout {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return layout(d.root)
}
