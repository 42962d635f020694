// Package dom is an in-memory content tree standing in for a rendered page.
//
// A Document owns a root element and reports structural changes under it to
// observers, the way a mutation observer watching a subtree would. Documents
// implement toc.Tree and toc.Observable for *Node handles.
package dom

import (
	"slices"
	"sort"
	"strings"
)

// NodeType distinguishes elements from text.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// MarkerAttr is the attribute carrying a node's anchor id.
const MarkerAttr = "data-chat-toc-anchor"

// Attr is a single element attribute.
type Attr struct {
	Key string
	Val string
}

// Attrs is a convenience for building elements.
type Attrs map[string]string

// Node is an element or a text node. Fields must not be modified once the
// node belongs to a Document; use the Document mutation methods instead.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    []Attr
	Data     string
	Parent   *Node
	Children []*Node
}

// E builds a detached element. Attributes are stored sorted by key.
func E(tag string, attrs Attrs, children ...*Node) *Node {
	n := &Node{Type: ElementNode, Tag: strings.ToLower(tag)}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attrs = append(n.Attrs, Attr{Key: strings.ToLower(k), Val: attrs[k]})
	}
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// T builds a detached text node.
func T(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// Attr returns the value of attribute key, or "".
func (n *Node) Attr(key string) string {
	v, _ := n.lookupAttr(key)
	return v
}

func (n *Node) lookupAttr(key string) (string, bool) {
	if n == nil || n.Type != ElementNode {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) setAttr(key, val string) {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// ID returns the id attribute.
func (n *Node) ID() string {
	return n.Attr("id")
}

// Classes returns the whitespace-separated class list.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("class"))
}

// HasClass reports whether the class list contains name.
func (n *Node) HasClass(name string) bool {
	return slices.Contains(n.Classes(), name)
}

// walk visits n and its descendants in document order until fn returns false.
func walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// isAncestor reports whether a is n or one of its ancestors.
func isAncestor(a, n *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

func (n *Node) detach() {
	p := n.Parent
	if p == nil {
		return
	}
	if i := slices.Index(p.Children, n); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	n.Parent = nil
}

// count returns the number of nodes in the subtree rooted at n.
func count(n *Node) int {
	c := 0
	walk(n, func(*Node) bool { c++; return true })
	return c
}
