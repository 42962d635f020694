package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses a full HTML document and returns its body as a detached root.
// Comments and doctypes are dropped; scripts and styles are kept but never
// contribute text.
func ParseHTML(r io.Reader) (*Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, fmt.Errorf("parse html: document has no body")
	}
	root := convert(body)
	root.Parent = nil
	return root, nil
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(s string) (*Node, error) {
	return ParseHTML(strings.NewReader(s))
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func convert(h *html.Node) *Node {
	n := &Node{Type: ElementNode, Tag: strings.ToLower(h.Data)}
	for _, a := range h.Attr {
		if a.Namespace != "" {
			continue
		}
		n.Attrs = append(n.Attrs, Attr{Key: strings.ToLower(a.Key), Val: a.Val})
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		var child *Node
		switch c.Type {
		case html.ElementNode:
			child = convert(c)
		case html.TextNode:
			child = &Node{Type: TextNode, Data: c.Data}
		default:
			continue
		}
		child.Parent = n
		n.Children = append(n.Children, child)
	}
	return n
}

// WriteHTML renders the document as a minimal HTML page, markers included,
// so a later load keeps the same anchors.
func (d *Document) WriteHTML(w io.Writer) error {
	d.mu.RLock()
	body := unconvert(d.root)
	d.mu.RUnlock()

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	htmlEl := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	doc.AppendChild(htmlEl)
	htmlEl.AppendChild(&html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head})
	if body.DataAtom != atom.Body {
		wrapper := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		wrapper.AppendChild(body)
		body = wrapper
	}
	htmlEl.AppendChild(body)
	return html.Render(w, doc)
}

func unconvert(n *Node) *html.Node {
	if n.Type == TextNode {
		return &html.Node{Type: html.TextNode, Data: n.Data}
	}
	h := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	for _, a := range n.Attrs {
		h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		h.AppendChild(unconvert(c))
	}
	return h
}
