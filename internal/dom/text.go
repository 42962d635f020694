package dom

import (
	"regexp"
	"strings"
)

// blockTags break lines before and after their content.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "table": true, "tr": true, "ul": true,
}

// hiddenTags never contribute visible text.
var hiddenTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true, "noscript": true,
}

// spaceRun matches runs of spaces and tabs, collapsed like white-space: pre-line.
var spaceRun = regexp.MustCompile(`[ \t\r\f]+`)

// Layout is the visible text of a subtree split into lines, with the line range
// each element covers.
type Layout struct {
	Lines  []string
	ranges map[*Node][2]int
}

// Range returns the half-open line range [start, end) covered by n.
func (l *Layout) Range(n *Node) (start, end int, ok bool) {
	r, ok := l.ranges[n]
	return r[0], r[1], ok
}

// layout renders n. Text nodes keep their newlines and collapse other
// whitespace; block elements start and end on their own lines; hidden
// elements and elements with the hidden attribute are skipped.
func layout(n *Node) *Layout {
	lb := &lineBuilder{ranges: make(map[*Node][2]int)}
	lb.render(n)
	lb.flush()
	return &Layout{Lines: lb.lines, ranges: lb.ranges}
}

type lineBuilder struct {
	lines  []string
	cur    strings.Builder
	ranges map[*Node][2]int
}

func (lb *lineBuilder) flush() {
	if strings.TrimSpace(lb.cur.String()) == "" {
		lb.cur.Reset()
		return
	}
	lb.lines = append(lb.lines, strings.TrimSpace(lb.cur.String()))
	lb.cur.Reset()
}

// line returns the index of the line currently being written.
func (lb *lineBuilder) line() int {
	return len(lb.lines)
}

func (lb *lineBuilder) render(n *Node) {
	switch n.Type {
	case TextNode:
		parts := strings.Split(n.Data, "\n")
		for i, p := range parts {
			if i > 0 {
				lb.flush()
			}
			lb.cur.WriteString(spaceRun.ReplaceAllString(p, " "))
		}
		return
	case ElementNode:
		if hiddenTags[n.Tag] {
			return
		}
		if _, hidden := n.lookupAttr("hidden"); hidden {
			return
		}
	}

	block := blockTags[n.Tag]
	if block {
		lb.flush()
	}
	if n.Tag == "br" {
		lb.flush()
	}
	start := lb.line()
	for _, c := range n.Children {
		lb.render(c)
	}
	if block {
		lb.flush()
	}
	end := lb.line()
	if !block && strings.TrimSpace(lb.cur.String()) != "" {
		end++
	}
	if end < start {
		end = start
	}
	lb.ranges[n] = [2]int{start, end}
}

// textOf returns the visible text of n, one line per rendered line.
func textOf(n *Node) string {
	return strings.Join(layout(n).Lines, "\n")
}
