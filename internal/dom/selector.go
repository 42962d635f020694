package dom

import (
	"fmt"
	"strings"
	"sync"
)

// Selector is a compiled selector list. It supports type, #id, .class and
// attribute selectors ([a], [a=v], [a^=v], [a$=v], [a*=v], [a~=v]) combined
// into compounds, the descendant combinator, and comma-separated lists.
type Selector struct {
	alternatives [][]compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatcher
}

type attrMatcher struct {
	key string
	op  string
	val string
}

var selectorCache sync.Map

// Compile parses a selector list.
func Compile(src string) (*Selector, error) {
	if cached, ok := selectorCache.Load(src); ok {
		return cached.(*Selector), nil
	}
	sel := &Selector{}
	for _, part := range splitTopLevel(src, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector in %q", src)
		}
		chain, err := parseChain(part)
		if err != nil {
			return nil, err
		}
		sel.alternatives = append(sel.alternatives, chain)
	}
	if len(sel.alternatives) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	selectorCache.Store(src, sel)
	return sel, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Selector {
	sel, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return sel
}

// Match reports whether n matches any alternative.
func (s *Selector) Match(n *Node) bool {
	if n == nil || n.Type != ElementNode {
		return false
	}
	for _, chain := range s.alternatives {
		if matchChain(chain, n) {
			return true
		}
	}
	return false
}

// matchChain matches the last compound against n and the rest against ancestors.
func matchChain(chain []compound, n *Node) bool {
	last := len(chain) - 1
	if !chain[last].match(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if chain[i].match(p) {
			i--
		}
	}
	return i < 0
}

func (c compound) match(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && c.tag != n.Tag {
		return false
	}
	if c.id != "" && n.ID() != c.id {
		return false
	}
	for _, cls := range c.classes {
		if !n.HasClass(cls) {
			return false
		}
	}
	for _, am := range c.attrs {
		v, ok := n.lookupAttr(am.key)
		if !ok {
			return false
		}
		switch am.op {
		case "":
		case "=":
			if v != am.val {
				return false
			}
		case "^=":
			if am.val == "" || !strings.HasPrefix(v, am.val) {
				return false
			}
		case "$=":
			if am.val == "" || !strings.HasSuffix(v, am.val) {
				return false
			}
		case "*=":
			if am.val == "" || !strings.Contains(v, am.val) {
				return false
			}
		case "~=":
			found := false
			for _, f := range strings.Fields(v) {
				if f == am.val {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func parseChain(src string) ([]compound, error) {
	var chain []compound
	for _, tok := range splitTopLevel(src, ' ') {
		if tok = strings.TrimSpace(tok); tok == "" {
			continue
		}
		c, err := parseCompound(tok)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	return chain, nil
}

func parseCompound(src string) (compound, error) {
	var c compound
	i := 0
	ident := func() string {
		start := i
		for i < len(src) && isIdentByte(src[i]) {
			i++
		}
		return src[start:i]
	}

	if i < len(src) && src[i] == '*' {
		c.tag = "*"
		i++
	} else {
		c.tag = strings.ToLower(ident())
	}

	for i < len(src) {
		switch src[i] {
		case '#':
			i++
			if c.id = ident(); c.id == "" {
				return c, fmt.Errorf("missing id in %q", src)
			}
		case '.':
			i++
			cls := ident()
			if cls == "" {
				return c, fmt.Errorf("missing class in %q", src)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(src[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute selector in %q", src)
			}
			am, err := parseAttr(src[i+1 : i+end])
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, am)
			i += end + 1
		default:
			return c, fmt.Errorf("unexpected %q in selector %q", src[i], src)
		}
	}
	return c, nil
}

func parseAttr(body string) (attrMatcher, error) {
	body = strings.TrimSpace(body)
	for _, op := range []string{"^=", "$=", "*=", "~=", "="} {
		if idx := strings.Index(body, op); idx > 0 {
			key := strings.ToLower(strings.TrimSpace(body[:idx]))
			val := unquote(strings.TrimSpace(body[idx+len(op):]))
			return attrMatcher{key: key, op: op, val: val}, nil
		}
	}
	if body == "" {
		return attrMatcher{}, fmt.Errorf("empty attribute selector")
	}
	return attrMatcher{key: strings.ToLower(body)}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

// splitTopLevel splits on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
