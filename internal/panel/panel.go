// Package panel holds the state shared by the concrete panels: the rendered
// rows, the active anchor, visibility, options and the transient highlight.
// The engine writes it through the toc.Panel interface; front-ends poll it.
package panel

import (
	"sync"
	"time"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/section"
	"github.com/hpungsan/chattoc/internal/toc"
)

// Item is one rendered panel row.
type Item struct {
	Title    string        `json:"title"`
	Badge    section.Badge `json:"badge"`
	Position int           `json:"position"`
	AnchorID string        `json:"anchor"`
}

// Label renders the position the way the panel shows it ("#3").
func (it Item) Label() string {
	return section.Summary{Position: it.Position}.Label()
}

// State is a point-in-time copy of what the panel shows.
type State struct {
	Items     []Item         `json:"sections"`
	Active    string         `json:"active,omitempty"`
	Open      bool           `json:"open"`
	Options   config.Options `json:"options"`
	Highlight string         `json:"highlight,omitempty"`
	Revision  uint64         `json:"revision"`
}

// Filter returns the rows whose title matches term.
func (s State) Filter(term string) []Item {
	if term == "" {
		return s.Items
	}
	out := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if section.Matches(it.Title, term) {
			out = append(out, it)
		}
	}
	return out
}

// Live records what the engine asks a panel to show. Every change bumps the
// revision so pollers can tell when to redraw. Live never calls back into the
// engine, so it is safe to drive from inside engine callbacks.
type Live[N comparable] struct {
	mu             sync.RWMutex
	items          []Item
	active         string
	open           bool
	opts           config.Options
	highlight      string
	highlightUntil time.Time
	revision       uint64
	now            func() time.Time
}

// New creates an empty, closed panel with default options.
func New[N comparable]() *Live[N] {
	return &Live[N]{
		opts: *config.DefaultOptions(),
		now:  time.Now,
	}
}

// SetClock replaces the time source used for highlight expiry.
func (p *Live[N]) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

func (p *Live[N]) Render(entries []section.Entry[N]) {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{
			Title:    e.Title,
			Badge:    e.Badge,
			Position: e.Position,
			AnchorID: e.AnchorID,
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.revision++
}

func (p *Live[N]) SetActive(anchorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == anchorID {
		return
	}
	p.active = anchorID
	p.revision++
}

func (p *Live[N]) SetOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = open
	p.revision++
}

func (p *Live[N]) Apply(opts config.Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
	p.revision++
}

// ScrollTo marks the entry as the highlight target for toc.HighlightDuration.
func (p *Live[N]) ScrollTo(entry section.Entry[N]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.highlight = entry.AnchorID
	p.highlightUntil = p.now().Add(toc.HighlightDuration)
	p.revision++
}

// State returns a copy of the panel state. An expired highlight is dropped.
func (p *Live[N]) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := State{
		Items:    append([]Item(nil), p.items...),
		Active:   p.active,
		Open:     p.open,
		Options:  p.opts,
		Revision: p.revision,
	}
	if p.highlight != "" && p.now().Before(p.highlightUntil) {
		s.Highlight = p.highlight
	}
	return s
}

// Item returns the row for anchorID.
func (p *Live[N]) Item(anchorID string) (Item, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, it := range p.items {
		if it.AnchorID == anchorID {
			return it, true
		}
	}
	return Item{}, false
}
