package dom

import (
	"github.com/hpungsan/chattoc/internal/toc"
)

// Viewport is a window of Height lines over a document's layout. It produces
// visibility signals the way an intersection observer does: one signal per
// anchor whenever its visible ratio crosses a threshold, and one for every
// anchor on the first reading after a new subscription.
type Viewport struct {
	doc      *Document
	height   int
	top      int
	geometry toc.Geometry
	sub      *toc.Subscription
	buckets  map[string]int
}

// NewViewport creates a viewport of height lines at the top of doc.
func NewViewport(doc *Document, height int, geometry toc.Geometry) *Viewport {
	if height < 1 {
		height = 1
	}
	return &Viewport{doc: doc, height: height, geometry: geometry, buckets: map[string]int{}}
}

// Top returns the first visible line.
func (v *Viewport) Top() int { return v.top }

// Height returns the number of visible lines.
func (v *Viewport) Height() int { return v.height }

// Resize changes the height.
func (v *Viewport) Resize(height int) {
	if height < 1 {
		height = 1
	}
	v.height = height
}

// Scroll moves the first visible line to top, clamped at zero.
func (v *Viewport) Scroll(top int) {
	if top < 0 {
		top = 0
	}
	v.top = top
}

// Reveal scrolls so the node carrying anchorID starts at the top.
func (v *Viewport) Reveal(anchorID string) bool {
	start, _, ok := v.anchorRanges(v.doc.Layout())[anchorID].get()
	if !ok {
		return false
	}
	v.Scroll(start)
	return true
}

// Signals returns the readings that changed since the last call for sub.
// A different subscription than last time starts from scratch.
func (v *Viewport) Signals(sub *toc.Subscription) []toc.Signal {
	if sub == nil {
		return nil
	}
	if sub != v.sub {
		v.sub = sub
		v.buckets = map[string]int{}
	}

	ranges := v.anchorRanges(v.doc.Layout())
	regionEnd := v.top + v.regionHeight()

	var out []toc.Signal
	for _, anchor := range sub.Anchors() {
		start, end, ok := ranges[anchor].get()
		if !ok {
			continue
		}
		if end <= start {
			end = start + 1
		}
		overlap := min(end, regionEnd) - max(start, v.top)
		ratio := 0.0
		if overlap > 0 {
			ratio = float64(overlap) / float64(end-start)
		}
		bucket := v.bucket(ratio)
		if prev, seen := v.buckets[anchor]; seen && prev == bucket {
			continue
		}
		v.buckets[anchor] = bucket
		out = append(out, toc.Signal{AnchorID: anchor, Ratio: ratio, Intersecting: overlap > 0})
	}
	return out
}

// regionHeight is the viewport height less the bottom margin.
func (v *Viewport) regionHeight() int {
	h := int(float64(v.height) * (1 - v.geometry.BottomMargin))
	if h < 1 {
		h = 1
	}
	return h
}

// bucket counts crossed thresholds; 0 means not visible at all.
func (v *Viewport) bucket(ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	b := 1
	for _, t := range v.geometry.Thresholds {
		if ratio >= t {
			b++
		}
	}
	return b
}

type lineRange struct {
	start, end int
	ok         bool
}

func (r lineRange) get() (int, int, bool) { return r.start, r.end, r.ok }

func (v *Viewport) anchorRanges(l *Layout) map[string]lineRange {
	v.doc.mu.RLock()
	defer v.doc.mu.RUnlock()
	out := map[string]lineRange{}
	walk(v.doc.root, func(n *Node) bool {
		if id := n.Attr(MarkerAttr); id != "" {
			if s, e, ok := l.Range(n); ok {
				out[id] = lineRange{start: s, end: e, ok: true}
			}
		}
		return true
	})
	return out
}

// LineOf returns the first line of the node carrying anchorID.
func (v *Viewport) LineOf(anchorID string) (int, bool) {
	start, _, ok := v.anchorRanges(v.doc.Layout())[anchorID].get()
	return start, ok
}
