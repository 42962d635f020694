package toc

import "sync"

// Signal is one visibility reading for an observed anchor.
type Signal struct {
	AnchorID     string
	Ratio        float64
	Intersecting bool
}

// Geometry describes the tracked region. BottomMargin shrinks the region from
// the bottom, as a fraction of its height, so an entry only becomes active once
// it reaches the upper part of the view.
type Geometry struct {
	BottomMargin float64
	Thresholds   []float64
}

// DefaultGeometry is a region cut 40% from the bottom with three thresholds.
func DefaultGeometry() Geometry {
	return Geometry{
		BottomMargin: 0.4,
		Thresholds:   []float64{0.1, 0.5, 0.75},
	}
}

// Tracker selects the single most visible entry and reports changes.
type Tracker struct {
	mu       sync.Mutex
	gen      int
	known    map[string]bool
	active   string
	onChange func(anchorID string)
}

// NewTracker creates a tracker. onChange runs whenever the active anchor changes;
// it is called without the tracker lock held.
func NewTracker(onChange func(anchorID string)) *Tracker {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &Tracker{onChange: onChange, known: map[string]bool{}}
}

// Subscription delivers signals for one attached index.
// It stops delivering once disposed or superseded by a later Attach.
type Subscription struct {
	tracker *Tracker
	gen     int
	anchors []string
}

// Attach tears down the previous subscription and observes anchors instead.
// The active anchor survives only if it is still observed.
func (t *Tracker) Attach(anchors []string) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.known = make(map[string]bool, len(anchors))
	for _, a := range anchors {
		t.known[a] = true
	}
	if !t.known[t.active] {
		t.active = ""
	}
	return &Subscription{tracker: t, gen: t.gen, anchors: append([]string(nil), anchors...)}
}

// Active returns the current active anchor, or "".
func (t *Tracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Anchors returns the anchors observed by the subscription, in index order.
func (s *Subscription) Anchors() []string {
	return s.anchors
}

// Live reports whether the subscription still delivers signals.
func (s *Subscription) Live() bool {
	s.tracker.mu.Lock()
	defer s.tracker.mu.Unlock()
	return s.gen == s.tracker.gen
}

// Dispose stops the subscription. Disposing twice is harmless.
func (s *Subscription) Dispose() {
	t := s.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.gen == t.gen {
		t.gen++
		t.known = map[string]bool{}
	}
}

// Report applies one batch of signals and reports whether the active anchor changed.
// The winner is the intersecting signal with the highest ratio; on ties the first
// in the batch wins. Selecting the current active anchor again is a no-op.
func (s *Subscription) Report(batch []Signal) bool {
	t := s.tracker
	t.mu.Lock()
	if s.gen != t.gen {
		t.mu.Unlock()
		return false
	}

	var best *Signal
	for i := range batch {
		sig := &batch[i]
		if !sig.Intersecting || sig.Ratio <= 0 || !t.known[sig.AnchorID] {
			continue
		}
		if best == nil || sig.Ratio > best.Ratio {
			best = sig
		}
	}
	if best == nil || best.AnchorID == t.active {
		t.mu.Unlock()
		return false
	}
	t.active = best.AnchorID
	t.mu.Unlock()

	t.onChange(best.AnchorID)
	return true
}
