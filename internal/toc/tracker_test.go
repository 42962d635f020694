package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_MostVisibleWins(t *testing.T) {
	var changes []string
	tr := NewTracker(func(id string) { changes = append(changes, id) })
	sub := tr.Attach([]string{"A", "B", "C"})

	assert.True(t, sub.Report([]Signal{
		{AnchorID: "A", Ratio: 0.3, Intersecting: true},
		{AnchorID: "B", Ratio: 0.6, Intersecting: true},
		{AnchorID: "C", Ratio: 0.1, Intersecting: true},
	}))
	assert.Equal(t, "B", tr.Active())

	assert.False(t, sub.Report([]Signal{
		{AnchorID: "A", Ratio: 0.3, Intersecting: true},
		{AnchorID: "B", Ratio: 0.6, Intersecting: true},
	}), "re-selecting the active entry is a no-op")

	assert.Equal(t, []string{"B"}, changes)
}

func TestTracker_Report(t *testing.T) {
	tests := []struct {
		name    string
		batch   []Signal
		changed bool
		active  string
	}{
		{
			name:   "empty batch",
			active: "",
		},
		{
			name: "tie keeps first",
			batch: []Signal{
				{AnchorID: "B", Ratio: 0.5, Intersecting: true},
				{AnchorID: "A", Ratio: 0.5, Intersecting: true},
			},
			changed: true,
			active:  "B",
		},
		{
			name:   "not intersecting ignored",
			batch:  []Signal{{AnchorID: "A", Ratio: 0.9}},
			active: "",
		},
		{
			name:   "unknown anchor ignored",
			batch:  []Signal{{AnchorID: "Z", Ratio: 1, Intersecting: true}},
			active: "",
		},
		{
			name:   "zero ratio ignored",
			batch:  []Signal{{AnchorID: "A", Ratio: 0, Intersecting: true}},
			active: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(nil)
			sub := tr.Attach([]string{"A", "B"})
			assert.Equal(t, tt.changed, sub.Report(tt.batch))
			assert.Equal(t, tt.active, tr.Active())
		})
	}
}

func TestTracker_StaleSubscriptionIgnored(t *testing.T) {
	changes := 0
	tr := NewTracker(func(string) { changes++ })
	old := tr.Attach([]string{"A", "B"})
	assert.True(t, old.Live())

	fresh := tr.Attach([]string{"A", "B"})
	assert.False(t, old.Live())
	assert.False(t, old.Report([]Signal{{AnchorID: "A", Ratio: 1, Intersecting: true}}))
	assert.Equal(t, 0, changes)

	fresh.Dispose()
	fresh.Dispose()
	assert.False(t, fresh.Report([]Signal{{AnchorID: "A", Ratio: 1, Intersecting: true}}))
	assert.Equal(t, "", tr.Active())
}

func TestTracker_ActiveSurvivesReattach(t *testing.T) {
	tr := NewTracker(nil)
	sub := tr.Attach([]string{"A", "B"})
	sub.Report([]Signal{{AnchorID: "B", Ratio: 1, Intersecting: true}})

	tr.Attach([]string{"A", "B", "C"})
	assert.Equal(t, "B", tr.Active())

	tr.Attach([]string{"A", "C"})
	assert.Equal(t, "", tr.Active(), "active cleared once its anchor is gone")
}
