package toc

import (
	"time"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/section"
)

// HighlightDuration is how long a scrolled-to node stays highlighted.
const HighlightDuration = 1600 * time.Millisecond

// EmptyMessage is shown by panels when an index has no entries.
const EmptyMessage = "No sections found."

// Panel renders an index and reflects engine state. Implementations must treat
// an empty entries slice as the "no sections found" state, not a blank list.
type Panel[N comparable] interface {
	Render(entries []section.Entry[N])
	SetActive(anchorID string)
	SetOpen(open bool)
	Apply(opts config.Options)
	ScrollTo(entry section.Entry[N])
}

// NopPanel discards everything.
type NopPanel[N comparable] struct{}

func (NopPanel[N]) Render([]section.Entry[N]) {}

func (NopPanel[N]) SetActive(string) {}

func (NopPanel[N]) SetOpen(bool) {}

func (NopPanel[N]) Apply(config.Options) {}

func (NopPanel[N]) ScrollTo(section.Entry[N]) {}
