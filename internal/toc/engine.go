package toc

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
	"github.com/hpungsan/chattoc/internal/transport"
)

// EngineConfig carries the engine's collaborators. Only Tree is required.
type EngineConfig[N comparable] struct {
	Tree    Tree[N]
	Panel   Panel[N]
	Sender  transport.Sender
	Options *config.Options
	Clock   Clock
	Quiet   time.Duration
	Exclude []N
	Page    string
	Logger  *zap.Logger

	// StartOpen shows the panel before the first rebuild instead of waiting
	// for the auto-open threshold.
	StartOpen bool
}

// Engine owns the published index of one live tree.
//
// All entry points serialize on one lock, so mutation batches, timer fires,
// visibility reports and user actions never interleave.
type Engine[N comparable] struct {
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	tree      Tree[N]
	collector *Collector[N]
	builder   *Builder[N]
	watcher   *Watcher
	tracker   *Tracker
	sub       *Subscription
	panel     Panel[N]
	sender    transport.Sender
	opts      config.Options
	page      string
	log       *zap.Logger
	index     []section.Entry[N]
	open      bool
	running   bool
	rebuilds  int
}

// NewEngine creates an engine. Call Init to perform the first rebuild and start watching.
func NewEngine[N comparable](cfg EngineConfig[N]) *Engine[N] {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	panel := cfg.Panel
	if panel == nil {
		panel = NopPanel[N]{}
	}
	sender := cfg.Sender
	if sender == nil {
		sender = transport.Discard
	}

	e := &Engine[N]{
		tree:      cfg.Tree,
		collector: NewCollector(cfg.Tree, cfg.Exclude...),
		builder:   NewBuilder(cfg.Tree),
		panel:     panel,
		sender:    sender,
		opts:      *config.Merge(config.DefaultOptions(), cfg.Options),
		page:      cfg.Page,
		open:      cfg.StartOpen,
		log:       log.With(zap.String("page", cfg.Page)),
	}
	e.tracker = NewTracker(e.activeChanged)
	e.watcher = NewWatcher(cfg.Clock, cfg.Quiet, e.scheduledRebuild, e.log)
	return e
}

// Init applies the options, publishes the first index and starts watching the
// tree for mutations when it is Observable. The first rebuild's failure is
// logged and returned, but the engine keeps running.
func (e *Engine[N]) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.panel.Apply(e.opts)
	e.panel.SetOpen(e.open)
	e.mu.Unlock()

	err := e.Rebuild()
	e.Reattach()
	return err
}

// Reattach subscribes the watcher to the tree again, e.g. after the observed
// root was replaced. It is a no-op for trees that are not Observable.
func (e *Engine[N]) Reattach() {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}
	if obs, ok := e.tree.(Observable); ok {
		e.watcher.Attach(obs)
	}
}

// Dispose stops watching and tracking. The last index stays readable.
func (e *Engine[N]) Dispose() {
	e.watcher.Detach()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	if e.sub != nil {
		e.sub.Dispose()
		e.sub = nil
	}
	e.cancel()
}

// Rebuild runs a full collect/build pass and publishes the result.
// On failure, including a panic raised while reading a malformed node, the
// previous index stays published and the error is logged and returned.
func (e *Engine[N]) Rebuild() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked()
}

// scheduledRebuild runs a debounced rebuild. A timer that fires after Dispose
// does nothing.
func (e *Engine[N]) scheduledRebuild() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	// Errors are logged inside; nobody waits on a debounced rebuild.
	_ = e.rebuildLocked()
}

func (e *Engine[N]) rebuildLocked() (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewRebuildFailed(r)
			e.log.Error("rebuild failed, keeping previous index",
				zap.Any("panic", r),
				zap.Int("entries", len(e.index)))
		}
	}()

	entries := e.builder.Build(e.collector.Collect())

	e.index = entries
	e.rebuilds++
	e.panel.Render(slices.Clone(entries))

	if e.sub != nil {
		e.sub.Dispose()
	}
	anchors := make([]string, len(entries))
	for i, en := range entries {
		anchors[i] = en.AnchorID
	}
	e.sub = e.tracker.Attach(anchors)
	if active := e.tracker.Active(); active != "" {
		e.panel.SetActive(active)
	}

	e.publish(entries)

	if len(entries) >= e.opts.AutoOpenThreshold && !e.open {
		e.log.Debug("auto-opening panel", zap.Int("entries", len(entries)), zap.Int("threshold", e.opts.AutoOpenThreshold))
		e.setOpenLocked(true)
	}

	e.log.Debug("rebuild complete",
		zap.Int("entries", len(entries)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// publish forwards the transport-safe projection. Send failures are logged only.
func (e *Engine[N]) publish(entries []section.Entry[N]) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	msg := transport.UpdateToc(e.page, section.Summaries(entries))
	if _, err := e.sender.Send(ctx, msg); err != nil {
		e.log.Warn("failed to publish table of contents", zap.Error(err))
	}
}

// HandleMessage applies an inbound message.
func (e *Engine[N]) HandleMessage(_ context.Context, msg transport.Message) (*transport.Response, error) {
	switch msg.Type {
	case transport.TypeTogglePanel:
		e.Toggle()
		return nil, nil
	case transport.TypeOptionsUpdate:
		e.ApplyOptions(msg.PartialOptions())
		return nil, e.Rebuild()
	case transport.TypeRequestTocExport:
		text, err := e.Export()
		if err != nil {
			return nil, err
		}
		return &transport.Response{Text: text}, nil
	}
	return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported message type %q", msg.Type))
}

// ApplyOptions merges partial over the defaults and hands the result to the panel.
// It does not rebuild; optionsUpdate messages rebuild afterwards.
func (e *Engine[N]) ApplyOptions(partial *config.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = *config.Merge(config.DefaultOptions(), partial)
	e.panel.Apply(e.opts)
}

// Options returns the options in effect.
func (e *Engine[N]) Options() config.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// Toggle flips panel visibility.
func (e *Engine[N]) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setOpenLocked(!e.open)
}

// SetOpen forces panel visibility.
func (e *Engine[N]) SetOpen(open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setOpenLocked(open)
}

func (e *Engine[N]) setOpenLocked(open bool) {
	e.open = open
	e.panel.SetOpen(open)
}

// IsOpen reports panel visibility.
func (e *Engine[N]) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Index returns a copy of the published index.
func (e *Engine[N]) Index() []section.Entry[N] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.index)
}

// Rebuilds returns how many rebuilds have completed.
func (e *Engine[N]) Rebuilds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuilds
}

// Filter returns the entries whose title matches term.
func (e *Engine[N]) Filter(term string) []section.Entry[N] {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []section.Entry[N]
	for _, en := range e.index {
		if section.Matches(en.Title, term) {
			out = append(out, en)
		}
	}
	return out
}

// Export renders the published index as text, one line per entry.
func (e *Engine[N]) Export() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return section.FormatExport(e.page, section.Summaries(e.index))
}

// Activate scrolls the panel to the entry with anchorID.
// It reports false, without error, when the anchor is not indexed or its node
// has left the tree.
func (e *Engine[N]) Activate(anchorID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.tree.Lookup(anchorID)
	if !ok {
		e.log.Debug("activate: anchor no longer in tree", zap.String("anchor", anchorID))
		return false
	}
	for _, en := range e.index {
		if en.AnchorID == anchorID && en.Node == node {
			e.panel.ScrollTo(en)
			return true
		}
	}
	return false
}

// Visibility returns the live tracker subscription, or nil before the first rebuild.
// Sources holding an older subscription are ignored after the next rebuild.
func (e *Engine[N]) Visibility() *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sub
}

// ReportVisibility delivers a signal batch through the live subscription.
func (e *Engine[N]) ReportVisibility(batch []Signal) bool {
	sub := e.Visibility()
	if sub == nil {
		return false
	}
	return sub.Report(batch)
}

// Active returns the anchor currently judged most visible.
func (e *Engine[N]) Active() string {
	return e.tracker.Active()
}

func (e *Engine[N]) activeChanged(anchorID string) {
	e.log.Debug("active entry changed", zap.String("anchor", anchorID))
	e.panel.SetActive(anchorID)
}
