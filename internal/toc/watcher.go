package toc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultQuietPeriod is how long the tree must stay still before a rebuild runs.
const DefaultQuietPeriod = 300 * time.Millisecond

// Watcher debounces mutation batches into rebuilds.
// Each batch cancels the pending rebuild and schedules a new one, so a tree that
// never goes quiet never rebuilds. There is no maximum wait.
type Watcher struct {
	mu       sync.Mutex
	clock    Clock
	quiet    time.Duration
	fire     func()
	log      *zap.Logger
	pending  Timer
	gen      int
	cancel   func()
	detached bool
}

// NewWatcher creates a watcher that calls fire once per quiet period.
func NewWatcher(clock Clock, quiet time.Duration, fire func(), log *zap.Logger) *Watcher {
	if clock == nil {
		clock = RealClock()
	}
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{clock: clock, quiet: quiet, fire: fire, log: log}
}

// Attach subscribes to obs, replacing any earlier subscription.
func (w *Watcher) Attach(obs Observable) {
	w.Detach()
	cancel := obs.Observe(w.OnMutation)

	w.mu.Lock()
	w.cancel = cancel
	w.detached = false
	w.mu.Unlock()
}

// OnMutation schedules a rebuild, restarting the quiet window.
// A batch reporting root removal detaches the watcher instead.
func (w *Watcher) OnMutation(batch MutationBatch) {
	if batch.RootRemoved {
		w.log.Info("observed root removed, detaching watcher")
		w.Detach()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.detached {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.gen++
	gen := w.gen
	w.pending = w.clock.AfterFunc(w.quiet, func() { w.run(gen) })
	w.log.Debug("rebuild scheduled",
		zap.Int("added", batch.Added),
		zap.Int("removed", batch.Removed),
		zap.Duration("quiet", w.quiet))
}

// run fires the rebuild unless a newer batch superseded generation gen.
func (w *Watcher) run(gen int) {
	w.mu.Lock()
	if gen != w.gen || w.detached {
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.mu.Unlock()

	w.fire()
}

// Pending reports whether a rebuild is scheduled.
func (w *Watcher) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Detach cancels any pending rebuild and releases the subscription.
// Batches arriving afterwards are ignored until Attach is called again.
func (w *Watcher) Detach() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.detached = true
	w.gen++
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
