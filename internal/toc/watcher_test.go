package toc

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObservable records subscriptions and lets tests deliver batches.
type fakeObservable struct {
	mu  sync.Mutex
	fns map[int]func(MutationBatch)
	seq int
}

func (f *fakeObservable) Observe(fn func(MutationBatch)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = map[int]func(MutationBatch){}
	}
	id := f.seq
	f.seq++
	f.fns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fns, id)
	}
}

func (f *fakeObservable) emit(b MutationBatch) {
	f.mu.Lock()
	var fns []func(MutationBatch)
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(b)
	}
}

func (f *fakeObservable) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fns)
}

func TestWatcher_BurstFiresOnceAfterQuietPeriod(t *testing.T) {
	clock := NewManualClock()
	var fired []time.Duration
	w := NewWatcher(clock, 300*time.Millisecond, func() { fired = append(fired, clock.Now()) }, nil)
	obs := &fakeObservable{}
	w.Attach(obs)

	var last time.Duration
	for i := 0; i < 15; i++ {
		obs.emit(MutationBatch{Added: 1})
		last = clock.Now()
		clock.Advance(90 * time.Millisecond)
	}
	assert.Empty(t, fired, "no rebuild while mutations keep arriving")
	assert.True(t, w.Pending())

	clock.Advance(time.Second)
	require.Len(t, fired, 1)
	assert.Equal(t, last+300*time.Millisecond, fired[0])
	assert.False(t, w.Pending())
	assert.Equal(t, 0, clock.Pending(), "superseded timers were stopped")
}

func TestWatcher_SeparateBurstsFireSeparately(t *testing.T) {
	clock := NewManualClock()
	fires := 0
	w := NewWatcher(clock, 0, func() { fires++ }, nil)
	obs := &fakeObservable{}
	w.Attach(obs)

	obs.emit(MutationBatch{Added: 1})
	clock.Advance(DefaultQuietPeriod)
	obs.emit(MutationBatch{Removed: 1})
	clock.Advance(DefaultQuietPeriod)

	assert.Equal(t, 2, fires)
}

func TestWatcher_RootRemovedDetaches(t *testing.T) {
	clock := NewManualClock()
	fires := 0
	w := NewWatcher(clock, 300*time.Millisecond, func() { fires++ }, nil)
	obs := &fakeObservable{}
	w.Attach(obs)

	obs.emit(MutationBatch{Added: 1})
	obs.emit(MutationBatch{RootRemoved: true})
	assert.Equal(t, 0, obs.subscribers())
	assert.False(t, w.Pending())

	w.OnMutation(MutationBatch{Added: 1})
	clock.Advance(time.Second)
	assert.Equal(t, 0, fires, "pending and later batches are dropped")

	w.Attach(obs)
	obs.emit(MutationBatch{Added: 1})
	clock.Advance(time.Second)
	assert.Equal(t, 1, fires)
}

func TestWatcher_AttachReplacesSubscription(t *testing.T) {
	w := NewWatcher(NewManualClock(), 0, func() {}, nil)
	a, b := &fakeObservable{}, &fakeObservable{}

	w.Attach(a)
	w.Attach(b)
	assert.Equal(t, 0, a.subscribers())
	assert.Equal(t, 1, b.subscribers())

	w.Detach()
	w.Detach()
	assert.Equal(t, 0, b.subscribers())
}

func TestManualClock_StopAndOrder(t *testing.T) {
	clock := NewManualClock()
	var order []string
	clock.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	clock.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "a")
		clock.AfterFunc(5*time.Millisecond, func() { order = append(order, "a2") })
	})
	stopped := clock.AfterFunc(15*time.Millisecond, func() { order = append(order, "never") })

	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	clock.Advance(30 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2", "b"}, order)
	assert.Equal(t, 30*time.Millisecond, clock.Now())
}
