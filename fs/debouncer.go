package fs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default debounce delay for coalescing bursts of file-system events.
// Saving a project in the DAW emits several writes plus renames.
const DefaultDebounceDelay = 300 * time.Millisecond

// debouncer coalesces rapid events per key. The callback runs once per key
// after delay has passed without new events for that key.
type debouncer struct {
	clock    clockwork.Clock
	pending  map[string]clockwork.Timer
	mu       sync.Mutex
	delay    time.Duration
	onFire   func(key string)
	stopping atomic.Bool
}

func newDebouncer(clock clockwork.Clock, delay time.Duration, onFire func(key string)) *debouncer {
	return &debouncer{
		clock:   clock,
		pending: make(map[string]clockwork.Timer),
		delay:   delay,
		onFire:  onFire,
	}
}

// Queue records an event for key, restarting its quiet period.
// Returns false if the debouncer is stopping and the event was ignored.
func (d *debouncer) Queue(key string) bool {
	if d.stopping.Load() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping.Load() {
		return false
	}

	if t, ok := d.pending[key]; ok && t.Reset(d.delay) {
		return true
	}

	// Either new, or the old timer already fired and onTimer is about to run
	d.pending[key] = d.clock.AfterFunc(d.delay, func() {
		d.onTimer(key)
	})
	return true
}

func (d *debouncer) onTimer(key string) {
	d.mu.Lock()
	_, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok && !d.stopping.Load() {
		d.onFire(key)
	}
}

// Stop cancels all pending events and prevents new ones from being queued
func (d *debouncer) Stop() {
	d.stopping.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.pending {
		t.Stop()
	}
	d.pending = make(map[string]clockwork.Timer)
}

// PendingCount returns the number of pending keys (for testing)
func (d *debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
