// Package runloop provides the scheduling primitives the reveal animations
// run on: delayed callbacks and animation frames, all delivered on a single
// goroutine, each returned as a cancellable Task.
package runloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameInterval is the cadence of animation frames (~60 fps).
const FrameInterval = 16 * time.Millisecond

// Loop schedules callbacks. Implementations run every callback on one
// goroutine, never inside the scheduling call itself.
type Loop interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) *Task
	RequestFrame(fn func(now time.Time)) *Task
}

// Task is a scheduled callback. Cancel is idempotent and safe from any
// goroutine; a cancelled task never runs.
type Task struct {
	cancelled atomic.Bool
	fired     atomic.Bool

	mu   sync.Mutex
	stop func()
}

func newTask() *Task { return &Task{} }

func (t *Task) setStop(stop func()) {
	t.mu.Lock()
	t.stop = stop
	t.mu.Unlock()
}

// Cancel prevents the callback from running if it has not started yet.
func (t *Task) Cancel() {
	if t == nil || !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Done reports whether the callback has run.
func (t *Task) Done() bool {
	return t != nil && t.fired.Load()
}

// claim marks the task as running; it reports false if it was cancelled.
func (t *Task) claim() bool {
	if t.cancelled.Load() {
		return false
	}
	t.fired.Store(true)
	return true
}
