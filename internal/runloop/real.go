package runloop

import (
	"log/slog"
	"sync"
	"time"
)

// Real runs callbacks on its own goroutine against the wall clock.
type Real struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// NewReal starts a loop goroutine. Call Close to stop it.
func NewReal(logger *slog.Logger) *Real {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Real{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
		log:   logger.With("component", "runloop"),
	}
	go r.run()
	return r
}

func (r *Real) run() {
	for {
		select {
		case fn := <-r.queue:
			r.invoke(fn)
		case <-r.done:
			return
		}
	}
}

func (r *Real) invoke(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("callback panicked", "panic", v)
		}
	}()
	fn()
}

// Post queues fn to run on the loop goroutine. It reports false once the
// loop is closed.
func (r *Real) Post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.queue <- fn:
		return true
	case <-r.done:
		return false
	}
}

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) AfterFunc(d time.Duration, fn func()) *Task {
	task := newTask()
	timer := time.AfterFunc(d, func() {
		r.Post(func() {
			if task.claim() {
				fn()
			}
		})
	})
	task.setStop(func() { timer.Stop() })
	return task
}

func (r *Real) RequestFrame(fn func(now time.Time)) *Task {
	return r.AfterFunc(FrameInterval, func() { fn(r.Now()) })
}

// Close stops the loop. Pending callbacks are dropped.
func (r *Real) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}
