package reveal

import (
	"sync"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
)

// group owns every task an animation schedules so they can be cancelled as
// a unit. Once cancelled it schedules nothing further.
type group struct {
	loop runloop.Loop

	mu        sync.Mutex
	cancelled bool
	next      uint64
	tasks     map[uint64]*runloop.Task
}

func newGroup(loop runloop.Loop) *group {
	return &group{loop: loop, tasks: make(map[uint64]*runloop.Task)}
}

func (g *group) after(d time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelled {
		return
	}
	id := g.id()
	g.tasks[id] = g.loop.AfterFunc(d, func() {
		if g.release(id) {
			fn()
		}
	})
}

func (g *group) frame(fn func(now time.Time)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelled {
		return
	}
	id := g.id()
	g.tasks[id] = g.loop.RequestFrame(func(now time.Time) {
		if g.release(id) {
			fn(now)
		}
	})
}

// id hands out the key a callback uses to find its own task. Callers hold
// g.mu, and so does release, so the task is stored before it is looked up.
func (g *group) id() uint64 {
	g.next++
	return g.next
}

// release forgets a task that is about to run and reports whether it may.
func (g *group) release(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tasks, id)
	return !g.cancelled
}

func (g *group) live() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.cancelled
}

// cancel voids every pending task. It reports whether this call did it.
func (g *group) cancel() bool {
	g.mu.Lock()
	if g.cancelled {
		g.mu.Unlock()
		return false
	}
	g.cancelled = true
	tasks := g.tasks
	g.tasks = nil
	g.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	return true
}

func (g *group) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}
