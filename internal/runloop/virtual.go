package runloop

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a deterministic loop driven by Advance. Time only moves when
// the owner advances it, and callbacks run on the advancing goroutine in
// due order (ties in scheduling order).
type Virtual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue timerHeap
}

// NewVirtual creates a loop whose clock starts at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) AfterFunc(d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	return v.schedule(d, func(time.Time) { fn() })
}

func (v *Virtual) RequestFrame(fn func(now time.Time)) *Task {
	return v.schedule(FrameInterval, fn)
}

func (v *Virtual) schedule(d time.Duration, fn func(time.Time)) *Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &vtimer{at: v.now.Add(d), seq: v.seq, fn: fn, task: newTask()}
	v.seq++
	heap.Push(&v.queue, t)
	t.task.setStop(func() { v.remove(t) })
	return t.task
}

func (v *Virtual) remove(t *vtimer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&v.queue, t.index)
	}
}

// Advance moves the clock forward by d, running every callback that falls
// due, including ones scheduled by callbacks along the way.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	for {
		v.mu.Lock()
		if len(v.queue) == 0 || v.queue[0].at.After(target) {
			v.now = target
			v.mu.Unlock()
			return
		}
		t := heap.Pop(&v.queue).(*vtimer)
		v.now = t.at
		v.mu.Unlock()

		if t.task.claim() {
			t.fn(t.at)
		}
	}
}

// RunUntilIdle advances until nothing is scheduled or limit is reached and
// returns the virtual time that elapsed.
func (v *Virtual) RunUntilIdle(limit time.Duration) time.Duration {
	start := v.Now()
	for v.Pending() > 0 {
		v.mu.Lock()
		next := v.queue[0].at.Sub(v.now)
		v.mu.Unlock()
		if v.Now().Sub(start)+next > limit {
			break
		}
		v.Advance(next)
	}
	return v.Now().Sub(start)
}

// Pending reports how many callbacks are scheduled.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

type vtimer struct {
	at    time.Time
	seq   uint64
	fn    func(time.Time)
	task  *Task
	index int
}

type timerHeap []*vtimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*vtimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
