package runloop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

func TestVirtual_RunsTimersInDueOrder(t *testing.T) {
	v := NewVirtual(epoch)
	var order []string
	v.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	v.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	v.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	v.Advance(99 * time.Millisecond)
	assert.Empty(t, order)

	v.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)

	v.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(1100*time.Millisecond), v.Now())
}

func TestVirtual_CallbackSeesItsOwnDueTime(t *testing.T) {
	v := NewVirtual(epoch)
	var seen time.Time
	v.AfterFunc(250*time.Millisecond, func() { seen = v.Now() })
	v.Advance(time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
}

func TestVirtual_ChainedSchedulingWithinOneAdvance(t *testing.T) {
	v := NewVirtual(epoch)
	frames := 0
	var frame func(time.Time)
	frame = func(time.Time) {
		frames++
		if frames < 10 {
			v.RequestFrame(frame)
		}
	}
	v.RequestFrame(frame)

	v.Advance(FrameInterval * 5)
	assert.Equal(t, 5, frames)

	elapsed := v.RunUntilIdle(time.Minute)
	assert.Equal(t, 10, frames)
	assert.Equal(t, FrameInterval*5, elapsed)
	assert.Zero(t, v.Pending())
}

func TestVirtual_CancelPreventsRun(t *testing.T) {
	v := NewVirtual(epoch)
	ran := false
	task := v.AfterFunc(time.Second, func() { ran = true })
	assert.Equal(t, 1, v.Pending())

	task.Cancel()
	task.Cancel()
	assert.Zero(t, v.Pending())

	v.Advance(2 * time.Second)
	assert.False(t, ran)
	assert.True(t, task.Cancelled())
	assert.False(t, task.Done())
}

func TestVirtual_CancelAfterRunIsHarmless(t *testing.T) {
	v := NewVirtual(epoch)
	task := v.AfterFunc(0, func() {})
	v.Advance(0)
	assert.True(t, task.Done())
	task.Cancel()

	var nilTask *Task
	nilTask.Cancel()
}

func TestVirtual_RunUntilIdleRespectsLimit(t *testing.T) {
	v := NewVirtual(epoch)
	v.AfterFunc(time.Hour, func() {})
	assert.Zero(t, v.RunUntilIdle(time.Minute))
	assert.Equal(t, 1, v.Pending())
}

func TestReal_RunsCallbacksOnLoop(t *testing.T) {
	r := NewReal(nil)
	defer r.Close()

	done := make(chan time.Time, 1)
	r.RequestFrame(func(now time.Time) { done <- now })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame never ran")
	}
}

func TestReal_CancelAndClose(t *testing.T) {
	r := NewReal(nil)
	var ran atomic.Bool
	task := r.AfterFunc(50*time.Millisecond, func() { ran.Store(true) })
	task.Cancel()

	fired := make(chan struct{})
	r.AfterFunc(time.Millisecond, func() { panic("recovered by the loop") })
	r.AfterFunc(100*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after a panicking callback")
	}
	assert.False(t, ran.Load())

	r.Close()
	r.Close()
	require.False(t, r.Post(func() {}))
}
