package reveal

import (
	"math"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
)

// Easing maps linear progress in [0,1] to eased progress. f(1) must be 1.
type Easing func(t float64) float64

// EaseOutExpo decelerates towards the target and returns exactly 1 at t=1.
func EaseOutExpo(t float64) float64 {
	if t >= 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*t)
}

const DefaultCountUpDuration = 2 * time.Second

type CountUpOptions struct {
	Duration time.Duration
	Easing   Easing
	// Format receives the current value every frame and the exact target
	// on completion.
	Format        func(value float64)
	OnComplete    func()
	ReducedMotion bool
}

func (o CountUpOptions) withDefaults() CountUpOptions {
	if o.Duration <= 0 {
		o.Duration = DefaultCountUpDuration
	}
	if o.Easing == nil {
		o.Easing = EaseOutExpo
	}
	if o.Format == nil {
		o.Format = func(float64) {}
	}
	return o
}

// CountUp animates a number from 0 to target on loop's animation frames.
// With ReducedMotion the final value is formatted once and OnComplete runs
// before CountUp returns; no frame is requested.
func CountUp(loop runloop.Loop, target float64, opts CountUpOptions) (cancel func()) {
	g := newGroup(loop)
	countUp(g, target, opts)
	return func() { g.cancel() }
}

func countUp(g *group, target float64, opts CountUpOptions) {
	opts = opts.withDefaults()
	if opts.ReducedMotion {
		opts.Format(target)
		if opts.OnComplete != nil {
			opts.OnComplete()
		}
		return
	}

	var start time.Time
	started := false
	var step func(now time.Time)
	step = func(now time.Time) {
		if !g.live() {
			return
		}
		if !started {
			start, started = now, true
		}
		progress := float64(now.Sub(start)) / float64(opts.Duration)
		if progress >= 1 {
			opts.Format(target)
			if opts.OnComplete != nil {
				opts.OnComplete()
			}
			return
		}
		opts.Format(opts.Easing(progress) * target)
		g.frame(step)
	}
	g.frame(step)
}
