// Package reveal presents a computed backtest: either as a timed sequence
// (count-up, confetti, badge, dividend callout, chart, call-to-action) or
// all at once when the journey was opened from a shared link. Both paths
// leave the view in the same final state.
package reveal

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
)

var reveals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journey_reveals_total",
	Help: "Result reveals by path (animated, immediate) and cancellations",
}, []string{"path"})

// View is the results screen the timeline mutates.
type View interface {
	SetValue(text string)
	ShowBadge(badge string)
	ShowDividend(text string)
	ShowChart(result, benchmark *model.BacktestResult)
	ShowCTA()
	// Confetti returns the canvas for the burst, or nil for none.
	Confetti() Canvas
}

// Plan is what to reveal.
type Plan struct {
	Result    *model.BacktestResult
	Benchmark *model.BacktestResult
	Years     int
	// DividendYield > 0 enables the reinvested-dividend callout.
	DividendYield float64
	ReducedMotion bool
	// Format renders money; defaults to model.FormatKroner.
	Format func(float64) string
}

func (p Plan) format(v float64) string {
	if p.Format != nil {
		return p.Format(v)
	}
	return model.FormatKroner(v)
}

func (p Plan) hasDividend() bool { return p.DividendYield > 0 }

func (p Plan) dividendText() string {
	v := backtest.DividendReinvested(p.Result.Amount, p.Result.FinalValue, p.DividendYield, p.Years)
	return p.format(v)
}

// Schedule holds the offsets of the animated path, relative to reveal
// start, except ConfettiDelay which follows count-up completion.
type Schedule struct {
	CountUpAt       time.Duration
	CountUpDuration time.Duration
	ConfettiDelay   time.Duration
	BadgeAt         time.Duration
	DividendAt      time.Duration
	ChartAt         time.Duration
	ChartAtDividend time.Duration
	CTAAt           time.Duration
	CTAAtDividend   time.Duration
}

var DefaultSchedule = Schedule{
	CountUpAt:       500 * time.Millisecond,
	CountUpDuration: DefaultCountUpDuration,
	ConfettiDelay:   100 * time.Millisecond,
	BadgeAt:         2800 * time.Millisecond,
	DividendAt:      3200 * time.Millisecond,
	ChartAt:         3200 * time.Millisecond,
	ChartAtDividend: 3800 * time.Millisecond,
	CTAAt:           3800 * time.Millisecond,
	CTAAtDividend:   4400 * time.Millisecond,
}

type Timeline struct {
	loop     runloop.Loop
	view     View
	schedule Schedule
	rand     *rand.Rand
}

type TimelineOption func(*Timeline)

func WithSchedule(s Schedule) TimelineOption {
	return func(t *Timeline) { t.schedule = s }
}

// WithRand makes confetti bursts reproducible.
func WithRand(r *rand.Rand) TimelineOption {
	return func(t *Timeline) { t.rand = r }
}

func NewTimeline(loop runloop.Loop, view View, opts ...TimelineOption) *Timeline {
	t := &Timeline{loop: loop, view: view, schedule: DefaultSchedule}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle controls one animated reveal.
type Handle struct {
	g        *group
	finished chan struct{}
	once     sync.Once
}

// Cancel voids every pending timer and frame of the reveal. No view
// mutation happens afterwards. Safe to call more than once.
func (h *Handle) Cancel() {
	if h.g.cancel() {
		select {
		case <-h.finished:
		default:
			reveals.WithLabelValues("cancelled").Inc()
		}
	}
}

// Finished is closed once the last element has been shown.
func (h *Handle) Finished() <-chan struct{} { return h.finished }

// Pending reports how many timers and frames are still scheduled.
func (h *Handle) Pending() int { return h.g.pending() }

func (h *Handle) finish() { h.once.Do(func() { close(h.finished) }) }

// Animate starts the timed sequence and returns immediately.
func (t *Timeline) Animate(plan Plan) *Handle {
	h := &Handle{g: newGroup(t.loop), finished: make(chan struct{})}
	if plan.Result == nil {
		h.finish()
		return h
	}
	reveals.WithLabelValues("animated").Inc()

	g, s, view := h.g, t.schedule, t.view
	res := plan.Result

	// mutate runs fn only while the reveal is live.
	mutate := func(fn func()) func() {
		return func() {
			if g.live() {
				fn()
			}
		}
	}

	g.after(s.CountUpAt, func() {
		countUp(g, res.FinalValue, CountUpOptions{
			Duration:      s.CountUpDuration,
			ReducedMotion: plan.ReducedMotion,
			Format: func(v float64) {
				if g.live() {
					view.SetValue(plan.format(v))
				}
			},
			OnComplete: func() {
				g.after(s.ConfettiDelay, func() {
					confetti(g, view.Confetti(), ConfettiOptions{
						Count:         ParticleCount(res.ReturnPercent()),
						ReducedMotion: plan.ReducedMotion,
						Rand:          t.rand,
					})
				})
			},
		})
	})

	g.after(s.BadgeAt, mutate(func() { view.ShowBadge(res.Badge()) }))

	chartAt, ctaAt := s.ChartAt, s.CTAAt
	if plan.hasDividend() {
		g.after(s.DividendAt, mutate(func() { view.ShowDividend(plan.dividendText()) }))
		chartAt, ctaAt = s.ChartAtDividend, s.CTAAtDividend
	}
	g.after(chartAt, mutate(func() { view.ShowChart(res, plan.Benchmark) }))
	g.after(ctaAt, mutate(func() {
		view.ShowCTA()
		h.finish()
	}))
	return h
}

// Immediate sets every element to its final state synchronously.
func (t *Timeline) Immediate(plan Plan) {
	if plan.Result == nil {
		return
	}
	reveals.WithLabelValues("immediate").Inc()

	res := plan.Result
	t.view.SetValue(plan.format(res.FinalValue))
	t.view.ShowBadge(res.Badge())
	if plan.hasDividend() {
		t.view.ShowDividend(plan.dividendText())
	}
	t.view.ShowChart(res, plan.Benchmark)
	t.view.ShowCTA()
}
