// Package session drives one user's journey: it reacts to state machine
// transitions by mounting screens, running the calculation on the loading
// step, keeping the address bar in sync and revealing the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/analytics"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
	"github.com/matsimonsen7/tid-er-penge/internal/reveal"
	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

// DefaultMinLoading keeps the loading screen up long enough to be read.
const DefaultMinLoading = 3 * time.Second

var (
	ErrUnknownSecurity = errors.New("unknown security")
	ErrWrongStep       = errors.New("not available on this step")
)

// Renderer mounts and unmounts the screen for each step.
type Renderer interface {
	Mount(step journey.Step, dir journey.Direction)
	Unmount(step journey.Step, dir journey.Direction)
}

// AddressBar replaces the current URL without navigating.
type AddressBar interface {
	Replace(url string)
}

// Calculator is the part of the backtest engine a session uses.
type Calculator interface {
	Calculate(ctx context.Context, symbol string, amount float64, years int) (*model.BacktestResult, error)
	AvailablePeriods(ctx context.Context, symbol string, amount float64) ([]int, error)
}

// Deps are the collaborators of a session. Tracker and Logger may be nil.
type Deps struct {
	Machine    *journey.Machine
	Calculator Calculator
	Catalog    *data.Catalog
	Loop       runloop.Loop
	Renderer   Renderer
	View       reveal.View
	AddressBar AddressBar
	Tracker    analytics.Tracker
	Logger     *slog.Logger
}

type Option func(*Session)

func WithMinLoading(d time.Duration) Option {
	return func(s *Session) { s.minLoading = d }
}

func WithReducedMotion(on bool) Option {
	return func(s *Session) { s.reducedMotion = on }
}

func WithTimeline(opts ...reveal.TimelineOption) Option {
	return func(s *Session) { s.timelineOpts = opts }
}

type Session struct {
	machine  *journey.Machine
	calc     Calculator
	catalog  *data.Catalog
	loop     runloop.Loop
	renderer Renderer
	address  AddressBar
	tracker  analytics.Tracker
	log      *slog.Logger
	timeline *reveal.Timeline

	minLoading    time.Duration
	reducedMotion bool
	timelineOpts  []reveal.TimelineOption

	ctx         context.Context
	cancel      context.CancelFunc
	location    *url.URL
	unsubscribe func()
	loads       sync.WaitGroup

	mu       sync.Mutex
	mounted  bool
	loadGen  int
	loadTask *runloop.Task
	revealed *reveal.Handle
}

func New(deps Deps, opts ...Option) *Session {
	s := &Session{
		machine:    deps.Machine,
		calc:       deps.Calculator,
		catalog:    deps.Catalog,
		loop:       deps.Loop,
		renderer:   deps.Renderer,
		address:    deps.AddressBar,
		tracker:    deps.Tracker,
		log:        deps.Logger,
		minLoading: DefaultMinLoading,
	}
	if s.machine == nil {
		s.machine = journey.NewMachine()
	}
	if s.tracker == nil {
		s.tracker = analytics.Noop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "journey")
	for _, opt := range opts {
		opt(s)
	}
	s.timeline = reveal.NewTimeline(deps.Loop, deps.View, s.timelineOpts...)
	return s
}

// Machine exposes the state machine, e.g. for Progress.
func (s *Session) Machine() *journey.Machine { return s.machine }

// Start begins the journey at location. A valid shared link for a known
// security skips straight to the loading step; anything else starts fresh.
func (s *Session) Start(ctx context.Context, location *url.URL) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.location = location
	s.unsubscribe = s.machine.Subscribe(s.onTransition)
	s.tracker.Track(analytics.EventPageview, nil)

	if location != nil {
		if p, ok := sharelink.Decode(location.RawQuery); ok {
			if sec, known := s.catalog.Lookup(p.Symbol); known {
				s.tracker.Track(analytics.EventSharedLinkOpened, map[string]any{
					"security": sec.Symbol, "amount": p.Amount, "period": p.Years,
				})
				s.machine.SetSecurity(sec.Symbol, sec.Name)
				if err := s.applyShared(p); err == nil {
					s.machine.SetSharedLink(true)
					_ = s.machine.GoToStep(journey.Loading)
					return
				}
				s.log.Info("ignoring shared link", "query", location.RawQuery)
				s.machine.Reset()
				return
			}
		}
	}

	st := s.machine.State()
	s.mount(st.Step, journey.Forward)
}

func (s *Session) applyShared(p sharelink.Params) error {
	if err := s.machine.SetAmount(float64(p.Amount)); err != nil {
		return err
	}
	return s.machine.SetYears(p.Years)
}

// Close stops listening, cancels in-flight work and waits for loads.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	s.loadGen++
	s.loadTask.Cancel()
	if s.revealed != nil {
		s.revealed.Cancel()
	}
	s.mu.Unlock()
	s.loads.Wait()
}

// WaitLoads blocks until no calculation is in flight.
func (s *Session) WaitLoads() { s.loads.Wait() }

func (s *Session) SelectSecurity(symbol string) error {
	sec, ok := s.catalog.Lookup(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSecurity)
	}
	if err := s.expect(journey.SelectSecurity); err != nil {
		return err
	}
	s.tracker.Track(analytics.EventSecuritySelected, map[string]any{"security": sec.Symbol, "name": sec.Name})
	s.machine.SetSecurity(sec.Symbol, sec.Name)
	s.machine.Next()
	return nil
}

func (s *Session) SelectAmount(amount float64) error {
	if err := s.expect(journey.SetAmount); err != nil {
		return err
	}
	if err := s.machine.SetAmount(amount); err != nil {
		return err
	}
	s.tracker.Track(analytics.EventAmountSelected, map[string]any{"amount": amount})
	s.machine.Next()
	return nil
}

// Periods lists the periods worth offering for the current selection.
func (s *Session) Periods(ctx context.Context) ([]int, error) {
	d := s.machine.State().Data
	if d.Symbol == "" {
		return nil, fmt.Errorf("no security selected: %w", ErrWrongStep)
	}
	return s.calc.AvailablePeriods(ctx, d.Symbol, d.Amount)
}

func (s *Session) SelectPeriod(years int) error {
	if err := s.expect(journey.SetPeriod); err != nil {
		return err
	}
	if err := s.machine.SetYears(years); err != nil {
		return err
	}
	d := s.machine.State().Data
	s.tracker.Track(analytics.EventPeriodSelected, map[string]any{"security": d.Symbol, "period": years})
	s.machine.Next()
	return nil
}

// ChangePeriod recalculates on the results screen and shows the new
// figures without replaying the reveal.
func (s *Session) ChangePeriod(ctx context.Context, years int) error {
	if err := s.expect(journey.ShowResults); err != nil {
		return err
	}
	if !backtest.IsPeriod(years) {
		return fmt.Errorf("%d years: %w", years, journey.ErrInvalidYears)
	}
	d := s.machine.State().Data
	d.Years = years
	res, bench, err := s.calculate(ctx, d)
	if err != nil {
		return err
	}
	if err := s.machine.SetYears(years); err != nil {
		return err
	}
	s.machine.SetResults(res, bench)
	s.syncAddress()

	s.mu.Lock()
	if s.revealed != nil {
		s.revealed.Cancel()
		s.revealed = nil
	}
	s.mu.Unlock()
	s.timeline.Immediate(s.plan(s.machine.State()))
	return nil
}

// Back steps back one screen. It is ignored while loading and on the
// first screen.
func (s *Session) Back() {
	st := s.machine.State()
	if st.Step == journey.Loading || !s.machine.CanGoBack() {
		return
	}
	s.machine.Prev()
}

// Restart resets the journey and strips the share parameters from the
// address bar.
func (s *Session) Restart() {
	s.machine.Reset()
	if s.address != nil && s.location != nil {
		s.address.Replace(sharelink.Clear(s.location))
	}
}

func (s *Session) expect(step journey.Step) error {
	if cur := s.machine.State().Step; cur != step {
		return fmt.Errorf("on %v, want %v: %w", cur, step, ErrWrongStep)
	}
	return nil
}

func (s *Session) onTransition(st journey.State, prev journey.Step) {
	s.mu.Lock()
	wasMounted := s.mounted
	if prev == journey.Loading {
		s.loadGen++
		s.loadTask.Cancel()
		s.loadTask = nil
	}
	if prev == journey.ShowResults && s.revealed != nil {
		s.revealed.Cancel()
		s.revealed = nil
	}
	s.mu.Unlock()

	if wasMounted {
		s.renderer.Unmount(prev, st.Direction)
	}
	s.mount(st.Step, st.Direction)

	switch st.Step {
	case journey.Loading:
		s.startLoading(st)
	case journey.ShowResults:
		s.showResults(st)
	}
}

func (s *Session) mount(step journey.Step, dir journey.Direction) {
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
	s.renderer.Mount(step, dir)
}

func (s *Session) startLoading(st journey.State) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	if st.Data.Symbol == "" {
		s.post(gen, 0, func() { _ = s.machine.GoToStep(journey.SelectSecurity) })
		return
	}

	started := s.loop.Now()
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		res, bench, err := s.calculate(s.ctx, st.Data)
		if err != nil {
			s.log.Warn("calculation failed", "symbol", st.Data.Symbol, "years", st.Data.Years, "error", err)
			s.post(gen, 0, func() {
				s.machine.SetSharedLink(false)
				_ = s.machine.GoToStep(journey.SelectSecurity)
			})
			return
		}
		wait := s.minLoading - s.loop.Now().Sub(started)
		s.post(gen, max(wait, 0), func() {
			s.machine.SetResults(res, bench)
			s.syncAddress()
			s.machine.Next()
		})
	}()
}

// post runs fn on the loop after d unless the loading step it belongs to
// has been left in the meantime.
func (s *Session) post(gen int, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		return
	}
	s.loadTask = s.loop.AfterFunc(d, func() {
		s.mu.Lock()
		stale := gen != s.loadGen
		s.mu.Unlock()
		if stale || s.machine.State().Step != journey.Loading {
			return
		}
		fn()
	})
}

// calculate runs the committed calculation plus the benchmark. A failing
// benchmark only drops the comparison.
func (s *Session) calculate(ctx context.Context, d journey.Data) (*model.BacktestResult, *model.BacktestResult, error) {
	res, err := s.calc.Calculate(ctx, d.Symbol, d.Amount, d.Years)
	if err != nil {
		return nil, nil, err
	}
	bench := s.catalog.Benchmark.Symbol
	if bench == "" || bench == d.Symbol {
		return res, nil, nil
	}
	b, err := s.calc.Calculate(ctx, bench, d.Amount, d.Years)
	if err != nil {
		s.log.Warn("benchmark calculation failed", "symbol", bench, "error", err)
		return res, nil, nil
	}
	return res, b, nil
}

func (s *Session) syncAddress() {
	if s.address == nil || s.location == nil {
		return
	}
	s.address.Replace(sharelink.Encode(s.location, s.machine.State().Data))
}

func (s *Session) showResults(st journey.State) {
	if st.Result == nil {
		return
	}
	s.tracker.Track(analytics.EventResultViewed, map[string]any{
		"security": st.Data.Symbol,
		"amount":   st.Data.Amount,
		"period":   st.Data.Years,
		"return":   st.Result.ReturnPercent(),
	})

	plan := s.plan(st)
	if st.SharedLink {
		s.timeline.Immediate(plan)
		return
	}
	h := s.timeline.Animate(plan)
	s.mu.Lock()
	s.revealed = h
	s.mu.Unlock()
}

func (s *Session) plan(st journey.State) reveal.Plan {
	p := reveal.Plan{
		Result:        st.Result,
		Benchmark:     st.Benchmark,
		Years:         st.Data.Years,
		ReducedMotion: s.reducedMotion,
	}
	if sec, ok := s.catalog.Lookup(st.Data.Symbol); ok && sec.PaysDividend() {
		p.DividendYield = sec.DividendYield
	}
	return p
}

// RevealHandle returns the running animated reveal, if any.
func (s *Session) RevealHandle() *reveal.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed
}
