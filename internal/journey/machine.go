package journey

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

const (
	DefaultAmount = 5000
	DefaultYears  = 5
)

var (
	ErrUnknownStep   = errors.New("unknown step")
	ErrInvalidAmount = errors.New("amount must be a positive whole number")
	ErrInvalidYears  = errors.New("unsupported period")
)

// Data holds the user's accumulated choices.
type Data struct {
	Symbol string  `json:"symbol,omitempty"`
	Name   string  `json:"name,omitempty"`
	Amount float64 `json:"amount"`
	Years  int     `json:"years"`
}

// State is an immutable snapshot of the journey. The machine replaces it on
// every change; result pointers are shared and must be treated as read-only.
type State struct {
	Step       Step                  `json:"step"`
	Direction  Direction             `json:"direction"`
	Data       Data                  `json:"data"`
	Result     *model.BacktestResult `json:"result,omitempty"`
	Benchmark  *model.BacktestResult `json:"benchmark,omitempty"`
	SharedLink bool                  `json:"shared_link"`
}

// Listener receives the committed state and the step that was current
// immediately before the transition.
type Listener func(state State, prev Step)

type subscription struct {
	id int
	fn Listener
}

// Machine is the journey state container. It is safe for concurrent use.
//
// Listeners run synchronously on the mutating goroutine, after the new state
// is committed and outside the lock, so they may call back into the machine.
type Machine struct {
	mu     sync.Mutex
	state  State
	subs   []subscription
	nextID int
}

func NewMachine() *Machine {
	return &Machine{state: initialState()}
}

func initialState() State {
	return State{
		Step:      SelectSecurity,
		Direction: Forward,
		Data:      Data{Amount: DefaultAmount, Years: DefaultYears},
	}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (m *Machine) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Machine) SetSecurity(symbol, name string) {
	m.update(func(s *State) { s.Data.Symbol, s.Data.Name = symbol, name })
}

// SetAmount accepts whole kroner only, so a share link carries the amount
// exactly.
func (m *Machine) SetAmount(amount float64) error {
	if amount <= 0 || math.IsInf(amount, 0) || amount != math.Trunc(amount) {
		return fmt.Errorf("%v: %w", amount, ErrInvalidAmount)
	}
	m.update(func(s *State) { s.Data.Amount = amount })
	return nil
}

func (m *Machine) SetYears(years int) error {
	if !backtest.IsPeriod(years) {
		return fmt.Errorf("%d years: %w", years, ErrInvalidYears)
	}
	m.update(func(s *State) { s.Data.Years = years })
	return nil
}

// SetResults stores the calculation for the chosen security and the
// benchmark (which may be nil).
func (m *Machine) SetResults(result, benchmark *model.BacktestResult) {
	m.update(func(s *State) { s.Result, s.Benchmark = result, benchmark })
}

func (m *Machine) SetSharedLink(shared bool) {
	m.update(func(s *State) { s.SharedLink = shared })
}

// GoToStep moves to target and notifies listeners. Moving to the current
// step counts as forward.
func (m *Machine) GoToStep(target Step) error {
	if !target.Valid() {
		return fmt.Errorf("%v: %w", target, ErrUnknownStep)
	}
	m.mu.Lock()
	prev := m.state.Step
	next := m.state
	next.Step = target
	if target >= prev {
		next.Direction = Forward
	} else {
		next.Direction = Backward
	}
	m.state = next
	listeners := m.listeners()
	m.mu.Unlock()

	notify(listeners, next, prev)
	return nil
}

// Next advances one step; it is a no-op on the last step.
func (m *Machine) Next() {
	cur := m.State().Step
	if cur < ShowResults {
		_ = m.GoToStep(cur + 1)
	}
}

// Prev goes back one step; it is a no-op on the first step.
func (m *Machine) Prev() {
	cur := m.State().Step
	if cur > SelectSecurity {
		_ = m.GoToStep(cur - 1)
	}
}

func (m *Machine) CanGoBack() bool {
	return m.State().Step > SelectSecurity
}

// Reset restores the initial choices and step and clears results and the
// shared-link flag.
func (m *Machine) Reset() {
	m.mu.Lock()
	prev := m.state.Step
	next := initialState()
	next.Direction = Backward
	if prev == SelectSecurity {
		next.Direction = Forward
	}
	m.state = next
	listeners := m.listeners()
	m.mu.Unlock()

	notify(listeners, next, prev)
}

// Progress is the completed share of the journey in percent. The last step
// reports exactly 100.
func (m *Machine) Progress() float64 {
	return ProgressOf(m.State().Step)
}

// ProgressOf computes the progress percentage for step s.
func ProgressOf(s Step) float64 {
	if s >= ShowResults {
		return 100
	}
	return float64(int(s)+1) / float64(len(Steps)) * 100
}

func (m *Machine) update(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.state
	fn(&next)
	m.state = next
}

// listeners must be called with mu held.
func (m *Machine) listeners() []Listener {
	out := make([]Listener, len(m.subs))
	for i, s := range m.subs {
		out[i] = s.fn
	}
	return out
}

func notify(listeners []Listener, state State, prev Step) {
	for _, fn := range listeners {
		fn(state, prev)
	}
}
