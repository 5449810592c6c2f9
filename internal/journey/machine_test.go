package journey

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

type recorded struct {
	state State
	prev  Step
}

func record(m *Machine) *[]recorded {
	var got []recorded
	m.Subscribe(func(s State, prev Step) { got = append(got, recorded{s, prev}) })
	return &got
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine()
	s := m.State()
	assert.Equal(t, SelectSecurity, s.Step)
	assert.Equal(t, Forward, s.Direction)
	assert.Equal(t, Data{Amount: 5000, Years: 5}, s.Data)
	assert.False(t, m.CanGoBack())
}

func TestMachine_ProgressStrictlyIncreasesToExactly100(t *testing.T) {
	m := NewMachine()
	last := -1.0
	for _, step := range Steps {
		require.NoError(t, m.GoToStep(step))
		p := m.Progress()
		assert.Greater(t, p, last, "progress at %v", step)
		last = p
	}
	assert.Equal(t, 100.0, m.Progress())
	assert.Equal(t, 20.0, ProgressOf(SelectSecurity))
}

func TestMachine_GoToStepDirectionAndNotify(t *testing.T) {
	m := NewMachine()
	got := record(m)

	require.NoError(t, m.GoToStep(SetPeriod))
	require.NoError(t, m.GoToStep(SetAmount))
	require.NoError(t, m.GoToStep(SetAmount))

	require.Len(t, *got, 3)
	assert.Equal(t, Forward, (*got)[0].state.Direction)
	assert.Equal(t, SelectSecurity, (*got)[0].prev)
	assert.Equal(t, Backward, (*got)[1].state.Direction)
	assert.Equal(t, SetPeriod, (*got)[1].prev)
	// same step counts as forward
	assert.Equal(t, Forward, (*got)[2].state.Direction)
}

func TestMachine_GoToStepRejectsUnknown(t *testing.T) {
	m := NewMachine()
	got := record(m)

	err := m.GoToStep(Step(42))
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Equal(t, SelectSecurity, m.State().Step)
	assert.Empty(t, *got)
}

func TestMachine_NextPrevClamp(t *testing.T) {
	m := NewMachine()
	got := record(m)

	m.Prev()
	assert.Equal(t, SelectSecurity, m.State().Step)
	assert.Empty(t, *got)

	for range Steps {
		m.Next()
	}
	assert.Equal(t, ShowResults, m.State().Step)
	assert.Len(t, *got, 4)

	m.Prev()
	assert.Equal(t, Loading, m.State().Step)
	assert.Equal(t, Backward, m.State().Direction)
	assert.True(t, m.CanGoBack())
}

func TestMachine_DataMutatorsDoNotNotify(t *testing.T) {
	m := NewMachine()
	got := record(m)

	m.SetSecurity("NVDA", "NVIDIA")
	require.NoError(t, m.SetAmount(10000))
	require.NoError(t, m.SetYears(10))
	m.SetResults(&model.BacktestResult{Symbol: "NVDA"}, nil)
	m.SetSharedLink(true)

	assert.Empty(t, *got)
	s := m.State()
	assert.Equal(t, Data{Symbol: "NVDA", Name: "NVIDIA", Amount: 10000, Years: 10}, s.Data)
	assert.Equal(t, "NVDA", s.Result.Symbol)
	assert.True(t, s.SharedLink)
	assert.Equal(t, SelectSecurity, s.Step)

	for _, bad := range []float64{-1, 0, 0.4, 1234.56, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, m.SetAmount(bad), ErrInvalidAmount, "%v", bad)
	}
	assert.Equal(t, 10000.0, m.State().Data.Amount)
	assert.ErrorIs(t, m.SetYears(3), ErrInvalidYears)
	assert.Equal(t, 10, m.State().Data.Years)
}

func TestMachine_SnapshotsAreIndependent(t *testing.T) {
	m := NewMachine()
	before := m.State()
	m.SetSecurity("AAPL", "Apple")
	assert.Empty(t, before.Data.Symbol)
}

func TestMachine_Reset(t *testing.T) {
	m := NewMachine()
	m.SetSecurity("NVDA", "NVIDIA")
	require.NoError(t, m.SetAmount(1234))
	m.SetSharedLink(true)
	m.SetResults(&model.BacktestResult{}, &model.BacktestResult{})
	require.NoError(t, m.GoToStep(ShowResults))
	got := record(m)

	m.Reset()

	s := m.State()
	assert.Equal(t, SelectSecurity, s.Step)
	assert.Equal(t, Data{Amount: DefaultAmount, Years: DefaultYears}, s.Data)
	assert.False(t, s.SharedLink)
	assert.Nil(t, s.Result)
	assert.Nil(t, s.Benchmark)
	require.Len(t, *got, 1)
	assert.Equal(t, ShowResults, (*got)[0].prev)
}

func TestMachine_NotifyOrderAndCommittedState(t *testing.T) {
	m := NewMachine()
	var order []int
	m.Subscribe(func(s State, _ Step) {
		// the mutation is visible through the machine itself
		assert.Equal(t, s.Step, m.State().Step)
		order = append(order, 1)
	})
	m.Subscribe(func(State, Step) { order = append(order, 2) })
	m.Subscribe(func(State, Step) { order = append(order, 3) })

	m.Next()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestMachine_UnsubscribeIsIdempotent(t *testing.T) {
	m := NewMachine()
	calls := map[string]int{}
	unA := m.Subscribe(func(State, Step) { calls["a"]++ })
	m.Subscribe(func(State, Step) { calls["b"]++ })

	m.Next()
	unA()
	unA()
	m.Next()

	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 2, calls["b"])
}

func TestMachine_ListenerMayReenter(t *testing.T) {
	m := NewMachine()
	m.Subscribe(func(s State, _ Step) {
		if s.Step == Loading {
			m.Next()
		}
	})
	require.NoError(t, m.GoToStep(Loading))
	assert.Equal(t, ShowResults, m.State().Step)
}

func TestState_JSON(t *testing.T) {
	raw, err := json.Marshal(State{Step: SetPeriod, Direction: Backward, Data: Data{Amount: 1, Years: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"set-period","direction":"backward","data":{"amount":1,"years":2},"shared_link":false}`, string(raw))
}
