package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

type fixedCalc map[string]float64

func (f fixedCalc) Calculate(_ context.Context, symbol string, amount float64, _ int) (*model.BacktestResult, error) {
	final, ok := f[symbol]
	if !ok {
		return nil, errors.New("insufficient data")
	}
	return &model.BacktestResult{Symbol: symbol, Amount: amount, FinalValue: final}, nil
}

func TestRankByReturn(t *testing.T) {
	secs := []model.Security{
		{Symbol: "A"}, {Symbol: "NEW"}, {Symbol: "B"}, {Symbol: "C"}, {Symbol: "GONE"},
	}
	calc := fixedCalc{"A": 6000, "B": 15000, "C": 4000}

	ranked, err := RankByReturn(context.Background(), calc, secs, OverviewAmount, DefaultOverviewPeriod)
	require.NoError(t, err)

	var order []string
	for _, r := range ranked {
		order = append(order, r.Security.Symbol)
	}
	assert.Equal(t, []string{"B", "A", "C", "NEW", "GONE"}, order)
	assert.Equal(t, 200.0, *ranked[0].ReturnPercent)
	assert.Equal(t, 15000.0, *ranked[0].FinalValue)
	assert.Nil(t, ranked[3].ReturnPercent)
}

func TestRankByReturn_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RankByReturn(ctx, fixedCalc{}, []model.Security{{Symbol: "A"}}, 5000, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	d := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	res := &model.BacktestResult{
		Symbol: "X",
		History: []model.ValuePoint{
			{Date: d, Value: 100},
			{Date: d.AddDate(0, 6, 0), Value: 150},
			{Date: d.AddDate(1, 0, 0), Value: 90},
			{Date: d.AddDate(2, 0, 0), Value: 121},
		},
	}
	s := Summarize(res)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 90.0, s.MinValue)
	assert.Equal(t, 150.0, s.MaxValue)
	assert.InDelta(t, 0.4, s.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.1, s.CAGR, 0.001)
	assert.InDelta(t, -0.4, s.P05Return, 0.1)

	assert.Equal(t, Summary{}, Summarize(nil))
}
