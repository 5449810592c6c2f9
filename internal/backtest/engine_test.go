package backtest

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

type stubSeries map[string]*model.PriceSeries

func (s stubSeries) Get(_ context.Context, symbol string) (*model.PriceSeries, error) {
	series, ok := s[symbol]
	if !ok {
		return nil, &data.LoadError{Symbol: symbol, StatusCode: 404, Err: errors.New("not found")}
	}
	return series, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func series(symbol string, points ...model.PricePoint) *model.PriceSeries {
	return &model.PriceSeries{Symbol: symbol, Name: symbol, Prices: points}
}

func pt(t time.Time, px float64) model.PricePoint {
	return model.PricePoint{Date: t, Close: px}
}

func TestCalculate_EndToEnd(t *testing.T) {
	now := day(2026, time.June, 15)
	s := series("ACME",
		pt(day(2021, time.June, 14), 100),
		pt(day(2023, time.January, 2), 180),
		pt(day(2026, time.June, 12), 250),
	)
	e := New(stubSeries{"ACME": s}, fixedClock(now))

	res, err := e.Calculate(context.Background(), "ACME", 5000, 5)
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.StartPrice)
	assert.Equal(t, 250.0, res.EndPrice)
	assert.Equal(t, 12500.0, res.FinalValue)
	assert.Equal(t, "+150%", res.Badge())
	assert.Equal(t, day(2021, time.June, 14), res.StartDate)
	assert.Equal(t, day(2026, time.June, 12), res.EndDate)
	require.Len(t, res.History, 3)
	assert.Equal(t, 9000.0, res.History[1].Value)
}

func TestCalculate_FinalValueIdentity(t *testing.T) {
	now := day(2026, time.March, 3)
	s := series("X",
		pt(day(2016, time.March, 1), 37.19),
		pt(day(2019, time.July, 1), 51.03),
		pt(day(2024, time.March, 4), 12.77),
		pt(day(2026, time.March, 2), 91.41),
	)
	e := New(stubSeries{"X": s}, fixedClock(now))

	for _, amount := range []float64{1, 1000, 5000, 12345, 999999} {
		for _, years := range []int{2, 5, 10} {
			res, err := e.Calculate(context.Background(), "X", amount, years)
			require.NoError(t, err, "amount=%v years=%d", amount, years)

			assert.Equal(t, amount/res.StartPrice*res.EndPrice, res.FinalValue)
			first := res.History[0]
			last := res.History[len(res.History)-1]
			assert.Equal(t, amount/res.StartPrice*res.StartPrice, first.Value)
			assert.Equal(t, res.FinalValue, last.Value)
			assert.InDelta(t, amount, first.Value, 1e-9)
		}
	}
}

func TestCalculate_TrajectoryIsChronological(t *testing.T) {
	now := day(2026, time.January, 10)
	s := series("X",
		pt(day(2023, time.December, 1), 10),
		pt(day(2024, time.January, 9), 20),
		pt(day(2025, time.January, 9), 30),
		pt(day(2026, time.January, 9), 40),
	)
	e := New(stubSeries{"X": s}, fixedClock(now))

	res, err := e.Calculate(context.Background(), "X", 200, 2)
	require.NoError(t, err)
	require.Len(t, res.History, 3)
	for i := 1; i < len(res.History); i++ {
		assert.True(t, res.History[i].Date.After(res.History[i-1].Date))
	}
	assert.Equal(t, []float64{200, 300, 400}, []float64{res.History[0].Value, res.History[1].Value, res.History[2].Value})
}

func TestStartIndex_PrefersClosestWithinTolerance(t *testing.T) {
	prices := []model.PricePoint{
		pt(day(2020, time.January, 1), 1),
		pt(day(2020, time.January, 10), 2),
	}
	assert.Equal(t, 0, StartIndex(prices, day(2020, time.January, 3)))
	assert.Equal(t, 1, StartIndex(prices, day(2020, time.January, 8)))
}

func TestStartIndex_RejectsEntriesPastTolerance(t *testing.T) {
	prices := []model.PricePoint{
		pt(day(2020, time.January, 20), 1),
		pt(day(2020, time.February, 1), 2),
	}
	assert.Equal(t, -1, StartIndex(prices, day(2020, time.January, 3)))
	// exactly seven days later is still acceptable
	assert.Equal(t, 0, StartIndex(prices, day(2020, time.January, 13)))
}

func TestStartIndex_TieKeepsEarliest(t *testing.T) {
	prices := []model.PricePoint{
		pt(day(2020, time.January, 1), 1),
		pt(day(2020, time.January, 5), 2),
	}
	assert.Equal(t, 0, StartIndex(prices, day(2020, time.January, 3)))
}

func TestCalculate_InsufficientHistory(t *testing.T) {
	now := day(2026, time.June, 1)
	s := series("NEW",
		pt(day(2024, time.June, 3), 10),
		pt(day(2026, time.May, 29), 12),
	)
	e := New(stubSeries{"NEW": s}, fixedClock(now))

	_, err := e.Calculate(context.Background(), "NEW", 5000, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = e.Calculate(context.Background(), "NEW", 5000, 2)
	assert.NoError(t, err)
}

func TestCalculate_NoDataAndLoadFailure(t *testing.T) {
	e := New(stubSeries{"EMPTY": series("EMPTY")}, fixedClock(day(2026, time.June, 1)))

	_, err := e.Calculate(context.Background(), "EMPTY", 5000, 5)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = e.Calculate(context.Background(), "MISSING", 5000, 5)
	var loadErr *data.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "MISSING", loadErr.Symbol)
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	e := New(stubSeries{}, fixedClock(day(2026, time.June, 1)))

	_, err := e.Calculate(context.Background(), "X", -1, 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.Calculate(context.Background(), "X", 100, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.Calculate(context.Background(), "X", math.NaN(), 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDividendReinvested(t *testing.T) {
	// no price growth: only the yield compounds
	got := DividendReinvested(1000, 1000, 0.05, 2)
	assert.InDelta(t, 1102.5, got, 1e-9)

	// zero yield returns the price-only final value
	assert.InDelta(t, 2500, DividendReinvested(1000, 2500, 0, 5), 1e-9)

	// with yield it always beats the price-only value
	assert.Greater(t, DividendReinvested(5000, 12500, 0.022, 5), 12500.0)

	// degenerate inputs fall back to the final value
	assert.Equal(t, 42.0, DividendReinvested(0, 42, 0.1, 5))
}

func TestAvailablePeriods(t *testing.T) {
	now := day(2026, time.June, 15)
	s := series("MIX",
		pt(day(2016, time.June, 15), 300), // 10y: loss
		pt(day(2021, time.June, 15), 100), // 5y: gain
		pt(day(2024, time.June, 14), 250), // 2y: flat
		pt(day(2026, time.June, 15), 250),
	)
	e := New(stubSeries{"MIX": s}, fixedClock(now))

	periods, err := e.AvailablePeriods(context.Background(), "MIX", 5000)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, periods)
}

func TestAvailablePeriods_LoadFailure(t *testing.T) {
	e := New(stubSeries{}, fixedClock(day(2026, time.June, 15)))
	_, err := e.AvailablePeriods(context.Background(), "NOPE", 5000)
	var loadErr *data.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestIsPeriod(t *testing.T) {
	for _, y := range Periods {
		assert.True(t, IsPeriod(y))
	}
	assert.False(t, IsPeriod(3))
	assert.False(t, IsPeriod(0))
}

func TestEncodeHistoryCSV(t *testing.T) {
	res := &model.BacktestResult{
		Shares: 2,
		History: []model.ValuePoint{
			{Date: day(2024, time.January, 2), Value: 200},
			{Date: day(2024, time.January, 3), Value: 210},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeHistoryCSV(&buf, res))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,close,value", lines[0])
	assert.Equal(t, "2024-01-02,100.000000,200.000000", lines[1])
}
