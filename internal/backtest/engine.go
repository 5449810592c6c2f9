package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

var (
	// ErrNoData is returned when a symbol resolves to an empty series.
	ErrNoData = errors.New("no data")
	// ErrInsufficientData is returned when the requested period predates the
	// available history.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidInput covers negative amounts and non-positive periods.
	ErrInvalidInput = errors.New("invalid backtest input")
)

// Periods is the enumerated set of look-back periods, in years, ascending.
var Periods = []int{2, 5, 10, 20}

// startTolerance is how far past the target date a start entry may lie.
const startTolerance = 7 * 24 * time.Hour

var calculations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journey_backtest_calculations_total",
	Help: "Backtest calculations by outcome",
}, []string{"outcome"})

// SeriesProvider resolves a symbol to its (cached) price series.
type SeriesProvider interface {
	Get(ctx context.Context, symbol string) (*model.PriceSeries, error)
}

type Engine struct {
	series SeriesProvider
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the wall clock used to compute "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(series SeriesProvider, opts ...Option) *Engine {
	e := &Engine{series: series, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate simulates buying amount worth of symbol years ago and holding
// until the most recent close.
func (e *Engine) Calculate(ctx context.Context, symbol string, amount float64, years int) (*model.BacktestResult, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		calculations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("amount %v: %w", amount, ErrInvalidInput)
	}
	if years <= 0 {
		calculations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("period %d years: %w", years, ErrInvalidInput)
	}

	series, err := e.series.Get(ctx, symbol)
	if err != nil {
		calculations.WithLabelValues("load_error").Inc()
		return nil, fmt.Errorf("calculate %s: %w", symbol, err)
	}
	prices := series.Prices
	if len(prices) == 0 {
		calculations.WithLabelValues("no_data").Inc()
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	target := today(e.now()).AddDate(-years, 0, 0)
	startIdx := StartIndex(prices, target)
	endIdx := len(prices) - 1
	if startIdx < 0 || endIdx < startIdx {
		calculations.WithLabelValues("insufficient").Inc()
		return nil, fmt.Errorf("%s over %d years (target %s): %w",
			symbol, years, target.Format(model.DateLayout), ErrInsufficientData)
	}

	startPrice := prices[startIdx].Close
	endPrice := prices[endIdx].Close
	shares := amount / startPrice

	history := make([]model.ValuePoint, 0, endIdx-startIdx+1)
	for _, p := range prices[startIdx : endIdx+1] {
		history = append(history, model.ValuePoint{Date: p.Date, Value: shares * p.Close})
	}

	calculations.WithLabelValues("ok").Inc()
	return &model.BacktestResult{
		Symbol:     symbol,
		Amount:     amount,
		StartDate:  prices[startIdx].Date,
		EndDate:    prices[endIdx].Date,
		StartPrice: startPrice,
		EndPrice:   endPrice,
		Shares:     shares,
		FinalValue: shares * endPrice,
		History:    history,
	}, nil
}

// StartIndex returns the index of the entry closest to target among entries
// no later than target plus the 7-day tolerance, or -1 if there is none.
// Ties keep the earliest entry.
func StartIndex(prices []model.PricePoint, target time.Time) int {
	limit := target.Add(startTolerance)
	best := -1
	var bestDiff time.Duration
	for i, p := range prices {
		if p.Date.After(limit) {
			// ascending order: nothing later can qualify
			break
		}
		diff := p.Date.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// DividendReinvested estimates the final value had dividends been reinvested.
//
// It is an approximation, not a reinvestment simulation: the implied
// annualized price growth is backed out of (initial, final), the dividend
// yield is added to it, and the sum is compounded over years.
func DividendReinvested(initial, final, yield float64, years int) float64 {
	if initial <= 0 || years <= 0 {
		return final
	}
	n := float64(years)
	growth := math.Pow(final/initial, 1/n) - 1
	total := growth + yield
	return initial * math.Pow(1+total, n)
}

// AvailablePeriods probes every enumerated period concurrently and returns,
// ascending, those with enough history and a positive return.
// A load failure for the symbol is returned as an error.
func (e *Engine) AvailablePeriods(ctx context.Context, symbol string, amount float64) ([]int, error) {
	positive := make([]bool, len(Periods))
	g, gctx := errgroup.WithContext(ctx)
	for i, years := range Periods {
		g.Go(func() error {
			res, err := e.Calculate(gctx, symbol, amount, years)
			if err != nil {
				if errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrNoData) {
					return nil
				}
				return err
			}
			positive[i] = res.ReturnPercent() > 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]int, 0, len(Periods))
	for i, ok := range positive {
		if ok {
			out = append(out, Periods[i])
		}
	}
	sort.Ints(out)
	return out, nil
}

// IsPeriod reports whether years is one of the enumerated periods.
func IsPeriod(years int) bool {
	for _, p := range Periods {
		if p == years {
			return true
		}
	}
	return false
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
