package analysis

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// Overview defaults.
const (
	OverviewAmount        = 5000
	DefaultOverviewPeriod = 10
)

var OverviewPeriods = []int{5, 10, 20}

// Calculator is the slice of the backtest engine ranking needs.
type Calculator interface {
	Calculate(ctx context.Context, symbol string, amount float64, years int) (*model.BacktestResult, error)
}

// Ranked is one row of the overview. ReturnPercent and FinalValue are nil
// when the security could not be calculated for the period.
type Ranked struct {
	Security      model.Security `json:"security"`
	ReturnPercent *float64       `json:"return_percent"`
	FinalValue    *float64       `json:"final_value"`
}

// RankByReturn calculates every security for the period concurrently and
// sorts descending by return. Securities without a result keep catalog
// order at the bottom. Only context cancellation is reported as an error.
func RankByReturn(ctx context.Context, calc Calculator, securities []model.Security, amount float64, years int) ([]Ranked, error) {
	out := make([]Ranked, len(securities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, sec := range securities {
		out[i].Security = sec
		g.Go(func() error {
			res, err := calc.Calculate(gctx, sec.Symbol, amount, years)
			if err != nil {
				return gctx.Err()
			}
			pct, final := res.ReturnPercent(), res.FinalValue
			out[i].ReturnPercent = &pct
			out[i].FinalValue = &final
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ReturnPercent, out[j].ReturnPercent
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	return out, nil
}
