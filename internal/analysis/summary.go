package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// Summary describes a value trajectory beyond its end points.
type Summary struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`

	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`

	// CAGR is the compound annual growth rate implied by the window, as a
	// fraction (0.2 = 20% a year).
	CAGR float64 `json:"cagr"`
	// MaxDrawdown is the largest peak-to-trough fall, as a positive fraction.
	MaxDrawdown float64 `json:"max_drawdown"`

	// P05/P95 of period-over-period returns between consecutive points.
	P05Return float64 `json:"p05_return"`
	P95Return float64 `json:"p95_return"`
}

func Summarize(res *model.BacktestResult) Summary {
	s := Summary{}
	if res == nil || len(res.History) == 0 {
		return s
	}
	h := res.History
	s.Symbol = res.Symbol
	s.Count = len(h)
	s.Start = h[0].Date
	s.End = h[len(h)-1].Date

	s.MinValue = math.Inf(1)
	s.MaxValue = math.Inf(-1)
	peak := h[0].Value
	returns := make([]float64, 0, len(h)-1)
	for i, p := range h {
		s.MinValue = math.Min(s.MinValue, p.Value)
		s.MaxValue = math.Max(s.MaxValue, p.Value)
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			s.MaxDrawdown = math.Max(s.MaxDrawdown, (peak-p.Value)/peak)
		}
		if i > 0 && h[i-1].Value > 0 {
			returns = append(returns, p.Value/h[i-1].Value-1)
		}
	}
	sort.Float64s(returns)
	s.P05Return = percentileSorted(returns, 0.05)
	s.P95Return = percentileSorted(returns, 0.95)

	years := s.End.Sub(s.Start).Hours() / 24 / 365.25
	if years > 0 && h[0].Value > 0 {
		s.CAGR = math.Pow(h[len(h)-1].Value/h[0].Value, 1/years) - 1
	}
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
