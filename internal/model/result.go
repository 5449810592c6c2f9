package model

import (
	"fmt"
	"math"
	"time"
)

// ValuePoint is the portfolio value on one trading day.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestResult is the outcome of buying Amount worth of Symbol on StartDate
// and holding until EndDate.
type BacktestResult struct {
	Symbol     string       `json:"symbol"`
	Amount     float64      `json:"amount"`
	StartDate  time.Time    `json:"start_date"`
	EndDate    time.Time    `json:"end_date"`
	StartPrice float64      `json:"start_price"`
	EndPrice   float64      `json:"end_price"`
	Shares     float64      `json:"shares"`
	FinalValue float64      `json:"final_value"`
	History    []ValuePoint `json:"history"`
}

// ReturnPercent is the total price return over the window, in percent.
func (r *BacktestResult) ReturnPercent() float64 {
	if r == nil || r.Amount == 0 {
		return 0
	}
	return (r.FinalValue - r.Amount) / r.Amount * 100
}

// Badge renders the return as a whole-percent label such as "+150%".
func (r *BacktestResult) Badge() string {
	return FormatPercent(r.ReturnPercent())
}

// FormatPercent formats a percentage with an explicit sign and no decimals.
func FormatPercent(pct float64) string {
	rounded := math.Round(pct)
	if rounded == 0 {
		// avoid "-0%"
		rounded = 0
	}
	if rounded >= 0 {
		return fmt.Sprintf("+%.0f%%", rounded)
	}
	return fmt.Sprintf("%.0f%%", rounded)
}
