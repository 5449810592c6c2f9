package models

import (
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/analysis"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// SecuritiesResponse lists the catalog.
type SecuritiesResponse struct {
	Benchmark  model.Security   `json:"benchmark"`
	Securities []model.Security `json:"securities"`
}

// PeriodsResponse lists the periods with enough history and a positive
// return, ascending.
type PeriodsResponse struct {
	Symbol  string `json:"symbol"`
	Periods []int  `json:"periods"`
}

// BacktestResponse is everything the results page shows.
type BacktestResponse struct {
	Security       model.Security     `json:"security"`
	Amount         float64            `json:"amount"`
	Years          int                `json:"years"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	FinalValue     float64            `json:"final_value"`
	FinalValueText string             `json:"final_value_text"`
	ReturnPercent  float64            `json:"return_percent"`
	Badge          string             `json:"badge"`
	History        []model.ValuePoint `json:"history"`
	Benchmark      *BenchmarkSummary  `json:"benchmark,omitempty"`
	Dividend       *DividendSummary   `json:"dividend,omitempty"`
	Summary        analysis.Summary   `json:"summary"`
	ShareURL       string             `json:"share_url"`
}

// BenchmarkSummary is the comparison index over the same window.
type BenchmarkSummary struct {
	Symbol        string             `json:"symbol"`
	Name          string             `json:"name"`
	FinalValue    float64            `json:"final_value"`
	ReturnPercent float64            `json:"return_percent"`
	History       []model.ValuePoint `json:"history"`
}

// DividendSummary is the reinvested-dividend estimate.
type DividendSummary struct {
	Yield      float64 `json:"yield"`
	FinalValue float64 `json:"final_value"`
	Text       string  `json:"text"`
}

// OverviewResponse ranks the catalog for one period.
type OverviewResponse struct {
	Amount  float64           `json:"amount"`
	Years   int               `json:"years"`
	Periods []int             `json:"periods"`
	Ranking []analysis.Ranked `json:"ranking"`
}

// ShareResponse carries an encoded share link.
type ShareResponse struct {
	URL string `json:"url"`
}

// ShareParams is a decoded share link.
type ShareParams struct {
	Security string `json:"security"`
	Amount   int    `json:"amount"`
	Years    int    `json:"years"`
	Period   string `json:"period"`
	Known    bool   `json:"known"`
	Name     string `json:"name,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
