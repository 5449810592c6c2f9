package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matsimonsen7/tid-er-penge/internal/analysis"
	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/chart"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

// Calculator is the backtest engine as seen by the handlers.
type Calculator interface {
	Calculate(ctx context.Context, symbol string, amount float64, years int) (*model.BacktestResult, error)
	AvailablePeriods(ctx context.Context, symbol string, amount float64) ([]int, error)
}

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	calc      Calculator
	catalog   *data.Catalog
	publicURL *url.URL
	logger    *slog.Logger
}

// NewBacktestHandler creates a new backtest handler. publicURL is the page
// share links point at.
func NewBacktestHandler(calc Calculator, catalog *data.Catalog, publicURL *url.URL, logger *slog.Logger) *BacktestHandler {
	if publicURL == nil {
		publicURL = &url.URL{Path: "/"}
	}
	return &BacktestHandler{
		calc:      calc,
		catalog:   catalog,
		publicURL: publicURL,
		logger:    logger.With("component", "api"),
	}
}

// ListSecurities handles GET /api/v1/securities
func (h *BacktestHandler) ListSecurities(c *gin.Context) {
	c.JSON(http.StatusOK, models.SecuritiesResponse{
		Benchmark:  h.catalog.Benchmark,
		Securities: h.catalog.Securities,
	})
}

// Periods handles GET /api/v1/securities/:symbol/periods
func (h *BacktestHandler) Periods(c *gin.Context) {
	sec, ok := h.security(c, c.Param("symbol"))
	if !ok {
		return
	}
	var req models.PeriodsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
		return
	}
	if req.Amount <= 0 {
		req.Amount = journey.DefaultAmount
	}

	periods, err := h.calc.AvailablePeriods(c.Request.Context(), sec.Symbol, float64(req.Amount))
	if err != nil {
		h.fail(c, sec.Symbol, err)
		return
	}
	c.JSON(http.StatusOK, models.PeriodsResponse{Symbol: sec.Symbol, Periods: periods})
}

// RunBacktest handles GET /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	run, ok := h.run(c)
	if !ok {
		return
	}
	res := run.result

	resp := models.BacktestResponse{
		Security:       run.security,
		Amount:         res.Amount,
		Years:          run.years,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
		FinalValue:     res.FinalValue,
		FinalValueText: model.FormatKroner(res.FinalValue),
		ReturnPercent:  res.ReturnPercent(),
		Badge:          res.Badge(),
		History:        chart.Sample(res.History, chart.MaxPoints),
		Summary:        analysis.Summarize(res),
		ShareURL: sharelink.Encode(h.publicURL, journey.Data{
			Symbol: run.security.Symbol,
			Amount: res.Amount,
			Years:  run.years,
		}),
	}
	if b := run.benchmark; b != nil {
		resp.Benchmark = &models.BenchmarkSummary{
			Symbol:        b.Symbol,
			Name:          h.catalog.Benchmark.Name,
			FinalValue:    b.FinalValue,
			ReturnPercent: b.ReturnPercent(),
			History:       chart.Sample(b.History, chart.MaxPoints),
		}
	}
	if run.security.PaysDividend() {
		v := backtest.DividendReinvested(res.Amount, res.FinalValue, run.security.DividendYield, run.years)
		resp.Dividend = &models.DividendSummary{
			Yield:      run.security.DividendYield,
			FinalValue: v,
			Text:       model.FormatKroner(v),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Chart handles GET /api/v1/backtest/chart.png
func (h *BacktestHandler) Chart(c *gin.Context) {
	run, ok := h.run(c)
	if !ok {
		return
	}
	png, err := chart.Growth(run.result, run.benchmark, chart.Options{
		Name:          run.security.Name,
		BenchmarkName: h.catalog.Benchmark.Name,
	})
	if err != nil {
		h.logger.Error("chart render failed", "symbol", run.security.Symbol, "error", err)
		c.JSON(http.StatusInternalServerError, models.NewError(models.CodeChartFailed, err.Error()))
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

type backtestRun struct {
	security  model.Security
	years     int
	result    *model.BacktestResult
	benchmark *model.BacktestResult
}

// run binds the request and calculates the security and its benchmark.
// On failure the error response has been written.
func (h *BacktestHandler) run(c *gin.Context) (backtestRun, bool) {
	var req models.BacktestRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
		return backtestRun{}, false
	}
	sec, ok := h.security(c, req.Security)
	if !ok {
		return backtestRun{}, false
	}
	years, ok := sharelink.ParsePeriod(req.Period)
	if !ok {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest,
			"period must be one of 2y, 5y, 10y or 20y"))
		return backtestRun{}, false
	}

	ctx := c.Request.Context()
	res, err := h.calc.Calculate(ctx, sec.Symbol, float64(req.Amount), years)
	if err != nil {
		h.fail(c, sec.Symbol, err)
		return backtestRun{}, false
	}
	run := backtestRun{security: sec, years: years, result: res}

	if bench := h.catalog.Benchmark.Symbol; bench != sec.Symbol {
		b, err := h.calc.Calculate(ctx, bench, float64(req.Amount), years)
		if err != nil {
			h.logger.Warn("benchmark unavailable", "benchmark", bench, "years", years, "error", err)
		} else {
			run.benchmark = b
		}
	}
	return run, true
}

func (h *BacktestHandler) security(c *gin.Context, symbol string) (model.Security, bool) {
	sec, ok := h.catalog.Lookup(symbol)
	if !ok {
		sec, ok = h.catalog.LookupSlug(symbol)
	}
	if !ok {
		c.JSON(http.StatusNotFound, models.NewError(models.CodeUnknownSecurity, "unknown security "+strconv.Quote(symbol)))
	}
	return sec, ok
}

func (h *BacktestHandler) fail(c *gin.Context, symbol string, err error) {
	status, resp := models.FromError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("calculation failed", "symbol", symbol, "error", err)
	}
	c.JSON(status, resp)
}
