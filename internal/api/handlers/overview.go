package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/matsimonsen7/tid-er-penge/internal/analysis"
	"github.com/matsimonsen7/tid-er-penge/internal/analytics"
	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

// OverviewHandler ranks the whole catalog by return.
type OverviewHandler struct {
	calc    analysis.Calculator
	catalog *data.Catalog
	tracker analytics.Tracker
}

// NewOverviewHandler creates a new overview handler
func NewOverviewHandler(calc analysis.Calculator, catalog *data.Catalog, tracker analytics.Tracker) *OverviewHandler {
	if tracker == nil {
		tracker = analytics.Noop{}
	}
	return &OverviewHandler{calc: calc, catalog: catalog, tracker: tracker}
}

// Overview handles GET /api/v1/overview
func (h *OverviewHandler) Overview(c *gin.Context) {
	var req models.OverviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
		return
	}
	years := analysis.DefaultOverviewPeriod
	if req.Period != "" {
		var ok bool
		years, ok = sharelink.ParsePeriod(req.Period)
		if !ok || !slices.Contains(analysis.OverviewPeriods, years) {
			c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, "period must be one of 5y, 10y or 20y"))
			return
		}
	}

	ranking, err := analysis.RankByReturn(c.Request.Context(), h.calc, h.catalog.Securities, analysis.OverviewAmount, years)
	if err != nil {
		// only cancellation reaches here
		c.JSON(http.StatusServiceUnavailable, models.NewError(models.CodeInternal, err.Error()))
		return
	}
	h.tracker.Track(analytics.EventOverviewViewed, map[string]any{"period": years})

	c.JSON(http.StatusOK, models.OverviewResponse{
		Amount:  analysis.OverviewAmount,
		Years:   years,
		Periods: analysis.OverviewPeriods,
		Ranking: ranking,
	})
}
