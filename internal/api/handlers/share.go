package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

// CreateShare handles POST /api/v1/share
func (h *BacktestHandler) CreateShare(c *gin.Context) {
	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
		return
	}
	sec, ok := h.security(c, req.Security)
	if !ok {
		return
	}
	if !backtest.IsPeriod(req.Years) {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, "years must be 2, 5, 10 or 20"))
		return
	}
	link := sharelink.Encode(h.publicURL, journey.Data{Symbol: sec.Symbol, Amount: float64(req.Amount), Years: req.Years})
	c.JSON(http.StatusOK, models.ShareResponse{URL: link})
}

// DecodeShare handles GET /api/v1/share?security=..&amount=..&period=..
func (h *BacktestHandler) DecodeShare(c *gin.Context) {
	p, ok := sharelink.Decode(c.Request.URL.RawQuery)
	if !ok {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, "not a complete share link"))
		return
	}
	token, _ := sharelink.Token(p.Years)
	resp := models.ShareParams{
		Security: p.Symbol,
		Amount:   p.Amount,
		Years:    p.Years,
		Period:   token,
	}
	if sec, known := h.catalog.Lookup(p.Symbol); known {
		resp.Known = true
		resp.Name = sec.Name
	}
	c.JSON(http.StatusOK, resp)
}
