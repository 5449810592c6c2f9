// Package api exposes the journey backtester over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matsimonsen7/tid-er-penge/internal/api/handlers"
	"github.com/matsimonsen7/tid-er-penge/internal/api/middleware"
	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
)

// Deps is what the router needs.
type Deps struct {
	Calculator     handlers.Calculator
	Catalog        *data.Catalog
	Dispatcher     handlers.Dispatcher
	Project        string
	PublicURL      *url.URL
	AllowedOrigins []string
	// StaticDir holds the built single-page app; skipped when missing.
	StaticDir string
	Logger    *slog.Logger
}

// NewRouter wires middleware, API routes, health, metrics and static files.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	backtestHandler := handlers.NewBacktestHandler(deps.Calculator, deps.Catalog, deps.PublicURL, logger)
	overviewHandler := handlers.NewOverviewHandler(deps.Calculator, deps.Catalog, nil)
	trackHandler := handlers.NewTrackHandler(deps.Dispatcher, deps.Project)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/securities", backtestHandler.ListSecurities)
		api.GET("/securities/:symbol/periods", backtestHandler.Periods)

		api.GET("/backtest", backtestHandler.RunBacktest)
		api.GET("/backtest/chart.png", backtestHandler.Chart)

		api.GET("/share", backtestHandler.DecodeShare)
		api.POST("/share", backtestHandler.CreateShare)

		api.GET("/overview", overviewHandler.Overview)
		api.POST("/track", trackHandler.Track)
	}

	serveStatic(router, deps.StaticDir, logger)
	return router
}

func serveStatic(router *gin.Engine, staticDir string, logger *slog.Logger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.NewError("NOT_FOUND", "Not found"))
	}
	if staticDir == "" {
		router.NoRoute(notFound)
		return
	}
	if _, err := os.Stat(staticDir); err != nil {
		logger.Info("static directory not found, skipping static file serving", "dir", staticDir)
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(staticDir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(staticDir, "favicon.ico"))
	// Share links land on arbitrary paths; the SPA reads the query itself.
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	})
	logger.Info("serving static files", "dir", staticDir)
}
