package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matsimonsen7/tid-er-penge/internal/analytics"
	"github.com/matsimonsen7/tid-er-penge/internal/api"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/config"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/logging"
	"github.com/matsimonsen7/tid-er-penge/internal/prices"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := data.LoadCatalog(cfg.SecuritiesFile)
	if err != nil {
		return err
	}
	source := data.NewSource(cfg.Prices.BaseURL, cfg.Prices.DataDir, cfg.Prices.Timeout, logger)
	cache := data.NewSeriesCache(source, logger)
	engine := backtest.New(cache)
	logger.Info("price source ready", "source", source.Name(), "securities", len(catalog.Securities))

	sinks, closeSinks, err := analyticsSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	dispatcher := analytics.NewDispatcher(sinks, 256, logger)
	defer dispatcher.Close()

	var publicURL *url.URL
	if cfg.Server.PublicURL != "" {
		if publicURL, err = url.Parse(cfg.Server.PublicURL); err != nil {
			return fmt.Errorf("server.public_url: %w", err)
		}
	}

	// Refresh local files on a schedule when serving from disk.
	if cfg.Update.Schedule != "" && cfg.Prices.BaseURL == "" {
		fetcher := prices.NewYahooFetcher(cfg.Update.SourceURL, nil, cfg.Update.RequestsPerSecond, logger)
		refresher := prices.NewRefresher(fetcher, catalog, cfg.Prices.DataDir, logger)
		refresher.Years = cfg.Update.Years
		refresher.MaxPoints = cfg.Update.MaxPoints
		c, err := prices.Schedule(ctx, cfg.Update.Schedule, refresher)
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		logger.Info("price refresh scheduled", "schedule", cfg.Update.Schedule)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Calculator:     engine,
		Catalog:        catalog,
		Dispatcher:     dispatcher,
		Project:        cfg.Analytics.Project,
		PublicURL:      publicURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting api server", "addr", srv.Addr, "env", cfg.Server.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// analyticsSinks fans events out to every configured destination.
func analyticsSinks(cfg *config.Config, logger *slog.Logger) (analytics.Sink, func(), error) {
	var sinks analytics.Multi
	closeFn := func() {}
	if cfg.Analytics.URL != "" {
		sinks = append(sinks, analytics.NewHTTPSink(cfg.Analytics.URL, nil))
	}
	if cfg.Analytics.SQLitePath != "" {
		store, err := analytics.NewSQLiteStore(cfg.Analytics.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closeFn = func() { _ = store.Close() }
	}
	if len(sinks) == 0 {
		return analytics.Noop{}, closeFn, nil
	}
	return sinks, closeFn, nil
}
