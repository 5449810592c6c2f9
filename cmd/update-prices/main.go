package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matsimonsen7/tid-er-penge/internal/config"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/logging"
	"github.com/matsimonsen7/tid-er-penge/internal/prices"
)

func main() {
	var (
		cfgPath   = flag.String("config", "config.yaml", "Path to YAML config (optional)")
		outputDir = flag.String("output", "", "Output directory (default: prices.data_dir)")
		catalog   = flag.String("securities", "", "Securities file (default: securities_file)")
		years     = flag.Int("years", 0, "Years of history to fetch (default: update.years)")
		schedule  = flag.String("schedule", "", "Cron spec; keep running and refresh on schedule")
		runNow    = flag.Bool("now", true, "Refresh once before waiting for the schedule")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if *outputDir == "" {
		*outputDir = cfg.Prices.DataDir
	}
	if *outputDir == "" {
		*outputDir = data.GetDefaultPriceDir()
	}
	if *catalog == "" {
		*catalog = cfg.SecuritiesFile
	}
	if *years <= 0 {
		*years = cfg.Update.Years
	}
	if *schedule == "" {
		*schedule = cfg.Update.Schedule
	}

	list, err := data.LoadCatalog(*catalog)
	if err != nil {
		logger.Error("failed to load securities", "error", err)
		os.Exit(1)
	}

	fetcher := prices.NewYahooFetcher(cfg.Update.SourceURL, nil, cfg.Update.RequestsPerSecond, logger)
	refresher := prices.NewRefresher(fetcher, list, *outputDir, logger)
	refresher.Years = *years
	refresher.MaxPoints = cfg.Update.MaxPoints

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("updating prices", "symbols", len(list.Symbols()), "years", *years, "output", *outputDir)
	if *runNow || *schedule == "" {
		index, err := refresher.Run(ctx)
		if err != nil {
			logger.Error("refresh failed", "error", err)
			if *schedule == "" {
				stop()
				os.Exit(1)
			}
		} else {
			logger.Info("index saved", "stocks", len(index))
		}
	}
	if *schedule == "" {
		return
	}

	c, err := prices.Schedule(ctx, *schedule, refresher)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		stop()
		os.Exit(1)
	}
	c.Start()
	logger.Info("waiting for schedule", "schedule", *schedule)
	<-ctx.Done()
	<-c.Stop().Done()
}
