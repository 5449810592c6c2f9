package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/analytics"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/config"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/logging"
	"github.com/matsimonsen7/tid-er-penge/internal/runloop"
	"github.com/matsimonsen7/tid-er-penge/internal/session"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

// Demo:
// - Walk through the journey in the terminal on the real run loop
// - Pick security, amount and period (or open a share link)
// - Play the animated reveal: count-up, confetti, badge, chart, CTA
func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	symbol := flag.String("security", "NVDA", "Security to invest in")
	amount := flag.Int("amount", journey.DefaultAmount, "Amount invested, in kroner")
	period := flag.String("period", "5y", "Look-back period: 2y, 5y, 10y or 20y")
	link := flag.String("link", "", "Open a share link instead of choosing")
	reduced := flag.Bool("reduced-motion", false, "Skip animations")
	flag.Parse()

	if err := run(*cfgPath, *symbol, *amount, *period, *link, *reduced); err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func run(cfgPath, symbol string, amount int, period, link string, reduced bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, "text", os.Stderr)
	years, ok := sharelink.ParsePeriod(period)
	if !ok {
		return fmt.Errorf("unknown period %q", period)
	}

	catalog, err := data.LoadCatalog(cfg.SecuritiesFile)
	if err != nil {
		return err
	}
	source := data.NewSource(cfg.Prices.BaseURL, cfg.Prices.DataDir, cfg.Prices.Timeout, logger)
	engine := backtest.New(data.NewSeriesCache(source, logger))

	start := "https://tiderpenge.dk/"
	if cfg.Server.PublicURL != "" {
		start = cfg.Server.PublicURL
	}
	if link != "" {
		start = link
	}
	location, err := url.Parse(start)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loop := runloop.NewReal(logger)
	defer loop.Close()

	machine := journey.NewMachine()
	address := &addressBar{out: os.Stdout, url: location.String()}
	term := newTerminal(os.Stdout, machine, address.Current)
	s := session.New(session.Deps{
		Machine:    machine,
		Calculator: engine,
		Catalog:    catalog,
		Loop:       loop,
		Renderer:   term,
		View:       term,
		AddressBar: address,
		Tracker:    analytics.Noop{},
		Logger:     logger,
	},
		session.WithMinLoading(cfg.Journey.MinLoading),
		session.WithReducedMotion(reduced || cfg.Journey.ReducedMotion),
	)
	defer s.Close()

	// All journey calls go through the loop so they are serialised with
	// the reveal callbacks.
	do := func(fn func() error) error {
		errc := make(chan error, 1)
		if !loop.Post(func() { errc <- fn() }) {
			return errors.New("loop closed")
		}
		return <-errc
	}

	_ = do(func() error {
		s.Start(ctx, location)
		return nil
	})

	if machine.State().Step == journey.SelectSecurity {
		if err := do(func() error { return s.SelectSecurity(symbol) }); err != nil {
			return err
		}
		if err := do(func() error { return s.SelectAmount(float64(amount)) }); err != nil {
			return err
		}
		periods, err := s.Periods(ctx)
		if err != nil {
			return err
		}
		if !slices.Contains(periods, years) {
			if len(periods) == 0 {
				return fmt.Errorf("%s has no period with a positive return", symbol)
			}
			logger.Warn("period not offered, using the longest available", "requested", years, "offered", periods)
			years = periods[len(periods)-1]
		}
		if err := do(func() error { return s.SelectPeriod(years) }); err != nil {
			return err
		}
	}

	select {
	case <-term.done:
		fmt.Println()
		return nil
	case <-term.failed:
		return errors.New("could not calculate this journey")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(cfg.Journey.MinLoading + time.Minute):
		return errors.New("timed out")
	}
}
