package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsimonsen7/tid-er-penge/internal/analysis"
	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/chart"
	"github.com/matsimonsen7/tid-er-penge/internal/config"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
	"github.com/matsimonsen7/tid-er-penge/internal/logging"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
	"github.com/matsimonsen7/tid-er-penge/internal/sharelink"
)

var (
	configPath string
	amount     int
	period     string
	outPath    string
	chartPath  string
	baseURL    string
)

// env is what every command needs once config is loaded.
type env struct {
	cfg     *config.Config
	catalog *data.Catalog
	engine  *backtest.Engine
	logger  *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// keep stdout for results
	logger := logging.New(cfg.Log.Level, "text", os.Stderr)
	catalog, err := data.LoadCatalog(cfg.SecuritiesFile)
	if err != nil {
		return nil, err
	}
	source := data.NewSource(cfg.Prices.BaseURL, cfg.Prices.DataDir, cfg.Prices.Timeout, logger)
	return &env{
		cfg:     cfg,
		catalog: catalog,
		engine:  backtest.New(data.NewSeriesCache(source, logger)),
		logger:  logger,
	}, nil
}

func (e *env) security(symbol string) (model.Security, error) {
	if sec, ok := e.catalog.Lookup(symbol); ok {
		return sec, nil
	}
	if sec, ok := e.catalog.LookupSlug(symbol); ok {
		return sec, nil
	}
	return model.Security{}, fmt.Errorf("unknown security %q (known: %s)", symbol, strings.Join(e.catalog.Symbols(), ", "))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tid-er-penge",
		Short:         "Backtest buy-and-hold investments from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to YAML config (optional)")

	backtestCmd := &cobra.Command{
		Use:   "backtest [symbol]",
		Short: "What would an investment made years ago be worth today",
		Args:  cobra.ExactArgs(1),
		RunE:  runBacktest,
	}
	backtestCmd.Flags().IntVar(&amount, "amount", journey.DefaultAmount, "Amount invested, in kroner")
	backtestCmd.Flags().StringVar(&period, "period", "5y", "Look-back period: 2y, 5y, 10y or 20y")
	backtestCmd.Flags().StringVar(&outPath, "out", "", "Write the value history as CSV")
	backtestCmd.Flags().StringVar(&chartPath, "chart", "", "Write a growth chart PNG")

	periodsCmd := &cobra.Command{
		Use:   "periods [symbol]",
		Short: "List the periods with enough history and a positive return",
		Args:  cobra.ExactArgs(1),
		RunE:  runPeriods,
	}
	periodsCmd.Flags().IntVar(&amount, "amount", journey.DefaultAmount, "Amount invested, in kroner")

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Rank every security by return",
		Args:  cobra.NoArgs,
		RunE:  runOverview,
	}
	overviewCmd.Flags().StringVar(&period, "period", "10y", "Look-back period: 5y, 10y or 20y")

	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "Encode or decode share links",
	}
	encodeCmd := &cobra.Command{
		Use:   "encode [symbol]",
		Short: "Build a share link",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareEncode,
	}
	encodeCmd.Flags().IntVar(&amount, "amount", journey.DefaultAmount, "Amount invested, in kroner")
	encodeCmd.Flags().StringVar(&period, "period", "5y", "Look-back period: 2y, 5y, 10y or 20y")
	encodeCmd.Flags().StringVar(&baseURL, "base", "https://tiderpenge.dk/", "Page the link points at")
	decodeCmd := &cobra.Command{
		Use:   "decode [link or query]",
		Short: "Show what a share link selects",
		Args:  cobra.ExactArgs(1),
		RunE:  runShareDecode,
	}
	shareCmd.AddCommand(encodeCmd, decodeCmd)

	root.AddCommand(backtestCmd, periodsCmd, overviewCmd, shareCmd)
	return root
}

func parsePeriod(s string) (int, error) {
	years, ok := sharelink.ParsePeriod(s)
	if !ok {
		return 0, fmt.Errorf("unknown period %q", s)
	}
	return years, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	years, err := parsePeriod(period)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	sec, err := e.security(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := e.engine.Calculate(ctx, sec.Symbol, float64(amount), years)
	if err != nil {
		return err
	}
	var bench *model.BacktestResult
	if e.catalog.Benchmark.Symbol != sec.Symbol {
		if bench, err = e.engine.Calculate(ctx, e.catalog.Benchmark.Symbol, float64(amount), years); err != nil {
			e.logger.Warn("benchmark unavailable", "error", err)
			bench = nil
		}
	}

	printResult(cmd.OutOrStdout(), sec, years, res, bench, e.catalog.Benchmark)

	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteHistoryCSV(outPath, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(res.History), outPath)
	}
	if chartPath != "" {
		png, err := chart.Growth(res, bench, chart.Options{Name: sec.Name, BenchmarkName: e.catalog.Benchmark.Name})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(chartPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(chartPath, png, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote chart to %s\n", chartPath)
	}
	return nil
}

func printResult(w io.Writer, sec model.Security, years int, res, bench *model.BacktestResult, benchSec model.Security) {
	fmt.Fprintf(w, "%s (%s), %d years\n", sec.Name, sec.Symbol, years)
	fmt.Fprintf(w, "  bought   %s at %.2f\n", res.StartDate.Format(model.DateLayout), res.StartPrice)
	fmt.Fprintf(w, "  latest   %s at %.2f\n", res.EndDate.Format(model.DateLayout), res.EndPrice)
	fmt.Fprintf(w, "  %s -> %s  %s\n", model.FormatKroner(res.Amount), model.FormatKroner(res.FinalValue), res.Badge())
	if sec.PaysDividend() {
		v := backtest.DividendReinvested(res.Amount, res.FinalValue, sec.DividendYield, years)
		fmt.Fprintf(w, "  with dividends reinvested: ~%s\n", model.FormatKroner(v))
	}
	if bench != nil {
		fmt.Fprintf(w, "  %s: %s  %s\n", benchSec.Name, model.FormatKroner(bench.FinalValue), bench.Badge())
	}
	s := analysis.Summarize(res)
	fmt.Fprintf(w, "  CAGR %.1f%%  max drawdown %.1f%%\n", s.CAGR*100, s.MaxDrawdown*100)
}

func runPeriods(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	sec, err := e.security(args[0])
	if err != nil {
		return err
	}
	periods, err := e.engine.AvailablePeriods(cmd.Context(), sec.Symbol, float64(amount))
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no period with a positive return\n", sec.Symbol)
		return nil
	}
	tokens := make([]string, len(periods))
	for i, y := range periods {
		tokens[i], _ = sharelink.Token(y)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sec.Symbol, strings.Join(tokens, " "))
	return nil
}

func runOverview(cmd *cobra.Command, _ []string) error {
	years, err := parsePeriod(period)
	if err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ranked, err := analysis.RankByReturn(cmd.Context(), e.engine, e.catalog.Securities, analysis.OverviewAmount, years)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-4s %-12s %-18s %-10s %-14s\n", "rank", "symbol", "name", "return", "value")
	for i, r := range ranked {
		if r.ReturnPercent == nil {
			fmt.Fprintf(w, "%-4s %-12s %-18s %-10s %-14s\n", "-", r.Security.Symbol, r.Security.Name, "n/a", "n/a")
			continue
		}
		fmt.Fprintf(w, "%-4d %-12s %-18s %-10s %-14s\n",
			i+1,
			r.Security.Symbol,
			r.Security.Name,
			model.FormatPercent(*r.ReturnPercent),
			model.FormatKroner(*r.FinalValue),
		)
	}
	return nil
}

func runShareEncode(cmd *cobra.Command, args []string) error {
	years, err := parsePeriod(period)
	if err != nil {
		return err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("--base: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), sharelink.Encode(base, journey.Data{Symbol: args[0], Amount: float64(amount), Years: years}))
	return nil
}

func runShareDecode(cmd *cobra.Command, args []string) error {
	raw := args[0]
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		raw = u.RawQuery
	}
	p, ok := sharelink.Decode(raw)
	if !ok {
		return fmt.Errorf("not a complete share link: %q", args[0])
	}
	token, _ := sharelink.Token(p.Years)
	fmt.Fprintf(cmd.OutOrStdout(), "security=%s amount=%d period=%s\n", p.Symbol, p.Amount, token)
	return nil
}

