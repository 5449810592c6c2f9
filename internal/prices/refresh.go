package prices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// Defaults for the published files.
const (
	DefaultYears     = 25
	DefaultMaxPoints = 1100
	sampleEvery      = 5
)

var refreshed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journey_price_refresh_total",
	Help: "Price series refreshes by outcome",
}, []string{"outcome"})

// Fetcher downloads daily closes.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error)
}

// Thin keeps every fifth point, plus the last, once a series has more than
// maxPoints entries.
func Thin(points []model.PricePoint, maxPoints int) []model.PricePoint {
	if len(points) <= maxPoints {
		return points
	}
	out := make([]model.PricePoint, 0, len(points)/sampleEvery+1)
	for i, p := range points {
		if i%sampleEvery == 0 || i == len(points)-1 {
			out = append(out, p)
		}
	}
	return out
}

// Refresher rewrites {Dir}/{symbol}.json and the index for a catalog.
type Refresher struct {
	Fetcher   Fetcher
	Catalog   *data.Catalog
	Dir       string
	Years     int
	MaxPoints int
	Now       func() time.Time
	log       *slog.Logger
}

func NewRefresher(f Fetcher, catalog *data.Catalog, dir string, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		Fetcher:   f,
		Catalog:   catalog,
		Dir:       dir,
		Years:     DefaultYears,
		MaxPoints: DefaultMaxPoints,
		Now:       time.Now,
		log:       logger.With("component", "refresh"),
	}
}

// Run refreshes every catalog symbol, benchmark included. A symbol that
// fails is logged and left out of the index; Run fails only when nothing
// could be refreshed or the index cannot be written.
func (r *Refresher) Run(ctx context.Context) ([]data.IndexEntry, error) {
	now := r.Now()
	from := now.AddDate(-r.Years, 0, 0)
	updated := now.Format("2006-01-02T15:04:05")

	var index []data.IndexEntry
	for _, symbol := range r.Catalog.Symbols() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec, _ := r.Catalog.Lookup(symbol)
		points, err := r.Fetcher.Fetch(ctx, symbol, from, now)
		if err != nil {
			refreshed.WithLabelValues("failed").Inc()
			r.log.Warn("fetch failed", "symbol", symbol, "error", err)
			continue
		}

		series := &model.PriceSeries{
			Symbol:  symbol,
			Name:    sec.Name,
			Prices:  Thin(points, r.MaxPoints),
			Updated: updated,
		}
		if series.Name == "" {
			series.Name = symbol
		}
		if err := data.SaveSeries(r.Dir, series); err != nil {
			refreshed.WithLabelValues("failed").Inc()
			r.log.Error("save failed", "symbol", symbol, "error", err)
			continue
		}
		refreshed.WithLabelValues("ok").Inc()
		r.log.Info("series saved", "symbol", symbol, "points", len(series.Prices))
		index = append(index, data.IndexEntry{Symbol: symbol, Name: series.Name, DataPoints: len(series.Prices)})
	}

	if len(index) == 0 {
		return nil, fmt.Errorf("no series refreshed")
	}
	if err := data.SaveIndex(r.Dir, index); err != nil {
		return nil, err
	}
	return index, nil
}

// Schedule runs r on a standard five-field cron spec (e.g. "0 6 * * 1").
// The caller starts and stops the returned cron.
func Schedule(ctx context.Context, spec string, r *Refresher) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			r.log.Error("scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("register refresh %q: %w", spec, err)
	}
	return c, nil
}
