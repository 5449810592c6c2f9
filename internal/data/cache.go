package data

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

var (
	seriesLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_price_series_lookups_total",
		Help: "Price series cache lookups by result (hit, miss, shared)",
	}, []string{"result"})

	seriesLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_price_series_loads_total",
		Help: "Underlying price series loads by outcome",
	}, []string{"outcome"})
)

// SeriesCache memoizes one immutable price series per symbol for the life of
// the process.
//
// Concurrent requests for the same uncached symbol share a single in-flight
// load. Failed loads are not cached; the next request tries again.
type SeriesCache struct {
	source Source
	log    *slog.Logger

	mu     sync.RWMutex
	store  map[string]*model.PriceSeries
	flight singleflight.Group
}

// NewSeriesCache creates a cache in front of source.
func NewSeriesCache(source Source, logger *slog.Logger) *SeriesCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeriesCache{
		source: source,
		log:    logger.With("component", "prices", "source", source.Name()),
		store:  make(map[string]*model.PriceSeries),
	}
}

// Get returns the series for symbol, loading it on first use.
// The returned series is shared and must not be modified.
func (c *SeriesCache) Get(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if s, ok := c.cached(symbol); ok {
		seriesLookups.WithLabelValues("hit").Inc()
		return s, nil
	}

	// The load runs detached from any single caller so that one caller
	// giving up does not fail the others waiting on the same flight.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(symbol, func() (interface{}, error) {
		if s, ok := c.cached(symbol); ok {
			return s, nil
		}
		s, err := c.source.Load(loadCtx, symbol)
		if err != nil {
			seriesLoads.WithLabelValues("error").Inc()
			c.log.Warn("series load failed", "symbol", symbol, "error", err)
			return nil, err
		}
		seriesLoads.WithLabelValues("ok").Inc()

		c.mu.Lock()
		c.store[symbol] = s
		c.mu.Unlock()
		c.log.Info("series cached", "symbol", symbol, "points", len(s.Prices))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, &LoadError{Symbol: symbol, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			seriesLookups.WithLabelValues("shared").Inc()
		} else {
			seriesLookups.WithLabelValues("miss").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.PriceSeries), nil
	}
}

// Len reports how many series are cached.
func (c *SeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *SeriesCache) cached(symbol string) (*model.PriceSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.store[symbol]
	return s, ok
}
