package data

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// countingSource blocks every load until release is closed.
type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	fail    atomic.Bool
}

func newCountingSource() *countingSource {
	return &countingSource{release: make(chan struct{})}
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Load(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	s.calls.Add(1)
	<-s.release
	if s.fail.Load() {
		return nil, &LoadError{Symbol: symbol, StatusCode: 500, Err: errors.New("boom")}
	}
	return &model.PriceSeries{
		Symbol: symbol,
		Prices: []model.PricePoint{{Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Close: 10}},
	}, nil
}

func TestSeriesCache_ConcurrentRequestsShareOneLoad(t *testing.T) {
	src := newCountingSource()
	cache := NewSeriesCache(src, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.PriceSeries, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background(), "NVDA")
		}()
	}

	// let every caller join the flight before the load completes
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}

	// memoized: no further loads
	again, err := cache.Get(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestSeriesCache_FailuresAreNotCached(t *testing.T) {
	src := newCountingSource()
	close(src.release)
	src.fail.Store(true)
	cache := NewSeriesCache(src, nil)

	_, err := cache.Get(context.Background(), "AAPL")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 500, loadErr.StatusCode)
	assert.Equal(t, 0, cache.Len())

	src.fail.Store(false)
	s, err := cache.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSeriesCache_CallerCancelDoesNotFailOthers(t *testing.T) {
	src := newCountingSource()
	cache := NewSeriesCache(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "MSFT")
		done <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	patient := make(chan error, 1)
	go func() {
		_, err := cache.Get(context.Background(), "MSFT")
		patient <- err
	}()

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	close(src.release)
	assert.NoError(t, <-patient)
	assert.Equal(t, int32(1), src.calls.Load())
}
