package data

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// Source loads the full price series for one symbol.
type Source interface {
	Load(ctx context.Context, symbol string) (*model.PriceSeries, error)
	Name() string
}

// LoadError represents a failure to fetch or parse a price series.
// StatusCode is 0 when the failure happened before an HTTP response.
type LoadError struct {
	Symbol     string
	StatusCode int
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("load %s: status %d: %v", e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Symbol, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// finish applies the checks every source shares once a payload is decoded.
func finish(symbol string, series *model.PriceSeries) (*model.PriceSeries, error) {
	if err := series.Validate(); err != nil {
		return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("malformed payload: %w", err)}
	}
	if series.Symbol == "" {
		series.Symbol = symbol
	}
	if series.Name == "" {
		series.Name = symbol
	}
	return series, nil
}

// NewSource picks the HTTP source when baseURL is set and the file source
// otherwise.
func NewSource(baseURL, dir string, timeout time.Duration, logger *slog.Logger) Source {
	if baseURL != "" {
		return NewHTTPSource(baseURL, &http.Client{Timeout: timeout}, logger)
	}
	return NewFileSource(dir)
}
