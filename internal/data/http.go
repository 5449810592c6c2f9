package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// HTTPClient lets tests swap the transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches {BaseURL}/{symbol}.json.
type HTTPSource struct {
	BaseURL string
	Client  HTTPClient
	log     *slog.Logger
}

// NewHTTPSource creates a new HTTP price source.
// If client is nil a client with a 30s timeout is used.
func NewHTTPSource(baseURL string, client HTTPClient, logger *slog.Logger) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		log:     logger.With("component", "prices", "source", "http"),
	}
}

func (s *HTTPSource) Name() string { return "http" }

// Load fetches and decodes one series. Any non-200 response or undecodable
// body is reported as a *LoadError; nothing is retried here.
func (s *HTTPSource) Load(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if symbol == "" {
		return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("symbol is required")}
	}

	u := fmt.Sprintf("%s/%s.json", s.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &LoadError{Symbol: symbol, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		s.log.Warn("request failed", "symbol", symbol, "error", err, "duration", duration)
		return nil, &LoadError{Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	s.log.Debug("response", "symbol", symbol, "status", resp.StatusCode, "duration", duration)

	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{
			Symbol:     symbol,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var series model.PriceSeries
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		s.log.Warn("decode failed", "symbol", symbol, "error", err)
		return nil, &LoadError{Symbol: symbol, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	s.log.Info("loaded series", "symbol", symbol, "points", len(series.Prices))
	return finish(symbol, &series)
}
