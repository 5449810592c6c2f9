// Package prices refreshes the published price series from Yahoo Finance.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsimonsen7/tid-er-penge/internal/data"
	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher downloads daily closes from the public chart API.
type YahooFetcher struct {
	BaseURL string
	Client  data.HTTPClient
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewYahooFetcher creates a fetcher allowing at most rps requests per
// second. A nil client gets a 30s timeout.
func NewYahooFetcher(baseURL string, client data.HTTPClient, rps float64, logger *slog.Logger) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if rps <= 0 {
		rps = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YahooFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     logger.With("component", "prices", "source", "yahoo"),
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns daily closes for symbol between from and to, ascending,
// rounded to two decimals. Null closes (holidays) are skipped and a
// repeated calendar day keeps the later close.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("period1", fmt.Sprint(from.Unix()))
	q.Set("period2", fmt.Sprint(to.Unix()))
	q.Set("interval", "1d")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d", symbol, resp.StatusCode)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned", symbol)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	byDay := make(map[time.Time]float64, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		t := time.Unix(ts, 0).UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = math.Round(*closes[i]*100) / 100
	}
	if len(byDay) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned", symbol)
	}

	points := make([]model.PricePoint, 0, len(byDay))
	for day, c := range byDay {
		points = append(points, model.PricePoint{Date: day, Close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	f.log.Debug("fetched closes", "symbol", symbol, "points", len(points))
	return points, nil
}
