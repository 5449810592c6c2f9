package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used by the published price files.
const DateLayout = "2006-01-02"

// PriceSeries matches the JSON shape of the per-symbol data files.
//
// Example:
//
//	{
//	  "ticker": "NVDA",
//	  "name": "NVIDIA",
//	  "prices": [{"date": "2020-01-02", "close": 5.97}, ...],
//	  "updated": "2026-10-12T06:00:03"
//	}
type PriceSeries struct {
	Symbol  string       `json:"ticker"`
	Name    string       `json:"name"`
	Prices  []PricePoint `json:"prices"`
	Updated string       `json:"updated,omitempty"`
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

type pricePointJSON struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(pricePointJSON{Date: p.Date.Format(DateLayout), Close: p.Close})
}

func (p *PricePoint) UnmarshalJSON(raw []byte) error {
	var v pricePointJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	d, err := time.Parse(DateLayout, v.Date)
	if err != nil {
		return fmt.Errorf("price date %q: %w", v.Date, err)
	}
	p.Date = d
	p.Close = v.Close
	return nil
}

// Validate checks the ordering invariants: ascending dates, no duplicates,
// positive closes.
func (s *PriceSeries) Validate() error {
	if s == nil {
		return fmt.Errorf("series is nil")
	}
	for i, p := range s.Prices {
		if p.Close <= 0 {
			return fmt.Errorf("%s: non-positive close %v on %s", s.Symbol, p.Close, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s.Prices[i-1].Date) {
			return fmt.Errorf("%s: prices not strictly ascending at %s", s.Symbol, p.Date.Format(DateLayout))
		}
	}
	return nil
}

// Latest returns the most recent price point.
func (s *PriceSeries) Latest() (PricePoint, bool) {
	if s == nil || len(s.Prices) == 0 {
		return PricePoint{}, false
	}
	return s.Prices[len(s.Prices)-1], true
}
