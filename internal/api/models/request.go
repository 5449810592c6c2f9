package models

// BacktestRequest is the query string of GET /api/v1/backtest. It uses the
// same parameter names as a share link so a link's query can be replayed.
type BacktestRequest struct {
	Security string  `form:"security" binding:"required"`
	Amount   int    `form:"amount" binding:"required,gt=0"`
	Period   string  `form:"period" binding:"required"` // "5y" or a bare number of years
}

// PeriodsRequest is the query string of GET /api/v1/securities/:symbol/periods.
type PeriodsRequest struct {
	Amount int `form:"amount,omitempty"` // default: 5000
}

// OverviewRequest is the query string of GET /api/v1/overview.
type OverviewRequest struct {
	Period string `form:"period,omitempty"` // default: 10y
}

// ShareRequest asks for a share link for a completed journey.
type ShareRequest struct {
	Security string  `json:"security" binding:"required"`
	Amount   int    `json:"amount" binding:"required,gt=0"`
	Years    int     `json:"years" binding:"required"`
}

// TrackRequest is a client-side analytics event forwarded by the server.
type TrackRequest struct {
	Event      string         `json:"event" binding:"required"`
	VisitorID  string         `json:"visitor_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Referrer   *string        `json:"referrer,omitempty"`
	Pathname   string         `json:"pathname,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}
