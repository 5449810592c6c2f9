// Package sharelink maps a journey selection to and from the query string of
// a shareable URL, e.g. ?security=NVDA&amount=5000&period=5y.
package sharelink

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/matsimonsen7/tid-er-penge/internal/journey"
)

const (
	ParamSecurity = "security"
	ParamAmount   = "amount"
	ParamPeriod   = "period"
)

// Period tokens are fixed short codes so old links keep working if more
// periods are added later.
var tokens = map[int]string{
	2:  "2y",
	5:  "5y",
	10: "10y",
	20: "20y",
}

// Params is the decoded form of a shared link.
type Params struct {
	Symbol string `json:"symbol"`
	Amount int    `json:"amount"`
	Years  int    `json:"years"`
}

// Data converts the params into journey choices. Name is left empty; the
// caller resolves it from the catalog.
func (p Params) Data() journey.Data {
	return journey.Data{Symbol: p.Symbol, Amount: float64(p.Amount), Years: p.Years}
}

// Token returns the short code for a period.
func Token(years int) (string, bool) {
	t, ok := tokens[years]
	return t, ok
}

// Years maps a short code back to a period.
func Years(token string) (int, bool) {
	for y, t := range tokens {
		if t == token {
			return y, true
		}
	}
	return 0, false
}

// ParsePeriod accepts a token ("5y") or a bare year count ("5") and
// returns the period if it is one of the known ones.
func ParsePeriod(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if years, ok := Years(s); ok {
		return years, true
	}
	years, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if _, ok := tokens[years]; !ok {
		return 0, false
	}
	return years, true
}

// Encode sets the share parameters on a copy of base and returns the full
// URL. Scheme, host, path, fragment and unrelated parameters are kept.
// The amount is written as whole kroner.
func Encode(base *url.URL, data journey.Data) string {
	u := clone(base)
	q := u.Query()
	q.Set(ParamSecurity, data.Symbol)
	q.Set(ParamAmount, strconv.FormatInt(int64(data.Amount), 10))
	if t, ok := Token(data.Years); ok {
		q.Set(ParamPeriod, t)
	} else {
		q.Del(ParamPeriod)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Decode parses a raw query string (with or without the leading '?').
// It reports false when any parameter is missing, the amount is not a
// positive integer, or the period token is unknown.
func Decode(rawQuery string) (Params, bool) {
	q, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return Params{}, false
	}
	symbol := q.Get(ParamSecurity)
	amountRaw := q.Get(ParamAmount)
	token := q.Get(ParamPeriod)
	if symbol == "" || amountRaw == "" || token == "" {
		return Params{}, false
	}

	amount, err := strconv.Atoi(amountRaw)
	if err != nil || amount <= 0 {
		return Params{}, false
	}
	years, ok := Years(token)
	if !ok {
		return Params{}, false
	}
	return Params{Symbol: symbol, Amount: amount, Years: years}, true
}

// Clear removes the share parameters from a copy of base.
func Clear(base *url.URL) string {
	u := clone(base)
	q := u.Query()
	q.Del(ParamSecurity)
	q.Del(ParamAmount)
	q.Del(ParamPeriod)
	u.RawQuery = q.Encode()
	return u.String()
}

func clone(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
