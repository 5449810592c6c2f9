package sharelink

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/journey"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	base := mustParse(t, "https://example.dk/journey?utm_source=mail#top")
	symbols := []string{"NVDA", "CARL-B.CO", "^GSPC", "NOVO B"}
	amounts := []int{1, 500, 5000, 123456}

	for _, sym := range symbols {
		for _, amount := range amounts {
			for _, years := range backtest.Periods {
				in := journey.Data{Symbol: sym, Amount: float64(amount), Years: years}
				link := Encode(base, in)

				u := mustParse(t, link)
				got, ok := Decode(u.RawQuery)
				require.True(t, ok, link)
				assert.Equal(t, Params{Symbol: sym, Amount: amount, Years: years}, got)
				assert.Equal(t, in, got.Data())
			}
		}
	}
}

func TestEncode_PreservesLocation(t *testing.T) {
	base := mustParse(t, "https://example.dk/journey?utm_source=mail&amount=1#top")
	link := Encode(base, journey.Data{Symbol: "NVDA", Amount: 5000, Years: 2})

	u := mustParse(t, link)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "example.dk", u.Host)
	assert.Equal(t, "/journey", u.Path)
	assert.Equal(t, "top", u.Fragment)
	assert.Equal(t, "mail", u.Query().Get("utm_source"))
	assert.Equal(t, "5000", u.Query().Get(ParamAmount))
	assert.Equal(t, "2y", u.Query().Get(ParamPeriod))

	// base is untouched
	assert.Equal(t, "1", base.Query().Get(ParamAmount))
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":           "",
		"missing period":  "security=NVDA&amount=5000",
		"missing amount":  "security=NVDA&period=5y",
		"missing symbol":  "amount=5000&period=5y",
		"non numeric":     "security=NVDA&amount=lots&period=5y",
		"fractional":      "security=NVDA&amount=12.5&period=5y",
		"zero amount":     "security=NVDA&amount=0&period=5y",
		"negative amount": "security=NVDA&amount=-5&period=5y",
		"raw years":       "security=NVDA&amount=5000&period=5",
		"unknown token":   "security=NVDA&amount=5000&period=3y",
		"bad escape":      "security=%zz&amount=5000&period=5y",
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := Decode(q)
			assert.False(t, ok)
		})
	}
}

func TestDecode_LeadingQuestionMark(t *testing.T) {
	p, ok := Decode("?security=AAPL&amount=2500&period=20y")
	require.True(t, ok)
	assert.Equal(t, Params{Symbol: "AAPL", Amount: 2500, Years: 20}, p)
}

func TestClear(t *testing.T) {
	base := mustParse(t, "https://example.dk/?security=NVDA&amount=5000&period=5y&ref=x")
	u := mustParse(t, Clear(base))
	assert.Equal(t, "ref=x", u.RawQuery)
}

func TestTokens(t *testing.T) {
	for _, y := range backtest.Periods {
		tok, ok := Token(y)
		require.True(t, ok)
		back, ok := Years(tok)
		require.True(t, ok)
		assert.Equal(t, y, back)
	}
	_, ok := Token(7)
	assert.False(t, ok)
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]int{"2y": 2, "10y": 10, "20": 20, " 5 ": 5} {
		got, ok := ParsePeriod(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "7", "7y", "5Y", "five"} {
		_, ok := ParsePeriod(in)
		assert.False(t, ok, in)
	}
}
