package model

// Security is one entry of the static catalog users pick from.
type Security struct {
	Symbol        string  `yaml:"symbol" json:"symbol"`
	Name          string  `yaml:"name" json:"name"`
	Slug          string  `yaml:"slug" json:"slug"`
	Dividend      bool    `yaml:"dividend" json:"dividend"`
	DividendYield float64 `yaml:"dividend_yield" json:"dividend_yield,omitempty"`
}

// PaysDividend reports whether a dividend callout should be shown.
func (s Security) PaysDividend() bool {
	return s.Dividend && s.DividendYield > 0
}
