package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// Catalog is the static list of securities users can pick from, plus the
// benchmark index results are compared against.
type Catalog struct {
	Benchmark  model.Security   `yaml:"benchmark"`
	Securities []model.Security `yaml:"securities"`

	bySymbol map[string]model.Security
	bySlug   map[string]string
}

// LoadCatalog loads the catalog from a YAML file.
func LoadCatalog(filePath string) (*Catalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read securities file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse securities file: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// NewCatalog builds a catalog from an in-memory list.
func NewCatalog(benchmark model.Security, securities []model.Security) (*Catalog, error) {
	c := &Catalog{Benchmark: benchmark, Securities: securities}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) index() error {
	c.bySymbol = make(map[string]model.Security, len(c.Securities)+1)
	c.bySlug = make(map[string]string, len(c.Securities))
	for _, s := range c.Securities {
		if s.Symbol == "" {
			return fmt.Errorf("security %q has no symbol", s.Name)
		}
		if _, dup := c.bySymbol[s.Symbol]; dup {
			return fmt.Errorf("duplicate security %s", s.Symbol)
		}
		c.bySymbol[s.Symbol] = s
		if s.Slug != "" {
			c.bySlug[s.Slug] = s.Symbol
		}
	}
	if c.Benchmark.Symbol == "" {
		return fmt.Errorf("benchmark.symbol is required")
	}
	if _, ok := c.bySymbol[c.Benchmark.Symbol]; !ok {
		c.bySymbol[c.Benchmark.Symbol] = c.Benchmark
	}
	return nil
}

// Lookup finds a security (or the benchmark) by symbol.
func (c *Catalog) Lookup(symbol string) (model.Security, bool) {
	s, ok := c.bySymbol[symbol]
	return s, ok
}

// LookupSlug finds a security by its URL slug.
func (c *Catalog) LookupSlug(slug string) (model.Security, bool) {
	symbol, ok := c.bySlug[slug]
	if !ok {
		return model.Security{}, false
	}
	return c.Lookup(symbol)
}

// Symbols returns every symbol whose data should be kept fresh, benchmark
// included, sorted.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.bySymbol))
	for sym := range c.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// GetDefaultCatalogPath returns the default path for the securities file.
func GetDefaultCatalogPath() string {
	if path := os.Getenv("SECURITIES_FILE"); path != "" {
		return path
	}
	return "./data/securities.yaml"
}
