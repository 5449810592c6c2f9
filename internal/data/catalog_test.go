package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
benchmark:
  symbol: "^GSPC"
  name: "S&P 500"
securities:
  - symbol: NVDA
    name: NVIDIA
    slug: nvidia
  - symbol: CARL-B.CO
    name: Carlsberg
    slug: carlsberg
    dividend: true
    dividend_yield: 0.022
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "securities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	s, ok := c.LookupSlug("carlsberg")
	require.True(t, ok)
	assert.Equal(t, "CARL-B.CO", s.Symbol)
	assert.True(t, s.PaysDividend())

	b, ok := c.Lookup("^GSPC")
	require.True(t, ok)
	assert.Equal(t, "S&P 500", b.Name)

	assert.Equal(t, []string{"CARL-B.CO", "NVDA", "^GSPC"}, c.Symbols())
	_, ok = c.LookupSlug("apple")
	assert.False(t, ok)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	dir := t.TempDir()

	noBench := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(noBench, []byte("securities:\n  - symbol: X\n"), 0644))
	_, err := LoadCatalog(noBench)
	assert.Error(t, err)

	dup := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("benchmark: {symbol: B}\nsecurities:\n  - symbol: X\n  - symbol: X\n"), 0644))
	_, err = LoadCatalog(dup)
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	assert.Equal(t, "http", NewSource("https://data.example", "", time.Second, nil).Name())
	assert.Equal(t, "file", NewSource("", t.TempDir(), time.Second, nil).Name())
}

func TestShippedCatalog(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "data", "securities.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "^GSPC", c.Benchmark.Symbol)

	carl, ok := c.LookupSlug("carlsberg")
	require.True(t, ok)
	assert.True(t, carl.PaysDividend())
	assert.InDelta(t, 0.022, carl.DividendYield, 1e-12)

	nvda, ok := c.Lookup("NVDA")
	require.True(t, ok)
	assert.False(t, nvda.PaysDividend())
}
