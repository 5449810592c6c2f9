package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
  env: production
prices:
  base_url: https://data.example/prices
journey:
  min_loading: 1500ms
update:
  schedule: "0 6 * * 1"
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", c.Server.Port)
	assert.True(t, c.IsProduction())
	assert.Equal(t, "https://data.example/prices", c.Prices.BaseURL)
	assert.Empty(t, c.Prices.DataDir, "data_dir default only applies without base_url")
	assert.Equal(t, 1500*time.Millisecond, c.Journey.MinLoading)
	assert.Equal(t, 25, c.Update.Years)
	assert.Equal(t, "0 6 * * 1", c.Update.Schedule)
	assert.Equal(t, "./data/securities.yaml", c.SecuritiesFile)
	assert.Equal(t, 30*time.Second, c.Prices.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "7777")
	t.Setenv("PRICE_DATA_DIR", "/srv/prices")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "7777", c.Server.Port)
	assert.Equal(t, "/srv/prices", c.Prices.DataDir)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  env: staging\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "prices:\n  base_url: http://x\n  data_dir: ./y\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "update:\n  years: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, "./data/prices", c.Prices.DataDir)
	assert.Equal(t, 3*time.Second, c.Journey.MinLoading)
}
