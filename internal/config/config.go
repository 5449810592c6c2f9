package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML). Environment variables
// override individual fields after the file is read.
type Config struct {
	Server         ServerConfig    `yaml:"server"`
	Prices         PricesConfig    `yaml:"prices"`
	SecuritiesFile string          `yaml:"securities_file"`
	Analytics      AnalyticsConfig `yaml:"analytics"`
	Journey        JourneyConfig   `yaml:"journey"`
	Update         UpdateConfig    `yaml:"update"`
	Log            LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"`
	StaticDir      string   `yaml:"static_dir"`
	PublicURL      string   `yaml:"public_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// PricesConfig selects where price series come from: an HTTP base URL
// serving {symbol}.json, or a local directory with the same files.
type PricesConfig struct {
	BaseURL string        `yaml:"base_url"`
	DataDir string        `yaml:"data_dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type AnalyticsConfig struct {
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
	Project    string `yaml:"project"`
}

type JourneyConfig struct {
	MinLoading    time.Duration `yaml:"min_loading"`
	ReducedMotion bool          `yaml:"reduced_motion"`
	Benchmark     string        `yaml:"benchmark"`
}

// UpdateConfig drives the price refresh job.
type UpdateConfig struct {
	SourceURL         string  `yaml:"source_url"`
	Schedule          string  `yaml:"schedule"`
	Years             int     `yaml:"years"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxPoints         int     `yaml:"max_points"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (a missing file is fine), applies environment overrides
// and defaults, and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	var c Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(raw) > 0 {
			if err := yaml.Unmarshal(raw, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Port, "API_PORT")
	set(&c.Server.Env, "API_ENV")
	set(&c.Server.StaticDir, "STATIC_DIR")
	set(&c.Prices.BaseURL, "PRICE_BASE_URL")
	set(&c.Prices.DataDir, "PRICE_DATA_DIR")
	set(&c.SecuritiesFile, "SECURITIES_FILE")
	set(&c.Analytics.URL, "ANALYTICS_URL")
	set(&c.Analytics.SQLitePath, "ANALYTICS_SQLITE_PATH")
	set(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Prices.BaseURL == "" && c.Prices.DataDir == "" {
		c.Prices.DataDir = "./data/prices"
	}
	if c.Prices.Timeout == 0 {
		c.Prices.Timeout = 30 * time.Second
	}
	if c.SecuritiesFile == "" {
		c.SecuritiesFile = "./data/securities.yaml"
	}
	if c.Analytics.Project == "" {
		c.Analytics.Project = "tid-er-penge"
	}
	if c.Journey.MinLoading == 0 {
		c.Journey.MinLoading = 3 * time.Second
	}
	if c.Update.SourceURL == "" {
		c.Update.SourceURL = "https://query1.finance.yahoo.com"
	}
	if c.Update.Years == 0 {
		c.Update.Years = 25
	}
	if c.Update.RequestsPerSecond == 0 {
		c.Update.RequestsPerSecond = 2
	}
	if c.Update.MaxPoints == 0 {
		c.Update.MaxPoints = 1100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Server.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("server.env %q must be development, production or test", c.Server.Env)
	}
	if c.Prices.BaseURL != "" && c.Prices.DataDir != "" {
		return errors.New("prices.base_url and prices.data_dir are mutually exclusive")
	}
	if c.Prices.Timeout < 0 {
		return errors.New("prices.timeout must not be negative")
	}
	if c.Journey.MinLoading < 0 {
		return errors.New("journey.min_loading must not be negative")
	}
	if c.Update.Years <= 0 {
		return errors.New("update.years must be positive")
	}
	if c.Update.RequestsPerSecond <= 0 {
		return errors.New("update.requests_per_second must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool { return c.Server.Env == "production" }
