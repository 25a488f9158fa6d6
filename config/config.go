// Package config loads operator configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	translatex "github.com/translatex/translatex-go"
)

// Config is the operator-facing configuration. Durations are plain
// seconds (or days for the cookie) so the file stays obvious.
type Config struct {
	Site struct {
		HomeURL       string   `yaml:"home_url"`
		DefaultLang   string   `yaml:"default_lang"`
		IgnoredParams []string `yaml:"ignored_params"`
	} `yaml:"site"`

	API struct {
		Key                  string `yaml:"key"`
		TranslateURL         string `yaml:"translate_url"`
		DetectURL            string `yaml:"detect_url"`
		TranslateTimeoutSecs int    `yaml:"translate_timeout_secs"`
		DetectTimeoutSecs    int    `yaml:"detect_timeout_secs"`
		TextBatch            int    `yaml:"text_batch"`
		Concurrency          int    `yaml:"concurrency"`
	} `yaml:"api"`

	// Backend selects the translation backend: "hosted" (default) or
	// "openai".
	Backend string `yaml:"backend"`

	OpenAI struct {
		APIKey            string `yaml:"api_key"`
		Model             string `yaml:"model"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"openai"`

	Cookie struct {
		Name    string `yaml:"name"`
		TTLDays int    `yaml:"ttl_days"`
	} `yaml:"cookie"`

	Store struct {
		DSN string `yaml:"dsn"`
	} `yaml:"store"`

	Redis struct {
		URL       string `yaml:"url"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Server struct {
		Listen   string `yaml:"listen"`
		Upstream string `yaml:"upstream"`
	} `yaml:"server"`

	Maintenance struct {
		IntervalHours   int `yaml:"interval_hours"`
		UnusedAfterDays int `yaml:"unused_after_days"`
	} `yaml:"maintenance"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Site.DefaultLang = "en"
	cfg.API.TranslateTimeoutSecs = 45
	cfg.API.DetectTimeoutSecs = 25
	cfg.Backend = "hosted"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.Cookie.Name = "translatex_lang"
	cfg.Cookie.TTLDays = 30
	cfg.Store.DSN = "translatex.db"
	cfg.Server.Listen = ":8080"
	cfg.Maintenance.IntervalHours = 24
	return cfg
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 - operator-specified config path
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	lang := translatex.NormalizeLang(c.Site.DefaultLang)
	if !translatex.IsSupportedLang(lang) {
		return fmt.Errorf("unsupported default language %q", c.Site.DefaultLang)
	}
	c.Site.DefaultLang = lang

	switch c.Backend {
	case "hosted", "openai":
	default:
		return fmt.Errorf("unknown backend %q (want hosted or openai)", c.Backend)
	}
	return nil
}

// TranslateTimeout returns the translate call timeout.
func (c *Config) TranslateTimeout() time.Duration {
	return time.Duration(c.API.TranslateTimeoutSecs) * time.Second
}

// DetectTimeout returns the detect call timeout.
func (c *Config) DetectTimeout() time.Duration {
	return time.Duration(c.API.DetectTimeoutSecs) * time.Second
}

// CookieTTL returns the language cookie lifetime.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.Cookie.TTLDays) * 24 * time.Hour
}

// MaintenanceInterval returns the background sweep interval.
func (c *Config) MaintenanceInterval() time.Duration {
	return time.Duration(c.Maintenance.IntervalHours) * time.Hour
}

// UnusedAfter returns the age past which unvisited entries are purged,
// or 0 when the purge is disabled.
func (c *Config) UnusedAfter() time.Duration {
	return time.Duration(c.Maintenance.UnusedAfterDays) * 24 * time.Hour
}
