package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alvmarrod/pathweb/internal/crawler"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PATHWEB_MAX_DEPTH
const EnvPrefix = "PATHWEB"

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL          string   `mapstructure:"seed_url"`
	MaxDepth         int      `mapstructure:"max_depth"`
	MaxURLs          int      `mapstructure:"max_urls"`
	MatchURL         string   `mapstructure:"match_url"`
	Ignore           []string `mapstructure:"ignore"`
	IgnoreExtensions []string `mapstructure:"ignore_extensions"`
	Concurrency      int      `mapstructure:"concurrency"`
	Verbose          int      `mapstructure:"verbose"`
	Extractor        string   `mapstructure:"extractor"`
	UserAgent        string   `mapstructure:"user_agent"`
	RequestTimeoutMs int      `mapstructure:"request_timeout_ms"`
	RequestDelayMs   int      `mapstructure:"request_delay_ms"`
	RespectRobots    bool     `mapstructure:"respect_robots"`
	MaxBodySize      int      `mapstructure:"max_body_size"`
	IdleBackoffMs    int      `mapstructure:"idle_backoff_ms"`
	NoColor          bool     `mapstructure:"no_color"`
	DBPath           string   `mapstructure:"db_path"`
	GraphPath        string   `mapstructure:"graph_path"`
	MetricsPath      string   `mapstructure:"metrics_path"`
	LogLevel         string   `mapstructure:"log_level"`
	LogFile          string   `mapstructure:"log_file"`
}

// flagKeys maps CLI flag names to configuration keys
var flagKeys = map[string]string{
	"url":            "seed_url",
	"depth":          "max_depth",
	"max-urls":       "max_urls",
	"match-url":      "match_url",
	"ignore":         "ignore",
	"ignore-ext":     "ignore_extensions",
	"concurrency":    "concurrency",
	"verbose":        "verbose",
	"extractor":      "extractor",
	"user-agent":     "user_agent",
	"timeout":        "request_timeout_ms",
	"delay":          "request_delay_ms",
	"respect-robots": "respect_robots",
	"max-body-size":  "max_body_size",
	"no-color":       "no_color",
	"db":             "db_path",
	"graph":          "graph_path",
	"metrics":        "metrics_path",
	"log-level":      "log_level",
	"log-file":       "log_file",
	"idle-backoff":   "idle_backoff_ms",
}

// LoadConfig layers defaults, the optional config file at path, PATHWEB_*
// environment variables and any flags explicitly set on the command line,
// then validates the result. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults registers a default for every key so that environment
// variables are picked up on unmarshal
func applyDefaults(v *viper.Viper) {
	v.SetDefault("seed_url", "")
	v.SetDefault("max_depth", 3)
	v.SetDefault("max_urls", 10000)
	v.SetDefault("match_url", "")
	v.SetDefault("ignore", []string{})
	v.SetDefault("ignore_extensions", crawler.DefaultIgnoredExtensions)
	v.SetDefault("concurrency", 4)
	v.SetDefault("verbose", 1)
	v.SetDefault("extractor", "literal")
	v.SetDefault("user_agent", "")
	v.SetDefault("request_timeout_ms", 10000)
	v.SetDefault("request_delay_ms", 0)
	v.SetDefault("respect_robots", false)
	v.SetDefault("max_body_size", 0)
	v.SetDefault("idle_backoff_ms", 50)
	v.SetDefault("no_color", false)
	v.SetDefault("db_path", "")
	v.SetDefault("graph_path", "")
	v.SetDefault("metrics_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.SeedURL == "" {
		return errors.New("seed_url is required")
	}
	if cfg.MaxDepth < 0 {
		return errors.New("max_depth must be >= 0")
	}
	if cfg.MaxURLs < 1 {
		return errors.New("max_urls must be >= 1")
	}
	if cfg.Concurrency < 1 {
		return errors.New("concurrency must be >= 1")
	}
	if cfg.Verbose < int(crawler.VerbosityNone) || cfg.Verbose > int(crawler.VerbosityAll) {
		return fmt.Errorf("verbose must be 0, 1 or 2, got %d", cfg.Verbose)
	}
	if _, err := crawler.NewExtractor(cfg.Extractor); err != nil {
		return err
	}
	if cfg.RequestTimeoutMs < 1 {
		return errors.New("request_timeout_ms must be >= 1")
	}
	if cfg.RequestDelayMs < 0 {
		return errors.New("request_delay_ms must be >= 0")
	}
	if cfg.MaxBodySize < 0 {
		return errors.New("max_body_size must be >= 0")
	}
	if cfg.IdleBackoffMs < 1 {
		return errors.New("idle_backoff_ms must be >= 1")
	}
	return nil
}

// CrawlerOptions returns the crawl limits and filters
func (c *Config) CrawlerOptions() crawler.Options {
	return crawler.Options{
		MaxDepth:         c.MaxDepth,
		MaxURLs:          c.MaxURLs,
		MatchSubstring:   c.MatchURL,
		IgnoreSubstrings: c.Ignore,
		IgnoreExtensions: c.IgnoreExtensions,
		Concurrency:      c.Concurrency,
		Verbosity:        crawler.Verbosity(c.Verbose),
		IdleBackoff:      time.Duration(c.IdleBackoffMs) * time.Millisecond,
	}
}

// FetcherConfig returns the HTTP client settings
func (c *Config) FetcherConfig() crawler.FetcherConfig {
	return crawler.FetcherConfig{
		UserAgent:      c.UserAgent,
		RequestTimeout: time.Duration(c.RequestTimeoutMs) * time.Millisecond,
		RequestDelay:   time.Duration(c.RequestDelayMs) * time.Millisecond,
		RespectRobots:  c.RespectRobots,
		MaxBodySize:    c.MaxBodySize,
	}
}
