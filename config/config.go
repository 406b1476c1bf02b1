// Package config provides configuration management for the playlist server.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrSourceRequired is returned when no playlist source is provided.
	ErrSourceRequired = errors.New("at least one playlist source is required")
	// ErrBaseURLRequired is returned when base URL is not provided.
	ErrBaseURLRequired = errors.New("base URL is required")
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrRefreshIntervalPositive is returned when refresh interval is not positive.
	ErrRefreshIntervalPositive = errors.New("refresh interval must be positive")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrRateLimitNegative is returned when the refresh rate limit is negative.
	ErrRateLimitNegative = errors.New("rate limit must not be negative")
)

// Config holds the application configuration.
type Config struct {
	Sources             []string
	BaseURL             string
	Port                int
	LogLevel            string
	RefreshInterval     time.Duration
	DataDir             string
	Namespace           string
	RedisURL            string
	ExportPath          string
	AllowPrivateStreams bool
	RateLimit           int
	ConfigFile          string
}

// fileConfig mirrors Config for the optional YAML configuration file.
// Durations are strings so "30m" style values work.
type fileConfig struct {
	Sources             []string `yaml:"sources"`
	BaseURL             string   `yaml:"base_url"`
	Port                int      `yaml:"port"`
	LogLevel            string   `yaml:"log_level"`
	RefreshInterval     string   `yaml:"refresh_interval"`
	DataDir             string   `yaml:"data_dir"`
	Namespace           string   `yaml:"namespace"`
	RedisURL            string   `yaml:"redis_url"`
	ExportPath          string   `yaml:"export_path"`
	AllowPrivateStreams bool     `yaml:"allow_private_streams"`
	RateLimit           int      `yaml:"rate_limit"`
}

// New creates a new configuration instance by parsing command-line flags.
func New() (*Config, error) {
	return FromArgs(os.Args[1:])
}

// FromArgs builds a configuration from the given command-line arguments.
// Values from the optional config file fill in anything not set on the
// command line, and REDIS_URL is honored when no redis flag is given.
func FromArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("iptv-deck", flag.ContinueOnError)
	fs.Func("m3u", "Playlist source URL or file path (repeatable)", func(v string) error {
		cfg.Sources = append(cfg.Sources, v)
		return nil
	})
	fs.StringVar(&cfg.BaseURL, "base", "", "Base URL for rewritten stream URLs (e.g., http://localhost:8080) (required)")
	fs.IntVar(&cfg.Port, "port", 8080, "Port to listen on")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", 30*time.Minute, "Interval between playlist refreshes")
	fs.StringVar(&cfg.DataDir, "data-dir", "data", "Directory for the bolt database and cached playlists")
	fs.StringVar(&cfg.Namespace, "namespace", "default", "Favorites namespace")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for favorites storage (default: bolt in data-dir)")
	fs.StringVar(&cfg.ExportPath, "export", "", "Path the merged playlist is exported to after each refresh")
	fs.BoolVar(&cfg.AllowPrivateStreams, "allow-private-streams", false, "Allow relaying streams that resolve to private addresses")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 10, "Maximum refresh requests per minute (0 disables the limit)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Path to a YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile, explicit); err != nil {
			return nil, err
		}
	}

	if !explicit["redis"] && cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFile loads the YAML file at path and fills in every field that was
// not set explicitly on the command line.
func (c *Config) applyFile(path string, explicit map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if !explicit["m3u"] && len(fc.Sources) > 0 {
		c.Sources = fc.Sources
	}
	if !explicit["base"] && fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if !explicit["port"] && fc.Port != 0 {
		c.Port = fc.Port
	}
	if !explicit["log-level"] && fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if !explicit["refresh-interval"] && fc.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval in config file: %w", err)
		}
		c.RefreshInterval = d
	}
	if !explicit["data-dir"] && fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if !explicit["namespace"] && fc.Namespace != "" {
		c.Namespace = fc.Namespace
	}
	if !explicit["redis"] && fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}
	if !explicit["export"] && fc.ExportPath != "" {
		c.ExportPath = fc.ExportPath
	}
	if !explicit["allow-private-streams"] && fc.AllowPrivateStreams {
		c.AllowPrivateStreams = true
	}
	if !explicit["rate-limit"] && fc.RateLimit != 0 {
		c.RateLimit = fc.RateLimit
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrSourceRequired
	}

	for _, src := range c.Sources {
		if !strings.Contains(src, "://") {
			// Local file path, resolved at fetch time.
			continue
		}
		u, err := url.Parse(src)
		if err != nil {
			return fmt.Errorf("invalid playlist source %q: %w", src, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid playlist source %q: unsupported scheme %q", src, u.Scheme)
		}
	}

	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: scheme and host are required", c.BaseURL)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.RefreshInterval <= 0 {
		return ErrRefreshIntervalPositive
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("%w: %d", ErrRateLimitNegative, c.RateLimit)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
