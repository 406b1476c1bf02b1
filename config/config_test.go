package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromArgs(t *testing.T) {
	cfg, err := FromArgs([]string{
		"-m3u", "http://example.com/a.m3u",
		"-m3u", "/srv/local.m3u",
		"-base", "http://localhost:8080",
		"-port", "9000",
		"-log-level", "debug",
		"-refresh-interval", "15m",
		"-namespace", "living-room",
	})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(cfg.Sources))
	}
	if cfg.Sources[0] != "http://example.com/a.m3u" || cfg.Sources[1] != "/srv/local.m3u" {
		t.Errorf("Unexpected sources: %v", cfg.Sources)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.LogLevel)
	}
	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("Expected refresh interval 15m, got %v", cfg.RefreshInterval)
	}
	if cfg.Namespace != "living-room" {
		t.Errorf("Expected namespace 'living-room', got %q", cfg.Namespace)
	}
}

func TestFromArgsDefaults(t *testing.T) {
	cfg, err := FromArgs([]string{
		"-m3u", "http://example.com/a.m3u",
		"-base", "http://localhost:8080",
	})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.LogLevel)
	}
	if cfg.RefreshInterval != 30*time.Minute {
		t.Errorf("Expected default refresh interval 30m, got %v", cfg.RefreshInterval)
	}
	if cfg.DataDir != "data" {
		t.Errorf("Expected default data dir 'data', got %q", cfg.DataDir)
	}
	if cfg.Namespace != "default" {
		t.Errorf("Expected default namespace, got %q", cfg.Namespace)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("Expected default rate limit 10, got %d", cfg.RateLimit)
	}
	if cfg.AllowPrivateStreams {
		t.Error("Expected private streams to be disallowed by default")
	}
}

func TestFromArgsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `sources:
  - http://example.com/file.m3u
base_url: http://file.example:8080
port: 7000
log_level: warn
refresh_interval: 1h
namespace: file-ns
allow_private_streams: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := FromArgs([]string{"-config", path})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}

	if len(cfg.Sources) != 1 || cfg.Sources[0] != "http://example.com/file.m3u" {
		t.Errorf("Unexpected sources from file: %v", cfg.Sources)
	}
	if cfg.BaseURL != "http://file.example:8080" {
		t.Errorf("Unexpected base URL from file: %q", cfg.BaseURL)
	}
	if cfg.Port != 7000 {
		t.Errorf("Expected port 7000 from file, got %d", cfg.Port)
	}
	if cfg.RefreshInterval != time.Hour {
		t.Errorf("Expected refresh interval 1h from file, got %v", cfg.RefreshInterval)
	}
	if !cfg.AllowPrivateStreams {
		t.Error("Expected private streams allowed from file")
	}
}

func TestFromArgsFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `sources:
  - http://example.com/file.m3u
base_url: http://file.example:8080
port: 7000
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := FromArgs([]string{
		"-config", path,
		"-m3u", "http://flag.example/a.m3u",
		"-port", "9999",
	})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}

	if len(cfg.Sources) != 1 || cfg.Sources[0] != "http://flag.example/a.m3u" {
		t.Errorf("Expected flag sources to win, got %v", cfg.Sources)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected flag port to win, got %d", cfg.Port)
	}
	if cfg.BaseURL != "http://file.example:8080" {
		t.Errorf("Expected file base URL for unset flag, got %q", cfg.BaseURL)
	}
}

func TestFromArgsRedisEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://env.example:6379/0")

	cfg, err := FromArgs([]string{
		"-m3u", "http://example.com/a.m3u",
		"-base", "http://localhost:8080",
	})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}
	if cfg.RedisURL != "redis://env.example:6379/0" {
		t.Errorf("Expected REDIS_URL fallback, got %q", cfg.RedisURL)
	}

	cfg, err = FromArgs([]string{
		"-m3u", "http://example.com/a.m3u",
		"-base", "http://localhost:8080",
		"-redis", "redis://flag.example:6379",
	})
	if err != nil {
		t.Fatalf("FromArgs failed: %v", err)
	}
	if cfg.RedisURL != "redis://flag.example:6379" {
		t.Errorf("Expected redis flag to win over env, got %q", cfg.RedisURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Sources:         []string{"http://example.com/a.m3u"},
			BaseURL:         "http://localhost:8080",
			Port:            8080,
			LogLevel:        "info",
			RefreshInterval: 30 * time.Minute,
			DataDir:         "data",
			Namespace:       "default",
			RateLimit:       10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources = nil },
			wantErr: ErrSourceRequired,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: ErrBaseURLRequired,
		},
		{
			name:    "port too small",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "zero refresh interval",
			mutate:  func(c *Config) { c.RefreshInterval = 0 },
			wantErr: ErrRefreshIntervalPositive,
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.RateLimit = -1 },
			wantErr: ErrRateLimitNegative,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceScheme(t *testing.T) {
	cfg := &Config{
		Sources:         []string{"ftp://example.com/a.m3u"},
		BaseURL:         "http://localhost:8080",
		Port:            8080,
		LogLevel:        "info",
		RefreshInterval: 30 * time.Minute,
		RateLimit:       10,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for ftp source, got nil")
	}

	// Entries without a scheme are treated as file paths.
	cfg.Sources = []string{"/srv/playlists/local.m3u"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected file path source to validate, got %v", err)
	}
}
