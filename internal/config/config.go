// Package config loads application configuration from an optional TOML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration. Environment variables always
// win over values from the config file.
type Config struct {
	GitHubToken   string `toml:"github_token"`
	WebhookSecret string `toml:"webhook_secret"`
	ListenAddr    string `toml:"listen_addr"`
	DBPath        string `toml:"db_path"`
	WorkDir       string `toml:"work_dir"`
	BaseURL       string `toml:"base_url"`
	StatusContext string `toml:"status_context"`
	Workers       int    `toml:"workers"`

	RunTimeout time.Duration `toml:"-"`

	// RunTimeoutRaw is the file form of RunTimeout ("10m", "90s").
	RunTimeoutRaw string `toml:"run_timeout"`
}

// HasGitHubCredentials returns true when a token is configured. Without one
// the service still starts and records runs, but every run fails its
// checkout step.
func (c *Config) HasGitHubCredentials() bool {
	return c.GitHubToken != ""
}

// Load reads configuration. If FORMATGATE_CONFIG_FILE is set, that TOML file
// supplies base values; FORMATGATE_* environment variables override it.
// Defaults: listen addr 127.0.0.1:8080, db path formatgate.db, status
// context formatgate/check, 2 workers, 10m run timeout.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    "127.0.0.1:8080",
		DBPath:        "formatgate.db",
		StatusContext: "formatgate/check",
		Workers:       2,
		RunTimeout:    10 * time.Minute,
	}

	if path := os.Getenv("FORMATGATE_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.GitHubToken = envOr("FORMATGATE_GITHUB_TOKEN", cfg.GitHubToken)
	cfg.WebhookSecret = envOr("FORMATGATE_WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.ListenAddr = envOr("FORMATGATE_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = envOr("FORMATGATE_DB_PATH", cfg.DBPath)
	cfg.WorkDir = envOr("FORMATGATE_WORK_DIR", cfg.WorkDir)
	cfg.BaseURL = envOr("FORMATGATE_BASE_URL", cfg.BaseURL)
	cfg.StatusContext = envOr("FORMATGATE_STATUS_CONTEXT", cfg.StatusContext)

	if v, ok := os.LookupEnv("FORMATGATE_WORKERS"); ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
			return nil, fmt.Errorf("FORMATGATE_WORKERS has invalid value %q", v)
		}
		cfg.Workers = n
	}

	if v, ok := os.LookupEnv("FORMATGATE_RUN_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FORMATGATE_RUN_TIMEOUT has invalid duration %q: %w", v, err)
		}
		cfg.RunTimeout = parsed
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist: %w", path, err)
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if cfg.RunTimeoutRaw != "" {
		parsed, err := time.ParseDuration(cfg.RunTimeoutRaw)
		if err != nil {
			return fmt.Errorf("config file run_timeout has invalid duration %q: %w", cfg.RunTimeoutRaw, err)
		}
		cfg.RunTimeout = parsed
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("config file workers must be positive, got %d", cfg.Workers)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
