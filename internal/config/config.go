package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the service.
type Config struct {
	TelegramToken     string        `yaml:"telegram_token"`
	DatabaseURL       string        `yaml:"database_url"`
	ReportInterval    time.Duration `yaml:"report_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	CommitmentWindow  time.Duration `yaml:"commitment_window"`
	LogLevel          string        `yaml:"log_level"`
	Language          string        `yaml:"language"`
	Timezone          string        `yaml:"timezone"`
	// DigestTime is an optional HH:MM wall-clock time for a daily summary.
	DigestTime string `yaml:"digest_time"`
}

// Load reads the optional YAML file named by SEEDING_CONFIG, then applies
// environment variables on top, then fills defaults.
func Load() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("SEEDING_CONFIG")); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Language, "LANGUAGE")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.DigestTime, "DIGEST_TIME")
	if d := parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))); d > 0 {
		cfg.ReportInterval = d
	}
	if err := setDuration(&cfg.ReconcileInterval, "RECONCILE_INTERVAL"); err != nil {
		return cfg, err
	}
	if err := setDuration(&cfg.CommitmentWindow, "COMMITMENT_WINDOW"); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "seeding.db"
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = 5 * time.Hour
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = time.Minute
	}
	if cfg.CommitmentWindow <= 0 {
		cfg.CommitmentWindow = 15 * time.Minute
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
}

func loadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	*dst = d
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
