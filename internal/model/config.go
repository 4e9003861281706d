package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConnectionConfig describes a calendar connection the scheduled runner
// reconciles.
type ConnectionConfig struct {
	// ID is the calendar connection identifier.
	ID string `mapstructure:"id" yaml:"id"`

	// UserID owns the connection.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	// Provider is one of "google", "outlook", "apple".
	Provider string `mapstructure:"provider" yaml:"provider"`

	// CalendarIDs restricts reconciliation to these calendars.
	// Empty means every staged calendar.
	CalendarIDs []string `mapstructure:"calendar_ids" yaml:"calendar_ids"`

	// Enabled controls whether the runner picks this connection up.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SyncConfig holds reconciliation settings.
type SyncConfig struct {
	// DefaultTimeZone is used for events that carry no zone of their own.
	DefaultTimeZone string `mapstructure:"default_time_zone" yaml:"default_time_zone"`

	// MaxDurationMinutes caps a single event's duration.
	MaxDurationMinutes int `mapstructure:"max_duration_minutes" yaml:"max_duration_minutes"`

	// EventTimeoutSec bounds the writes for one event.
	EventTimeoutSec int `mapstructure:"event_timeout_sec" yaml:"event_timeout_sec"`

	// Schedule is the cron expression used by `calsync watch`.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
}

// EventTimeout returns EventTimeoutSec as a duration.
func (c SyncConfig) EventTimeout() time.Duration {
	return time.Duration(c.EventTimeoutSec) * time.Second
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database    DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Sync        SyncConfig         `mapstructure:"sync" yaml:"sync"`
	Connections []ConnectionConfig `mapstructure:"connections" yaml:"connections"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/calsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "calsync", "config.yaml")
}

// defaultDatabasePath returns ~/.config/calsync/calsync.db.
func defaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "calsync.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: defaultDatabasePath(),
		},
		Sync: SyncConfig{
			DefaultTimeZone:    "UTC",
			MaxDurationMinutes: 24 * 60,
			EventTimeoutSec:    10,
			Schedule:           "*/15 * * * *",
		},
		Connections: []ConnectionConfig{},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CALSYNC")
	v.AutomaticEnv()

	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("sync.default_time_zone", defaults.Sync.DefaultTimeZone)
	v.SetDefault("sync.max_duration_minutes", defaults.Sync.MaxDurationMinutes)
	v.SetDefault("sync.event_timeout_sec", defaults.Sync.EventTimeoutSec)
	v.SetDefault("sync.schedule", defaults.Sync.Schedule)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.MaxDurationMinutes <= 0 {
		cfg.Sync.MaxDurationMinutes = defaults.Sync.MaxDurationMinutes
	}
	if cfg.Sync.EventTimeoutSec <= 0 {
		cfg.Sync.EventTimeoutSec = defaults.Sync.EventTimeoutSec
	}

	raw, _ := v.Get("connections").([]interface{})
	for i := range cfg.Connections {
		if _, err := ParseProvider(cfg.Connections[i].Provider); err != nil {
			return nil, fmt.Errorf("connection %q: %w", cfg.Connections[i].ID, err)
		}
		// Viper unmarshals missing bools as false; treat unset as true.
		if !cfg.Connections[i].Enabled && i < len(raw) && !hasKey(raw[i], "enabled") {
			cfg.Connections[i].Enabled = true
		}
	}

	return cfg, nil
}

// hasKey reports whether a raw decoded YAML mapping contains key.
func hasKey(entry interface{}, key string) bool {
	switch m := entry.(type) {
	case map[string]interface{}:
		_, ok := m[key]
		return ok
	case map[interface{}]interface{}:
		_, ok := m[key]
		return ok
	}
	return false
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("sync", cfg.Sync)
	v.Set("connections", cfg.Connections)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
