// Package config loads settings from flags, POWERSPLIT_* environment
// variables, an optional .env file and an optional powersplit.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// POWERSPLIT_REMOTE_DRIVER for remote.driver.
const EnvPrefix = "POWERSPLIT"

// Config holds application configuration.
type Config struct {
	DBPath   string `mapstructure:"db_path"`
	StateKey string `mapstructure:"state_key"`
	Listen   string `mapstructure:"listen"`

	Remote RemoteConfig `mapstructure:"remote"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Report ReportConfig `mapstructure:"report"`
	Log    LogConfig    `mapstructure:"log"`
}

// RemoteConfig selects and addresses the remote store.
type RemoteConfig struct {
	Driver        string `mapstructure:"driver"`
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	Table         string `mapstructure:"table"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// SyncConfig controls writes to the remote store.
type SyncConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ReportConfig controls the text report.
type ReportConfig struct {
	Currency string `mapstructure:"currency"`
	Unit     string `mapstructure:"unit"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"db_path":               "./data/powersplit.db",
	"state_key":             "power-split",
	"listen":                ":8080",
	"remote.driver":         "",
	"remote.url":            "",
	"remote.api_key":        "",
	"remote.table":          "apartments",
	"remote.dsn":            "",
	"remote.redis_addr":     "",
	"remote.redis_password": "",
	"remote.redis_db":       0,
	"remote.key_prefix":     "powersplit:",
	"sync.debounce":         "800ms",
	"report.currency":       "₽",
	"report.unit":           "kWh",
	"log.level":             "info",
	"log.format":            "text",
}

// New returns a viper instance with defaults and environment binding set up.
// Flags may be bound to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env, then the config file (file may be empty to search for
// powersplit.yaml in the working directory and ~/.config/powersplit), and
// decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	_ = godotenv.Load()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("powersplit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/powersplit")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Remote.Driver = strings.ToLower(strings.TrimSpace(cfg.Remote.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StateKey) == "" {
		return errors.New("state_key cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db_path cannot be empty")
	}
	if c.Sync.Debounce < 0 {
		return errors.New("sync.debounce cannot be negative")
	}
	switch c.Remote.Driver {
	case "", "none", "memory":
	case "postgrest":
		if c.Remote.URL == "" || c.Remote.APIKey == "" {
			return errors.New("remote.url and remote.api_key are required for postgrest")
		}
	case "postgres":
		if c.Remote.DSN == "" {
			return errors.New("remote.dsn is required for postgres")
		}
	case "redis":
		if c.Remote.RedisAddr == "" {
			return errors.New("remote.redis_addr is required for redis")
		}
	default:
		return fmt.Errorf("unsupported remote.driver %q", c.Remote.Driver)
	}
	return nil
}
