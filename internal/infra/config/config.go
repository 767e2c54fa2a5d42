// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Store    StoreConfig    `yaml:"store"`
	Playback PlaybackConfig `yaml:"playback"`
	Share    ShareConfig    `yaml:"share"`
}

// LoggingConfig represents logger configuration.
type LoggingConfig struct {
	Output string `yaml:"output" default:"stdout"` // "stdout", "stderr", or file path
	Level  string `yaml:"level" default:"info"`    // "debug", "info", "warn", "error"
}

// CatalogConfig represents track catalog configuration.
type CatalogConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1"`
}

// ProviderConfig represents a single catalog provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// StoreConfig represents remote library store configuration.
type StoreConfig struct {
	Backend string          `yaml:"backend" default:"rest" validate:"oneof=rest postgres sqlite"`
	UserID  string          `yaml:"user_id" validate:"required"`
	REST    RESTStoreConfig `yaml:"rest"`
	SQL     SQLStoreConfig  `yaml:"sql"`
}

// RESTStoreConfig represents the REST row store backend.
type RESTStoreConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`
	CoverBucket string `yaml:"cover_bucket" default:"playlist-covers"`
}

// SQLStoreConfig represents the SQL row store backend.
type SQLStoreConfig struct {
	Driver string `yaml:"driver"` // derived from Backend when empty
	DSN    string `yaml:"dsn"`
}

// PlaybackConfig represents playback engine configuration.
type PlaybackConfig struct {
	InitialVolume float64 `yaml:"initial_volume" default:"1.0" validate:"gte=0,lte=1"`
	RecentLimit   int     `yaml:"recent_limit" default:"20" validate:"gte=1"`
}

// ShareConfig represents share link construction.
type ShareConfig struct {
	BaseURL string `yaml:"base_url" default:"https://playd.app"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("PLAYD_USER_ID"); v != "" {
		c.Store.UserID = v
	}
	if v := os.Getenv("STORE_BASE_URL"); v != "" {
		c.Store.REST.BaseURL = v
	}
	if v := os.Getenv("STORE_API_KEY"); v != "" {
		c.Store.REST.APIKey = v
	}
	if v := os.Getenv("STORE_ACCESS_TOKEN"); v != "" {
		c.Store.REST.AccessToken = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Store.SQL.DSN = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.setProviderSetting("spotify", "client_id", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.setProviderSetting("spotify", "client_secret", v)
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.setProviderSetting("spotify", "refresh_token", v)
	}
}

func (c *Config) setProviderSetting(providerType, key, value string) {
	for i := range c.Catalog.Providers {
		if c.Catalog.Providers[i].Type == providerType {
			if c.Catalog.Providers[i].Settings == nil {
				c.Catalog.Providers[i].Settings = make(map[string]any)
			}
			c.Catalog.Providers[i].Settings[key] = value
			return
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Backend-specific requirements are not expressible as struct tags.
	switch c.Store.Backend {
	case "rest":
		if c.Store.REST.BaseURL == "" {
			return errors.New("store.rest.base_url is required for the rest backend")
		}
		if c.Store.REST.APIKey == "" {
			return errors.New("store.rest.api_key is required for the rest backend")
		}
	case "postgres", "sqlite":
		if c.Store.SQL.DSN == "" {
			return errors.Newf("store.sql.dsn is required for the %s backend", c.Store.Backend)
		}
	}

	return nil
}

// SQLDriver returns the database/sql driver name for the configured backend.
func (c *Config) SQLDriver() string {
	if c.Store.SQL.Driver != "" {
		return c.Store.SQL.Driver
	}
	switch c.Store.Backend {
	case "postgres":
		return "postgres"
	case "sqlite":
		return "sqlite3"
	default:
		return ""
	}
}
