// Package config loads service configuration from an optional listing.yaml
// file layered under LISTING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LISTING_SERVER_PORT.
const EnvPrefix = "LISTING"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Unlocker UnlockerConfig `mapstructure:"unlocker"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
	Database DatabaseConfig `mapstructure:"database"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Environment    string   `mapstructure:"environment" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig selects log level and output format
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// FetchConfig controls the tier escalation.
type FetchConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	DomainMarkers  []string      `mapstructure:"domain_markers" validate:"min=1,dive,required"`
	TierTimeout    time.Duration `mapstructure:"tier_timeout" validate:"gt=0"`
	RequestBudget  time.Duration `mapstructure:"request_budget" validate:"gt=0"`
	BrowserEnabled bool          `mapstructure:"browser_enabled"`
	OutboundRPS    float64       `mapstructure:"outbound_rps" validate:"gte=0"`
	OutboundBurst  int           `mapstructure:"outbound_burst" validate:"gte=1"`
}

// UnlockerConfig configures the paid page-unlocking intermediary. Tiers that
// use it are skipped while Endpoint or APIKey is empty.
type UnlockerConfig struct {
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey      string `mapstructure:"api_key"`
	CountryCode string `mapstructure:"country_code" validate:"omitempty,len=2"`
}

// Configured reports whether unlocker tiers can run.
func (u UnlockerConfig) Configured() bool {
	return u.Endpoint != "" && u.APIKey != ""
}

// CacheConfig selects the listing cache backend
type CacheConfig struct {
	Backend    string        `mapstructure:"backend" validate:"oneof=memory badger postgres"`
	Path       string        `mapstructure:"path"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
	FailureTTL time.Duration `mapstructure:"failure_ttl" validate:"gt=0"`
}

// OverlayConfig selects the overlay store backend
type OverlayConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory sqlite postgres"`
	Path    string `mapstructure:"path"`
}

// DatabaseConfig holds the PostgreSQL connection URL
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// UploadsConfig controls where overlay images are written and served from
type UploadsConfig struct {
	Dir          string `mapstructure:"dir" validate:"required"`
	PublicPrefix string `mapstructure:"public_prefix" validate:"required,startswith=/"`
	MaxBytes     int64  `mapstructure:"max_bytes" validate:"gt=0"`
}

// AuthConfig holds bearer-token settings
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours" validate:"gte=1"`
}

// Load reads configuration. When path is empty, listing.yaml is looked up in
// the working directory and ./config; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("listing")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("fetch.base_url", "https://www.amazon.co.uk")
	v.SetDefault("fetch.domain_markers", []string{"amazon."})
	v.SetDefault("fetch.tier_timeout", "25s")
	v.SetDefault("fetch.request_budget", "2m")
	v.SetDefault("fetch.browser_enabled", false)
	v.SetDefault("fetch.outbound_rps", 1.0)
	v.SetDefault("fetch.outbound_burst", 2)

	v.SetDefault("unlocker.endpoint", "")
	v.SetDefault("unlocker.api_key", "")
	v.SetDefault("unlocker.country_code", "gb")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.path", "data/cache")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.failure_ttl", "15m")

	v.SetDefault("overlay.backend", "memory")
	v.SetDefault("overlay.path", "data/overlays.db")

	v.SetDefault("database.url", "")

	v.SetDefault("uploads.dir", "data/uploads")
	v.SetDefault("uploads.public_prefix", "/uploads")
	v.SetDefault("uploads.max_bytes", 10<<20)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.expiration_hours", 24)
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	needsDB := c.Cache.Backend == "postgres" || c.Overlay.Backend == "postgres"
	if needsDB && c.Database.URL == "" {
		return fmt.Errorf("database.url is required when a postgres backend is selected (set %s_DATABASE_URL)", EnvPrefix)
	}
	if c.Cache.Backend == "badger" && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required for the badger backend")
	}
	if c.Overlay.Backend == "sqlite" && c.Overlay.Path == "" {
		return fmt.Errorf("overlay.path is required for the sqlite backend")
	}
	if (c.Unlocker.Endpoint == "") != (c.Unlocker.APIKey == "") {
		return fmt.Errorf("unlocker.endpoint and unlocker.api_key must be set together")
	}
	return nil
}
