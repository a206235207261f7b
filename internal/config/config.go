// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when one exists), loads them into structured Go types, and validates
// that required values are present so the service fails fast on a bad
// deployment instead of failing on the first inquiry.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values and cross-field rules.
//   - Provide sane defaults for optional config blocks.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process environment before anything below reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read with the prefix TRAVELEASE_. A double underscore marks
	nesting, a single underscore stays part of the key:

	  TRAVELEASE_EMAIL__BUSINESS_ADDRESS -> email.business_address

	Dots are not allowed in Lambda environment variable names, which is why
	the delimiter is mapped from "__" instead of being used literally.
*/

// EnvPrefix is the prefix every recognized environment variable carries.
const EnvPrefix = "TRAVELEASE_"

// Storage backends.
const (
	StorageDynamoDB = "dynamodb"
	StoragePostgres = "postgres"
)

// Email providers.
const (
	EmailProviderSES    = "ses"
	EmailProviderResend = "resend"
)

// Config is the root configuration object for the application.
//
// Database and Redis are pointers because they are optional: the database
// block is only needed by the postgres store, and Redis only powers the
// outbox sweep.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Storage       StorageConfig        `koanf:"storage" validate:"required"`
	Database      *DatabaseConfig      `koanf:"database"`
	AWS           AWSConfig            `koanf:"aws"`
	Email         EmailConfig          `koanf:"email" validate:"required"`
	Geocoding     GeocodingConfig      `koanf:"geocoding"`
	Redis         *RedisConfig         `koanf:"redis"`
	Outbox        OutboxConfig         `koanf:"outbox"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`
}

// StorageConfig selects where inquiry records are written. TableName is the
// DynamoDB table; the postgres schema is owned by the migrations.
type StorageConfig struct {
	Backend   string `koanf:"backend" validate:"required,oneof=dynamodb postgres"`
	TableName string `koanf:"table_name" validate:"required_if=Backend dynamodb"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time"`
}

// AWSConfig holds AWS SDK settings. An empty region defers to the SDK's
// default resolution chain (AWS_REGION, shared config, ...).
type AWSConfig struct {
	Region string `koanf:"region"`
}

// EmailConfig holds sender/recipient addresses and provider credentials.
type EmailConfig struct {
	Provider        string `koanf:"provider" validate:"required,oneof=ses resend"`
	SourceAddress   string `koanf:"source_address" validate:"required,email"`
	BusinessAddress string `koanf:"business_address" validate:"required,email"`
	FromName        string `koanf:"from_name"`
	ResendAPIKey    string `koanf:"resend_api_key"`
}

// GeocodingConfig configures the destination lookup.
type GeocodingConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BaseURL   string        `koanf:"base_url" validate:"required_if=Enabled true"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// OutboxConfig tunes the background sweep that re-delivers notifications
// for records stuck in the pending state.
type OutboxConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
	GracePeriod   time.Duration `koanf:"grace_period"`
	BatchSize     int           `koanf:"batch_size" validate:"min=0"`
}

// DefaultConfig returns a Config prefilled with defaults. Values from the
// environment are unmarshalled on top of it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        10,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: StorageDynamoDB,
		},
		Email: EmailConfig{
			Provider: EmailProviderSES,
			FromName: "TravelEase",
		},
		Geocoding: GeocodingConfig{
			Enabled:   true,
			BaseURL:   "https://nominatim.openstreetmap.org/search",
			UserAgent: "TravelEaseInquiry/1.0",
			Timeout:   5 * time.Second,
		},
		Outbox: OutboxConfig{
			SweepInterval: 5 * time.Minute,
			GracePeriod:   10 * time.Minute,
			BatchSize:     50,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it
// on top of DefaultConfig, validates it and fills observability defaults.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := DefaultConfig()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// envKey maps TRAVELEASE_EMAIL__BUSINESS_ADDRESS to email.business_address.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate runs struct-tag validation (nested pointer blocks are validated
// only when present) and the cross-field rules the tags cannot express.
// It also injects the observability defaults.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Storage.Backend == StoragePostgres && c.Database == nil {
		return fmt.Errorf("database config is required when storage.backend is %q", StoragePostgres)
	}
	if c.Email.Provider == EmailProviderResend && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("email.resend_api_key is required when email.provider is %q", EmailProviderResend)
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	// Service name and environment always follow the primary config so
	// logs and traces are tagged consistently.
	c.Observability.ServiceName = "travelease-inquiry"
	c.Observability.Environment = c.Primary.Env

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

// OutboxEnabled reports whether the background notification sweep can run.
func (c *Config) OutboxEnabled() bool {
	return c.Redis != nil && c.Outbox.SweepInterval > 0
}
