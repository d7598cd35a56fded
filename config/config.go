package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"nftcache.app/errors"
)

// Config represents the application configuration structure
type Config struct {
	Server   ServerConfig   `split_words:"true"`
	Store    StoreConfig    `split_words:"true"`
	Metadata MetadataConfig `split_words:"true"`
	Scanner  ScannerConfig  `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// StoreConfig selects and configures the durable key-value backend
type StoreConfig struct {
	Type     string         `envconfig:"STORE_TYPE" default:"memory"`
	Redis    RedisConfig    `split_words:"true"`
	Database DatabaseConfig `split_words:"true"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path     string `envconfig:"DB_PATH" default:"nftcache.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"nftcache"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

// GetDSN returns a formatted database connection string
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// MetadataConfig contains settings for the remote metadata endpoint and the
// resolver's caching and batching behavior
type MetadataConfig struct {
	BaseURL             string `envconfig:"METADATA_API_BASE_URL" required:"true"`
	APIKey              string `envconfig:"METADATA_API_KEY" default:""`
	CacheTTLMinutes     int    `envconfig:"METADATA_CACHE_TTL_MINUTES" default:"60"`
	BatchWindowMs       int    `envconfig:"METADATA_BATCH_WINDOW_MS" default:"50"`
	FetchTimeoutSeconds int    `envconfig:"METADATA_FETCH_TIMEOUT_SECONDS" default:"10"`
}

// ScannerConfig contains settings for the listing scan loop
type ScannerConfig struct {
	Enabled            bool   `envconfig:"SCANNER_ENABLED" default:"true"`
	IntervalSeconds    int    `envconfig:"SCANNER_INTERVAL_SECONDS" default:"30"`
	StartBlock         string `envconfig:"SCANNER_START_BLOCK" default:"0"`
	SnapshotTTLMinutes int    `envconfig:"SCANNER_SNAPSHOT_TTL_MINUTES" default:"5"`
}

// LoadConfig loads and validates application configuration from environment variables
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	if err := c.Scanner.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Validate checks store configuration
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case "memory":
		return nil
	case "redis":
		return s.Redis.Validate()
	case "database":
		return s.Database.Validate()
	default:
		return errors.NewConfigurationError("STORE_TYPE must be one of: memory, redis, database", nil)
	}
}

// Validate checks Redis configuration
func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty", nil)
	}
	if r.DB < 0 {
		return errors.NewConfigurationError("REDIS_DB cannot be negative", nil)
	}
	return nil
}

// Validate checks database configuration
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite":
		if d.Path == "" {
			return errors.NewConfigurationError("DB_PATH cannot be empty for sqlite", nil)
		}
	case "postgres":
		if d.Host == "" {
			return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
		}
		if d.Port < 1 || d.Port > 65535 {
			return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
		}
		if d.User == "" {
			return errors.NewConfigurationError("DB_USER cannot be empty", nil)
		}
		if d.Name == "" {
			return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
		}
		if err := d.validateSSLMode(); err != nil {
			return err
		}
	default:
		return errors.NewConfigurationError("DB_DRIVER must be one of: sqlite, postgres", nil)
	}
	return nil
}

func (d *DatabaseConfig) validateSSLMode() error {
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

// Validate checks metadata resolver configuration
func (m *MetadataConfig) Validate() error {
	if m.BaseURL == "" {
		return errors.NewConfigurationError("METADATA_API_BASE_URL is required", nil)
	}
	if !strings.HasPrefix(m.BaseURL, "http://") && !strings.HasPrefix(m.BaseURL, "https://") {
		return errors.NewConfigurationError("METADATA_API_BASE_URL must start with http:// or https://", nil)
	}
	if m.CacheTTLMinutes < 1 {
		return errors.NewConfigurationError("METADATA_CACHE_TTL_MINUTES must be at least 1", nil)
	}
	if m.BatchWindowMs < 1 {
		return errors.NewConfigurationError("METADATA_BATCH_WINDOW_MS must be at least 1", nil)
	}
	if m.FetchTimeoutSeconds < 1 {
		return errors.NewConfigurationError("METADATA_FETCH_TIMEOUT_SECONDS must be at least 1", nil)
	}
	return nil
}

// Validate checks scanner configuration
func (s *ScannerConfig) Validate() error {
	if s.IntervalSeconds < 1 {
		return errors.NewConfigurationError("SCANNER_INTERVAL_SECONDS must be at least 1", nil)
	}
	if s.SnapshotTTLMinutes < 1 {
		return errors.NewConfigurationError("SCANNER_SNAPSHOT_TTL_MINUTES must be at least 1", nil)
	}
	for _, ch := range s.StartBlock {
		if ch < '0' || ch > '9' {
			return errors.NewConfigurationError("SCANNER_START_BLOCK must be a decimal block number", nil)
		}
	}
	if s.StartBlock == "" {
		return errors.NewConfigurationError("SCANNER_START_BLOCK cannot be empty", nil)
	}
	return nil
}
