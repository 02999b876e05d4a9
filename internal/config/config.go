// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"

	"github.com/morezero/operation-engine/pkg/identity"
)

const logPrefix = "config:LoadConfig"

// Config holds operation-engine configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"operation-engine"`

	// Engine subject overrides (empty = derive from SERVICE_NAME)
	EngineSubject      string `envconfig:"ENGINE_SUBJECT"`
	ChangeEventSubject string `envconfig:"ENGINE_CHANGE_EVENT_SUBJECT"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"ENGINE_REQUEST_TIMEOUT" default:"25s"`

	// Catalog
	CatalogFile          string `envconfig:"ENGINE_CATALOG_FILE"`
	CaseInsensitiveNames bool   `envconfig:"ENGINE_CASE_INSENSITIVE_NAMES" default:"true"`
	DefaultLocale        string `envconfig:"ENGINE_DEFAULT_LOCALE" default:"en-US"`
	Environment          string `envconfig:"ENGINE_ENVIRONMENT" default:"production"`

	// Database (empty = no Postgres catalog)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// Identity (empty secret = trust ctx.userId and ctx.roles)
	JWTSecret   string `envconfig:"JWT_SECRET"`
	JWTIssuer   string `envconfig:"JWT_ISSUER"`
	JWTAudience string `envconfig:"JWT_AUDIENCE"`

	// HTTP health endpoint (ENGINE_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"ENGINE_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Identity returns the bearer token configuration.
func (c *Config) Identity() identity.Config {
	return identity.Config{
		Secret:   []byte(c.JWTSecret),
		Issuer:   c.JWTIssuer,
		Audience: c.JWTAudience,
	}
}

// Locale returns the parsed default locale.
func (c *Config) Locale() (language.Tag, error) {
	tag, err := language.Parse(c.DefaultLocale)
	if err != nil {
		return language.Und, fmt.Errorf("%s - invalid ENGINE_DEFAULT_LOCALE %q: %w", logPrefix, c.DefaultLocale, err)
	}
	return tag, nil
}

// ValidateForServe checks required config when running the engine server.
func (c *Config) ValidateForServe() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - ENGINE_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if _, err := c.Locale(); err != nil {
		return err
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, seed).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
