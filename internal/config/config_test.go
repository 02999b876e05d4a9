package config

import (
	"os"
	"testing"
	"time"

	"golang.org/x/text/language"
)

var envVars = []string{
	"COMMS_URL", "SERVICE_NAME",
	"ENGINE_SUBJECT", "ENGINE_CHANGE_EVENT_SUBJECT",
	"ENGINE_REQUEST_TIMEOUT", "ENGINE_CATALOG_FILE",
	"ENGINE_CASE_INSENSITIVE_NAMES", "ENGINE_DEFAULT_LOCALE", "ENGINE_ENVIRONMENT",
	"DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"JWT_SECRET", "JWT_ISSUER", "JWT_AUDIENCE",
	"ENGINE_HTTP_ADDR", "HTTP_PORT", "HEALTH_CHECK_TIMEOUT", "LOG_LEVEL",
}

func clearEnv() {
	for _, env := range envVars {
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://127.0.0.1:4222" {
		t.Errorf("config:config_test - COMMSURL = %q, want %q", cfg.COMMSURL, "nats://127.0.0.1:4222")
	}
	if cfg.COMMSName != "operation-engine" {
		t.Errorf("config:config_test - COMMSName = %q, want %q", cfg.COMMSName, "operation-engine")
	}
	if cfg.EngineSubject != "" || cfg.ChangeEventSubject != "" {
		t.Errorf("config:config_test - subjects = %q/%q, want empty", cfg.EngineSubject, cfg.ChangeEventSubject)
	}
	if cfg.RequestTimeout != 25*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 25s", cfg.RequestTimeout)
	}
	if !cfg.CaseInsensitiveNames {
		t.Error("config:config_test - expected CaseInsensitiveNames=true by default")
	}
	if cfg.Environment != "production" {
		t.Errorf("config:config_test - Environment = %q, want production", cfg.Environment)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("config:config_test - DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=false by default")
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q, want %q", cfg.MigrationPath, "migrations")
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("config:config_test - HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 5s", cfg.HealthCheckTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Identity().Enabled() {
		t.Error("config:config_test - identity should be disabled without JWT_SECRET")
	}

	tag, err := cfg.Locale()
	if err != nil || tag != language.AmericanEnglish {
		t.Errorf("config:config_test - Locale() = %v, %v; want en-US", tag, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("config:config_test - defaults should be servable: %v", err)
	}
	if err := cfg.ValidateForDB(); err == nil {
		t.Error("config:config_test - ValidateForDB should require DATABASE_URL")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv()
	overrides := map[string]string{
		"COMMS_URL":                     "nats://custom:4222",
		"SERVICE_NAME":                  "test-engine",
		"ENGINE_SUBJECT":                "custom.engine",
		"ENGINE_CHANGE_EVENT_SUBJECT":   "custom.changed",
		"ENGINE_REQUEST_TIMEOUT":        "10s",
		"ENGINE_CATALOG_FILE":           "/tmp/catalog.yaml",
		"ENGINE_CASE_INSENSITIVE_NAMES": "false",
		"ENGINE_DEFAULT_LOCALE":         "de-DE",
		"ENGINE_ENVIRONMENT":            "development",
		"DATABASE_URL":                  "postgres://test@localhost/test",
		"RUN_MIGRATIONS":                "true",
		"JWT_SECRET":                    "s3cret",
		"JWT_ISSUER":                    "tests",
		"HTTP_PORT":                     "9090",
		"LOG_LEVEL":                     "debug",
	}
	for key, val := range overrides {
		os.Setenv(key, val)
	}
	defer clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://custom:4222" || cfg.COMMSName != "test-engine" {
		t.Errorf("config:config_test - COMMS = %q/%q", cfg.COMMSURL, cfg.COMMSName)
	}
	if cfg.EngineSubject != "custom.engine" || cfg.ChangeEventSubject != "custom.changed" {
		t.Errorf("config:config_test - subjects = %q/%q", cfg.EngineSubject, cfg.ChangeEventSubject)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.CatalogFile != "/tmp/catalog.yaml" {
		t.Errorf("config:config_test - CatalogFile = %q", cfg.CatalogFile)
	}
	if cfg.CaseInsensitiveNames {
		t.Error("config:config_test - expected CaseInsensitiveNames=false")
	}
	if cfg.Environment != "development" {
		t.Errorf("config:config_test - Environment = %q", cfg.Environment)
	}
	if !cfg.RunMigrations || cfg.DatabaseURL != "postgres://test@localhost/test" {
		t.Errorf("config:config_test - database = %q migrations=%v", cfg.DatabaseURL, cfg.RunMigrations)
	}
	if cfg.HTTPPort != 9090 || cfg.LogLevel != "debug" {
		t.Errorf("config:config_test - HTTPPort=%d LogLevel=%q", cfg.HTTPPort, cfg.LogLevel)
	}

	id := cfg.Identity()
	if !id.Enabled() || id.Issuer != "tests" {
		t.Errorf("config:config_test - Identity() = %+v", id)
	}
	if tag, _ := cfg.Locale(); tag != language.MustParse("de-DE") {
		t.Errorf("config:config_test - Locale() = %v, want de-DE", tag)
	}
	if err := cfg.ValidateForDB(); err != nil {
		t.Errorf("config:config_test - ValidateForDB: %v", err)
	}
}

func TestValidateForServe(t *testing.T) {
	base := Config{RequestTimeout: time.Second, HealthCheckTimeout: time.Second, DefaultLocale: "en-US"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero request timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, wantErr: true},
		{name: "zero health timeout", mutate: func(c *Config) { c.HealthCheckTimeout = 0 }, wantErr: true},
		{name: "bad locale", mutate: func(c *Config) { c.DefaultLocale = "not a locale!" }, wantErr: true},
		{name: "migrations without database", mutate: func(c *Config) { c.RunMigrations = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.ValidateForServe(); (err != nil) != tt.wantErr {
				t.Errorf("config:config_test - ValidateForServe() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_LogLevels(t *testing.T) {
	clearEnv()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		os.Setenv("LOG_LEVEL", level)
		cfg, err := LoadConfig()
		os.Unsetenv("LOG_LEVEL")

		if err != nil {
			t.Fatalf("config:config_test - unexpected error for level %q: %v", level, err)
		}
		if cfg.LogLevel != level {
			t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, level)
		}
	}
}
