package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "APP_ENV", "PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "API_TOKEN",
		"LOG_LEVEL", "DEFAULT_CURRENCY", "PRICING_CLAMP_TAXABLE", "SEED_DEMO", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	// Load reads .env from the working directory.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.DBDriver != "sqlite" || cfg.DBPath != "./dev.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultCurrency != "USD" || cfg.ClampTaxable || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev by default")
	}
	if len(cfg.Warnings()) != 1 {
		t.Fatalf("expected API_TOKEN warning, got %v", cfg.Warnings())
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
env: prod
port: "9090"
db_driver: Postgres
database_url: postgres://file/quotes
default_currency: eur
clamp_taxable: true
shutdown_timeout: 3s
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("PRICING_CLAMP_TAXABLE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "7070" {
		t.Fatalf("Port=%q, env should win over file", cfg.Port)
	}
	if cfg.ClampTaxable {
		t.Fatalf("ClampTaxable should be overridden by env")
	}
	if cfg.DBDriver != "postgres" || cfg.DatabaseURL != "postgres://file/quotes" {
		t.Fatalf("unexpected db config: %+v", cfg)
	}
	if cfg.DefaultCurrency != "EUR" || cfg.ShutdownTimeout != 3*time.Second || cfg.IsDev() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"bad bool", map[string]string{"PRICING_CLAMP_TAXABLE": "sometimes"}},
		{"bad duration", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
		{"bad currency", map[string]string{"DEFAULT_CURRENCY": "DOLLAR"}},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/config.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
