package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnv             = "dev"
	defaultDBDriver        = "sqlite"
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultCurrency        = "USD"
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds application configuration. Values come from defaults, then an
// optional YAML file (CONFIG_FILE), then environment variables.
type Config struct {
	Env             string        `yaml:"env"`
	Port            string        `yaml:"port"`
	DBDriver        string        `yaml:"db_driver"`
	DBPath          string        `yaml:"db_path"`
	DatabaseURL     string        `yaml:"database_url"`
	APIToken        string        `yaml:"api_token"`
	LogLevel        string        `yaml:"log_level"`
	DefaultCurrency string        `yaml:"default_currency"`
	ClampTaxable    bool          `yaml:"clamp_taxable"`
	SeedDemo        bool          `yaml:"seed_demo"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func defaults() Config {
	return Config{
		Env:             defaultEnv,
		Port:            defaultPort,
		DBDriver:        defaultDBDriver,
		DBPath:          defaultDBPath,
		LogLevel:        defaultLogLevel,
		DefaultCurrency: defaultCurrency,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Load reads configuration from the environment and the optional YAML file.
func Load() (Config, error) {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.DBDriver = strings.ToLower(cfg.DBDriver)
	cfg.DefaultCurrency = strings.ToUpper(cfg.DefaultCurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.Port, "PORT")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.APIToken, "API_TOKEN")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DefaultCurrency, "DEFAULT_CURRENCY")

	if err := setBool(&cfg.ClampTaxable, "PRICING_CLAMP_TAXABLE"); err != nil {
		return err
	}
	if err := setBool(&cfg.SeedDemo, "SEED_DEMO"); err != nil {
		return err
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that work but are probably not intended.
func (c Config) Warnings() []string {
	var out []string
	if c.APIToken == "" {
		out = append(out, "API_TOKEN is not set; the API is unauthenticated")
	}
	if !c.IsDev() && c.SeedDemo {
		out = append(out, "SEED_DEMO is ignored outside dev")
	}
	return out
}

// IsDev reports whether APP_ENV is unset or names development.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}
