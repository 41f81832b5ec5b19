package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	defaultDSN = "host=localhost user=postgres password=postgres dbname=avault port=5432 sslmode=disable"
)

type Config struct {
	HTTPPort       string `toml:"http_port"`
	DatabaseDriver string `toml:"database_driver"`
	DatabaseDSN    string `toml:"database_dsn"`
	JWTSecret      string `toml:"jwt_secret"`
	CORSOrigins    string `toml:"cors_allowed_origins"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"` // json / text
	ImportMaxBytes int    `toml:"import_max_bytes"`
	TrendTerms     int    `toml:"trend_terms"` // default window for item trends
}

func Default() *Config {
	return &Config{
		HTTPPort:       "8080",
		DatabaseDriver: DriverPostgres,
		DatabaseDSN:    defaultDSN,
		CORSOrigins:    "http://localhost:5173",
		LogLevel:       "info",
		LogFormat:      "json",
		ImportMaxBytes: 10 << 20,
		TrendTerms:     5,
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. A .env file in the working directory is loaded
// first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("AVAULT_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ImportMaxBytes = getEnvInt("IMPORT_MAX_BYTES", cfg.ImportMaxBytes)
	cfg.TrendTerms = getEnvInt("TREND_TERMS", cfg.TrendTerms)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings shared by the server and the CLI.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return errors.New("DATABASE_DSN is empty")
	}
	if c.ImportMaxBytes <= 0 {
		return errors.New("IMPORT_MAX_BYTES must be positive")
	}
	if c.TrendTerms < 2 {
		return errors.New("TREND_TERMS must be at least 2")
	}
	return nil
}

// ValidateServer adds the production checks the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// Warnings lists settings that still carry development defaults.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDriver == DriverPostgres && c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
