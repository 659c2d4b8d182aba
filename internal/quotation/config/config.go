// Package config loads the service configuration. Values come from the YAML
// file first, then from a .env file and the process environment
// (QUOTATION_ prefix), later sources winning.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix   = "QUOTATION"
	DefaultPath = "internal/quotation/config/config.yaml"
)

type Config struct {
	Environment string `yaml:"ENVIRONMENT" envconfig:"ENVIRONMENT"`
	LogLevel    string `yaml:"LOG_LEVEL" envconfig:"LOG_LEVEL"`

	GRPCPort int `yaml:"GRPC_PORT" envconfig:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT" envconfig:"HTTP_PORT"`

	DBDriver   string `yaml:"DB_DRIVER" envconfig:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST" envconfig:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT" envconfig:"DB_PORT"`
	DBUser     string `yaml:"DB_USER" envconfig:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD" envconfig:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME" envconfig:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE" envconfig:"DB_SSLMODE"`
	DBPath     string `yaml:"DB_PATH" envconfig:"DB_PATH"`

	// RedisAddr enables the HSN rate cache when set.
	RedisAddr     string        `yaml:"REDIS_ADDR" envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"REDIS_PASSWORD" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"REDIS_DB" envconfig:"REDIS_DB"`
	RedisTTL      time.Duration `yaml:"REDIS_TTL" envconfig:"REDIS_TTL"`

	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string `yaml:"KAFKA_BROKERS" envconfig:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC" envconfig:"TOPIC"`

	DocumentDir    string `yaml:"DOCUMENT_DIR" envconfig:"DOCUMENT_DIR"`
	AssetsDir      string `yaml:"ASSETS_DIR" envconfig:"ASSETS_DIR"`
	DocumentFormat string `yaml:"DOCUMENT_FORMAT" envconfig:"DOCUMENT_FORMAT"`
	CurrencySymbol string `yaml:"CURRENCY_SYMBOL" envconfig:"CURRENCY_SYMBOL"`

	RateLimitRequests int           `yaml:"RATE_LIMIT_REQUESTS" envconfig:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `yaml:"RATE_LIMIT_WINDOW" envconfig:"RATE_LIMIT_WINDOW"`

	// CORSAllowedOrigins lists the browser origins of the front-end. Empty
	// disables CORS handling.
	CORSAllowedOrigins []string `yaml:"CORS_ALLOWED_ORIGINS" envconfig:"CORS_ALLOWED_ORIGINS"`

	MetricsPrefix string `yaml:"METRICS_PREFIX" envconfig:"METRICS_PREFIX"`
	SeedFile      string `yaml:"SEED_FILE" envconfig:"SEED_FILE"`
}

// Default returns the configuration used for keys absent from every source.
func Default() *Config {
	return &Config{
		Environment:       "development",
		LogLevel:          "info",
		GRPCPort:          50051,
		HTTPPort:          8080,
		DBDriver:          "postgres",
		DBHost:            "localhost",
		DBPort:            5432,
		DBSSLMode:         "disable",
		DBPath:            "quotation.db",
		RedisTTL:          time.Hour,
		Topic:             "quotation.events",
		DocumentDir:       "generated_quotations",
		AssetsDir:         "assets",
		DocumentFormat:    "docx",
		CurrencySymbol:    "₹",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		MetricsPrefix:     "quotation",
	}
}

// Load reads path (skipped when empty), then .env, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%w: invalid config file %s: %v", e.ErrConfiguration, path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) Validate() error {
	var problems []string
	if c.HTTPPort <= 0 {
		problems = append(problems, "HTTP_PORT must be positive")
	}
	if c.GRPCPort <= 0 {
		problems = append(problems, "GRPC_PORT must be positive")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not one of postgres, sqlite", c.DBDriver))
	}
	switch c.DocumentFormat {
	case "docx", "pdf", "xlsx":
	default:
		problems = append(problems, fmt.Sprintf("DOCUMENT_FORMAT %q is not one of docx, pdf, xlsx", c.DocumentFormat))
	}
	if c.DocumentDir == "" {
		problems = append(problems, "DOCUMENT_DIR is required")
	}
	if c.RateLimitRequests < 0 {
		problems = append(problems, "RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		problems = append(problems, "RATE_LIMIT_WINDOW must be positive when rate limiting is on")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			problems = append(problems, "CORS_ALLOWED_ORIGINS must not contain empty origins")
			break
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", e.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c != nil && c.Environment == "production"
}
