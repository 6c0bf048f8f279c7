package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// FallbackJWTSecret signs tokens when JWT_SECRET is unset. It is public and
// must never protect a real deployment.
const FallbackJWTSecret = "catalog-fallback-signing-key-change-me-2026"

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

type Config struct {
	Port              string        `env:"PORT" validate:"required,numeric"`
	LogLevel          string        `env:"LOG_LEVEL"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	JWTSecret        string `env:"JWT_SECRET" validate:"required"`
	SecretIsFallback bool

	StoreDriver string `env:"STORE_DRIVER" validate:"oneof=memory postgres sqlite redis"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	SQLitePath  string `env:"SQLITE_PATH" validate:"required_if=StoreDriver sqlite"`
	RedisURL    string `env:"REDIS_URL" validate:"required_if=StoreDriver redis"`

	CORSOrigins    []string
	MetricsEnabled bool
	MetricsToken   string
	DocsEnabled    bool
}

// Load reads .env (if any) and the environment once; callers keep the result
// for the life of the process.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReadHeaderTimeout: getDuration("READ_HEADER_TIMEOUT", 5*time.Second),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:        getEnv("SQLITE_PATH", "./data/catalog.db"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "*")),
		MetricsEnabled:    getBool("METRICS_ENABLED", true),
		MetricsToken:      strings.TrimSpace(os.Getenv("METRICS_TOKEN")),
		DocsEnabled:       getBool("DOCS_ENABLED", true),
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = FallbackJWTSecret
		cfg.SecretIsFallback = true
	}

	if getBool("USE_IN_MEMORY_DB", false) {
		cfg.StoreDriver = DriverMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}

// Validate checks the struct tags and reports the first offending variable
// by its environment name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s cannot be empty", fe.Field())
	case "required_if":
		return fmt.Errorf("%s is required for STORE_DRIVER=%s", fe.Field(), c.StoreDriver)
	case "oneof":
		return fmt.Errorf("unknown %s %q", fe.Field(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be positive", fe.Field())
	default:
		return fmt.Errorf("%s failed %q check", fe.Field(), fe.Tag())
	}
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
