package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env   string `validate:"required,oneof=dev test prod"`
	Port  int    `validate:"gte=0,lt=65536"`
	DBURL string

	// DBDriver selects the store backend.
	DBDriver   string `validate:"required,oneof=postgres sqlite memory"`
	SQLitePath string `validate:"required_if=DBDriver sqlite"`

	JWTSecret  string `validate:"required,min=8"`
	JWTTTLDays int    `validate:"gt=0"`
	BcryptCost int

	AdminEmail     string
	AdminPassword  string
	AdminNom       string
	AdminPrenom    string
	AdminTelephone string

	RevocationBackend       string `validate:"required,oneof=memory redis"`
	RevocationMaxAgeDays    int    `validate:"gt=0"`
	RevocationSweepInterval time.Duration
	RedisAddr               string `validate:"required_if=RevocationBackend redis"`
	RedisPassword           string
	RedisDB                 int

	CORSOrigins    []string
	LoginRateLimit int `validate:"gte=0"`
	MaxBodyBytes   int64

	OTLPEndpoint string
	ServiceName  string
}

// Load reads the environment, after an optional .env file, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "err", err)
	}

	cfg := Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		SQLitePath: getEnv("SQLITE_PATH", "taskhub.db"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTTTLDays: getEnvInt("JWT_TTL_DAYS", 30),
		BcryptCost: getEnvInt("BCRYPT_COST", 0),

		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminNom:       getEnv("ADMIN_NOM", "Admin"),
		AdminPrenom:    getEnv("ADMIN_PRENOM", "Super"),
		AdminTelephone: getEnv("ADMIN_TELEPHONE", "0000000000"),

		RevocationBackend:       getEnv("REVOCATION_BACKEND", "memory"),
		RevocationMaxAgeDays:    getEnvInt("REVOCATION_MAX_AGE_DAYS", 7),
		RevocationSweepInterval: getEnvDuration("REVOCATION_SWEEP_INTERVAL", 0),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),

		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "taskhub-api"),
	}

	if cfg.JWTSecret == "" && cfg.Env != "prod" {
		cfg.JWTSecret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLDays) * 24 * time.Hour
}

func (c Config) RevocationMaxAge() time.Duration {
	return time.Duration(c.RevocationMaxAgeDays) * 24 * time.Hour
}

func (c Config) DebugRoutes() bool {
	return c.Env != "prod"
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
