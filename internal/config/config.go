package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studiobooking/internal/pkg/validator"
)

const (
	defaultPort                    = "8080"
	defaultDatabaseURL             = "studiobooking.db"
	defaultJWTSecret               = "change-me-jwt-secret"
	defaultCancellationWindowHours = "24"
	defaultRoomLockTimeout         = "5s"
	defaultRedisLockTTL            = "30s"
	defaultLockBackend             = LockBackendMemory
	defaultEventsQueue             = "booking.events"
	defaultRateLimitPerMinute      = "60"
	defaultRateLimitBurst          = "10"
	defaultShutdownTimeout         = "10s"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	AppEnv      string `validate:"required"`
	Port        string `validate:"required,numeric"`
	LogLevel    string
	DatabaseURL string `validate:"required"`
	JWTSecret   string `validate:"required"`

	CancellationWindowHours int           `validate:"gte=0,lte=720"`
	RoomLockTimeout         time.Duration `validate:"gt=0"`
	LockBackend             string        `validate:"oneof=memory redis"`
	RedisURL                string        `validate:"required_if=LockBackend redis"`
	RedisLockTTL            time.Duration `validate:"gt=0"`

	AMQPURL     string
	EventsQueue string `validate:"required"`

	CORSAllowedOrigins string

	RateLimitPerMinute int `validate:"gt=0"`
	RateLimitBurst     int `validate:"gt=0"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", "info"))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LockBackend = strings.ToLower(strings.TrimSpace(getEnv("LOCK_BACKEND", defaultLockBackend)))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	cfg.EventsQueue = strings.TrimSpace(getEnv("BOOKING_EVENTS_QUEUE", defaultEventsQueue))
	cfg.CORSAllowedOrigins = os.Getenv("CORS_ALLOWED_ORIGINS")

	var err error
	if cfg.CancellationWindowHours, err = parseIntEnv("CANCELLATION_WINDOW_HOURS", defaultCancellationWindowHours); err != nil {
		return nil, err
	}
	if cfg.RoomLockTimeout, err = parseDurationEnv("ROOM_LOCK_TIMEOUT", defaultRoomLockTimeout); err != nil {
		return nil, err
	}
	if cfg.RedisLockTTL, err = parseDurationEnv("REDIS_LOCK_TTL", defaultRedisLockTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = parseIntEnv("RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMinute); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if errs := validator.Validate(cfg); errs != nil {
		for field, tag := range errs {
			return fmt.Errorf("invalid config %s: failed on %q", field, tag)
		}
	}
	if cfg.LockBackend == LockBackendRedis {
		if cfg.RedisLockTTL <= cfg.RoomLockTimeout {
			return fmt.Errorf("REDIS_LOCK_TTL must be greater than ROOM_LOCK_TIMEOUT")
		}
		// an expired redis lease is only caught by the postgres exclusion constraint
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("LOCK_BACKEND=redis requires a PostgreSQL DATABASE_URL")
		}
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}
	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// StaticSettings serves the cancellation window from configuration.
type StaticSettings struct {
	WindowHours int
}

func (s StaticSettings) CancellationWindowHours() int {
	return s.WindowHours
}
