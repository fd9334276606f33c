package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "24h"
	defaultResubscribeBase = "500ms"
	defaultDatabaseURL     = "gigmarket.db"

	FeedMemory   = "memory"
	FeedRedis    = "redis"
	FeedPostgres = "postgres"
)

// Config holds runtime settings for the API and the CLIs.
type Config struct {
	AppEnv      string
	HTTPPort    string
	DatabaseURL string
	AutoMigrate bool

	JWTSecret string
	JWTTTL    time.Duration

	RealtimeFeed          string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ResubscribeBaseDelay  time.Duration
	ResubscribeMaxRetries int
	BackfillLimit         int
	LookbackIDs           int64

	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPPort = strings.TrimSpace(getEnv("HTTP_PORT", "8080"))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.AutoMigrate = parseBoolEnv("AUTO_MIGRATE", "true")
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.RealtimeFeed = strings.ToLower(strings.TrimSpace(getEnv("REALTIME_FEED", FeedMemory)))
	cfg.RedisAddr = strings.TrimSpace(getEnv("REDIS_ADDR", "localhost:6379"))
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	cfg.ResubscribeBaseDelay, err = parseDurationEnv("RESUBSCRIBE_BASE_DELAY", defaultResubscribeBase)
	if err != nil {
		return nil, err
	}
	cfg.ResubscribeMaxRetries = getEnvInt("RESUBSCRIBE_MAX_RETRIES", 8)
	cfg.BackfillLimit = getEnvInt("REALTIME_BACKFILL_LIMIT", 500)
	cfg.LookbackIDs = int64(getEnvInt("REALTIME_LOOKBACK_IDS", 1000))
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", nil)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s port=%s feed=%s auto_migrate=%t", cfg.AppEnv, cfg.HTTPPort, cfg.RealtimeFeed, cfg.AutoMigrate)

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.ResubscribeBaseDelay <= 0 {
		return fmt.Errorf("RESUBSCRIBE_BASE_DELAY must be > 0")
	}
	if cfg.ResubscribeMaxRetries < 0 {
		return fmt.Errorf("RESUBSCRIBE_MAX_RETRIES must be >= 0")
	}
	if cfg.BackfillLimit <= 0 {
		return fmt.Errorf("REALTIME_BACKFILL_LIMIT must be > 0")
	}
	if cfg.LookbackIDs <= 0 {
		return fmt.Errorf("REALTIME_LOOKBACK_IDS must be > 0")
	}

	switch cfg.RealtimeFeed {
	case FeedMemory:
	case FeedRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when REALTIME_FEED=redis")
		}
	case FeedPostgres:
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("REALTIME_FEED=postgres requires a postgres DATABASE_URL")
		}
	default:
		return fmt.Errorf("REALTIME_FEED must be one of: memory, redis, postgres")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.RealtimeFeed == FeedMemory {
			return fmt.Errorf("in prod/release REALTIME_FEED must not be memory")
		}
	}

	return nil
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
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

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(name string, fallback []string) []string {
	if v := os.Getenv(name); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
