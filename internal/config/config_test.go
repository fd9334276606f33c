package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")
	t.Setenv("REALTIME_FEED", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RESUBSCRIBE_MAX_RETRIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, FeedMemory, cfg.RealtimeFeed)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 8, cfg.ResubscribeMaxRetries)
}

func TestLoadRejectsUnknownFeed(t *testing.T) {
	t.Setenv("REALTIME_FEED", "kafka")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadPostgresFeedNeedsPostgresURL(t *testing.T) {
	t.Setenv("REALTIME_FEED", "postgres")
	t.Setenv("DATABASE_URL", "file:dev.db")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/gigs?sslmode=disable")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FeedPostgres, cfg.RealtimeFeed)
}

func TestLoadProdRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REALTIME_FEED", "redis")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("CORS_ALLOWED_ORIGINS", nil))
}

func TestParseDurationEnvInvalid(t *testing.T) {
	t.Setenv("JWT_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)
}
