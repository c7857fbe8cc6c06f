package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CACHE_BACKEND")
	os.Unsetenv("CACHE_QUERY_TTL_SECONDS")
	os.Unsetenv("SEARCH_TIMEOUT_SECONDS")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 300, cfg.Cache.QueryTTLSeconds)
	assert.Equal(t, 30*time.Second, cfg.Search.SearchTimeout())
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 4, cfg.Enrichment.Concurrency)
	assert.Equal(t, time.Second, cfg.Enrichment.NominatimDelay())
	assert.Equal(t, "static", cfg.MarketData.Provider)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("CACHE_BACKEND", "redis")
	os.Setenv("CACHE_QUERY_TTL_SECONDS", "60")
	os.Setenv("REDIS_HOST", "cache.internal")
	os.Setenv("REDIS_PORT", "6380")
	defer func() {
		os.Unsetenv("CACHE_BACKEND")
		os.Unsetenv("CACHE_QUERY_TTL_SECONDS")
		os.Unsetenv("REDIS_HOST")
		os.Unsetenv("REDIS_PORT")
	}()

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 60, cfg.Cache.QueryTTLSeconds)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.RedisAddr())
}

func TestLoad_MalformedIntFallsBackToDefault(t *testing.T) {
	os.Setenv("SEARCH_TIMEOUT_SECONDS", "soon")
	defer os.Unsetenv("SEARCH_TIMEOUT_SECONDS")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 30, cfg.Search.TimeoutSeconds)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "immo",
		Password: "secret",
		Database: "market",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=immo password=secret dbname=market sslmode=require",
		cfg.DatabaseDSN(),
	)
}
