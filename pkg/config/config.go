package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Cache      CacheConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	MarketData MarketDataConfig
	Search     SearchConfig
	Enrichment EnrichmentConfig
	Sources    SourcesConfig
	OTEL       OTELConfig
}

// AppConfig holds service identity configuration
type AppConfig struct {
	Name    string
	Version string
	Env     string
}

// CacheConfig holds cache backend and TTL configuration
type CacheConfig struct {
	Backend             string // "memory" or "redis"
	QueryTTLSeconds     int
	GeocodeTTLSeconds   int
	NeighborhoodSeconds int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds the market reference database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// MarketDataConfig selects the market reference data provider
type MarketDataConfig struct {
	Provider string // "static" or "postgres"
}

// SearchConfig bounds the aggregated search
type SearchConfig struct {
	TimeoutSeconds int
	MaxResults     int
}

// EnrichmentConfig bounds per-listing geocoding fan-out
type EnrichmentConfig struct {
	Concurrency      int
	NominatimDelayMs int
}

// SourcesConfig holds the external endpoints consumed by adapters and
// geocoding tiers. Overridable for tests and proxies.
type SourcesConfig struct {
	LeBonCoinURL       string
	SeLogerURL         string
	BANURL             string
	NominatimURL       string
	OverpassURL        string
	HTTPTimeoutSeconds int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables, reading a local .env
// file first when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "immo-mcp"),
			Version: getEnv("APP_VERSION", "1.0.0"),
			Env:     getEnv("APP_ENV", "development"),
		},
		Cache: CacheConfig{
			Backend:             getEnv("CACHE_BACKEND", "memory"),
			QueryTTLSeconds:     getEnvAsInt("CACHE_QUERY_TTL_SECONDS", 300),
			GeocodeTTLSeconds:   getEnvAsInt("CACHE_GEOCODE_TTL_SECONDS", 86400),
			NeighborhoodSeconds: getEnvAsInt("CACHE_NEIGHBORHOOD_TTL_SECONDS", 3600),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "immo_mcp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MarketData: MarketDataConfig{
			Provider: getEnv("MARKET_DATA_PROVIDER", "static"),
		},
		Search: SearchConfig{
			TimeoutSeconds: getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 30),
			MaxResults:     getEnvAsInt("SEARCH_MAX_RESULTS", 50),
		},
		Enrichment: EnrichmentConfig{
			Concurrency:      getEnvAsInt("ENRICHMENT_CONCURRENCY", 4),
			NominatimDelayMs: getEnvAsInt("NOMINATIM_DELAY_MS", 1000),
		},
		Sources: SourcesConfig{
			LeBonCoinURL:       getEnv("LEBONCOIN_URL", "https://api.leboncoin.fr/finder/search"),
			SeLogerURL:         getEnv("SELOGER_URL", "https://api.seloger.com/api/v2/annonces/_search"),
			BANURL:             getEnv("BAN_URL", "https://api-adresse.data.gouv.fr/search/"),
			NominatimURL:       getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
			OverpassURL:        getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			HTTPTimeoutSeconds: getEnvAsInt("SOURCE_HTTP_TIMEOUT_SECONDS", 30),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "immo-mcp"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SearchTimeout returns the overall search deadline as a duration
func (c *SearchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout for outbound source calls
func (c *SourcesConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// NominatimDelay returns the politeness delay between Nominatim calls
func (c *EnrichmentConfig) NominatimDelay() time.Duration {
	return time.Duration(c.NominatimDelayMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
