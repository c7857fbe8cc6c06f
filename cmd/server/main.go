package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/immodex/immo-mcp/internal/adapters/cache"
	"github.com/immodex/immo-mcp/internal/adapters/providers/geocoding"
	"github.com/immodex/immo-mcp/internal/adapters/providers/marketdata"
	"github.com/immodex/immo-mcp/internal/adapters/providers/places"
	"github.com/immodex/immo-mcp/internal/adapters/sources/leboncoin"
	"github.com/immodex/immo-mcp/internal/adapters/sources/seloger"
	"github.com/immodex/immo-mcp/internal/application/services"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/immodex/immo-mcp/internal/domain/sources"
	"github.com/immodex/immo-mcp/internal/infrastructure/clients/postgres"
	"github.com/immodex/immo-mcp/internal/infrastructure/clients/redis"
	"github.com/immodex/immo-mcp/internal/infrastructure/observability"
	"github.com/immodex/immo-mcp/internal/mcp"
	"github.com/immodex/immo-mcp/pkg/config"
)

// Baseline market references served when no Postgres reference table is
// configured. Reference values, not live market data.
var staticMarketReferences = []providers.MarketReference{
	{City: "paris", AvgPricePerSqm: 10500, AvgRentPerSqmMonth: 32, RenovationCostSqm: 1100},
	{City: "lyon", AvgPricePerSqm: 5200, AvgRentPerSqmMonth: 17, RenovationCostSqm: 950},
	{City: "marseille", AvgPricePerSqm: 3600, AvgRentPerSqmMonth: 15, RenovationCostSqm: 900},
	{City: "bordeaux", AvgPricePerSqm: 4900, AvgRentPerSqmMonth: 16, RenovationCostSqm: 950},
	{City: "toulouse", AvgPricePerSqm: 3800, AvgRentPerSqmMonth: 14, RenovationCostSqm: 900},
	{City: "nantes", AvgPricePerSqm: 4100, AvgRentPerSqmMonth: 14, RenovationCostSqm: 900},
	{City: "lille", AvgPricePerSqm: 3500, AvgRentPerSqmMonth: 15, RenovationCostSqm: 850},
	{City: "nice", AvgPricePerSqm: 5300, AvgRentPerSqmMonth: 18, RenovationCostSqm: 1000},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	observability.InitLogger(cfg.App.Name, cfg.App.Env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry, continuing without tracing")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry tracing initialized")
		}
	}

	// Cache backend: memory unless Redis is configured and reachable
	var cacheProvider providers.CacheProvider
	if cfg.Cache.Backend == "redis" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
			cacheProvider = cache.NewMemoryAdapter()
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			logger.Info().Msg("Redis cache initialized")
		}
	} else {
		cacheProvider = cache.NewMemoryAdapter()
	}

	httpClient := &http.Client{Timeout: cfg.Sources.HTTPTimeout()}

	// Geocoding: BAN first, Nominatim as the paced fallback, results cached
	geocoder := geocoding.NewCachedProvider(
		geocoding.NewChainProvider(
			*logger,
			geocoding.NewBANProviderWithOptions(cfg.Sources.BANURL, httpClient),
			geocoding.NewNominatimProviderWithOptions(cfg.Sources.NominatimURL, httpClient, cfg.Enrichment.NominatimDelay()),
		),
		cacheProvider,
		cfg.Cache.GeocodeTTLSeconds,
	)

	placesProvider := places.NewOverpassProviderWithOptions(cfg.Sources.OverpassURL, httpClient)

	var marketData providers.MarketDataProvider
	switch cfg.MarketData.Provider {
	case "postgres":
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			logger.Warn().Err(err).Msg("Postgres unavailable, falling back to static market references")
			marketData = marketdata.NewStaticProvider(staticMarketReferences)
		} else {
			defer pgClient.Close()
			marketData = marketdata.NewPostgresProvider(pgClient)
			logger.Info().Msg("Postgres market data provider initialized")
		}
	default:
		marketData = marketdata.NewStaticProvider(staticMarketReferences)
	}

	listingSources := []sources.ListingSource{
		leboncoin.New(cfg.Sources.LeBonCoinURL, httpClient, geocoder, *logger),
		seloger.New(cfg.Sources.SeLogerURL, httpClient, *logger),
	}

	enricher := services.NewEnrichmentService(
		geocoder,
		placesProvider,
		cacheProvider,
		cfg.Cache.NeighborhoodSeconds,
		cfg.Enrichment.Concurrency,
		*logger,
	)
	aggregator := services.NewAggregatorService(
		listingSources,
		cacheProvider,
		enricher,
		cfg.Cache.QueryTTLSeconds,
		cfg.Search.SearchTimeout(),
		*logger,
	)
	analysis := services.NewMarketAnalysisService(marketData, *logger)

	srv := mcp.NewServer(aggregator, analysis, enricher, cfg.Search.MaxResults, *logger)
	if err := srv.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("MCP server stopped with error")
		os.Exit(1)
	}
}
