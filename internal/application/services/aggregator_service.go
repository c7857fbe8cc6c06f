package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/immodex/immo-mcp/internal/domain/sources"
	"github.com/immodex/immo-mcp/internal/infrastructure/observability"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// SourceReport tells how one source fared during a search. It lets callers
// distinguish a genuinely empty market from a degraded result where a source
// was down.
type SourceReport struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Failed bool   `json:"failed"`
}

// SearchResult is the outcome of one aggregated search
type SearchResult struct {
	Listings  []*entities.Listing `json:"listings"`
	Sources   []SourceReport      `json:"sources"`
	FromCache bool                `json:"from_cache"`
}

// AllSourcesFailed reports whether no source produced a usable batch
func (r *SearchResult) AllSourcesFailed() bool {
	for _, report := range r.Sources {
		if !report.Failed {
			return false
		}
	}
	return len(r.Sources) > 0
}

// AggregatorService runs a search across all registered sources, merges and
// deduplicates the batches, and caches the outcome. Source failures degrade
// the result instead of failing it; only an invalid query or an exhausted
// deadline aborts a search.
type AggregatorService struct {
	sources  []sources.ListingSource
	cache    providers.CacheProvider
	enricher *EnrichmentService
	queryTTL int
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewAggregatorService creates the aggregator. cache may be nil to disable
// query caching, enricher may be nil to disable enriched searches.
func NewAggregatorService(
	listingSources []sources.ListingSource,
	cache providers.CacheProvider,
	enricher *EnrichmentService,
	queryTTLSeconds int,
	timeout time.Duration,
	logger zerolog.Logger,
) *AggregatorService {
	return &AggregatorService{
		sources:  listingSources,
		cache:    cache,
		enricher: enricher,
		queryTTL: queryTTLSeconds,
		timeout:  timeout,
		logger:   logger.With().Str("service", "aggregator").Logger(),
	}
}

// Search runs an aggregated search without enrichment
func (s *AggregatorService) Search(ctx context.Context, query entities.SearchQuery) (*SearchResult, error) {
	return s.search(ctx, query, false)
}

// SearchEnriched runs an aggregated search and enriches the deduplicated
// listings with coordinates and neighborhood data
func (s *AggregatorService) SearchEnriched(ctx context.Context, query entities.SearchQuery) (*SearchResult, error) {
	return s.search(ctx, query, s.enricher != nil)
}

func (s *AggregatorService) search(ctx context.Context, query entities.SearchQuery, enriched bool) (*SearchResult, error) {
	query.Normalize()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "aggregator.search")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("search.location", query.Location),
		attribute.Bool("search.enriched", enriched),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	searchID := uuid.NewString()
	logger := s.logger.With().Str("search_id", searchID).Str("location", query.Location).Logger()

	cacheKey := query.CacheKey(enriched)
	if result := s.fromCache(ctx, cacheKey); result != nil {
		logger.Debug().Msg("search served from cache")
		return result, nil
	}

	result := s.fanOut(ctx, query)
	if err := ctx.Err(); err != nil {
		timeoutErr := apperrors.NewTimeoutError("search deadline exceeded", err)
		observability.RecordError(span, timeoutErr)
		return nil, timeoutErr
	}

	merged := len(result.Listings)
	result.Listings = Dedupe(result.Listings)

	if enriched {
		if err := s.enricher.EnrichAll(ctx, result.Listings); err != nil {
			timeoutErr := apperrors.NewTimeoutError("search deadline exceeded during enrichment", err)
			observability.RecordError(span, timeoutErr)
			return nil, timeoutErr
		}
		// EnrichAll degrades per-listing failures to nil, including ones caused
		// by the deadline. Recheck it so a half-enriched result is never
		// returned as success or cached under the enriched key.
		if err := ctx.Err(); err != nil {
			timeoutErr := apperrors.NewTimeoutError("search deadline exceeded during enrichment", err)
			observability.RecordError(span, timeoutErr)
			return nil, timeoutErr
		}
	}

	logger.Info().
		Int("merged", merged).
		Int("unique", len(result.Listings)).
		Bool("enriched", enriched).
		Msg("search aggregated")

	// A result where every source failed is not cached; serving it for a
	// full TTL would hide the outage from retries
	if !result.AllSourcesFailed() {
		s.store(ctx, cacheKey, result)
	}
	return result, nil
}

// fanOut queries every source concurrently and gathers whatever comes back.
// Batches land in registration order so the merged result is deterministic
// for a given set of source responses.
func (s *AggregatorService) fanOut(ctx context.Context, query entities.SearchQuery) *SearchResult {
	batches := make([][]*entities.Listing, len(s.sources))
	reports := make([]SourceReport, len(s.sources))

	var wg sync.WaitGroup
	for i, source := range s.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listings, err := source.Search(ctx, query)
			if err != nil {
				s.logger.Warn().Str("source", source.Name()).Err(err).Msg("source failed, continuing without it")
				reports[i] = SourceReport{Source: source.Name(), Failed: true}
				return
			}
			batches[i] = listings
			reports[i] = SourceReport{Source: source.Name(), Count: len(listings)}
		}()
	}
	wg.Wait()

	result := &SearchResult{Sources: reports}
	for _, batch := range batches {
		result.Listings = append(result.Listings, batch...)
	}
	if result.Listings == nil {
		result.Listings = []*entities.Listing{}
	}
	return result
}

func (s *AggregatorService) fromCache(ctx context.Context, key string) *SearchResult {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	var result SearchResult
	if err := json.Unmarshal(cached, &result); err != nil {
		s.logger.Warn().Err(err).Msg("discarding undecodable cached search result")
		return nil
	}
	result.FromCache = true
	return &result
}

func (s *AggregatorService) store(ctx context.Context, key string, result *SearchResult) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode search result for cache")
		return
	}
	if err := s.cache.Set(ctx, key, encoded, s.queryTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache search result")
	}
}
