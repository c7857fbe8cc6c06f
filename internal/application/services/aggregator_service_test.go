package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immodex/immo-mcp/internal/adapters/cache"
	"github.com/immodex/immo-mcp/internal/application/services"
	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/sources"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

// countingSource is a ListingSource fake that records how often it was called
type countingSource struct {
	name     string
	listings []*entities.Listing
	err      error
	calls    atomic.Int32
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Search(ctx context.Context, query entities.SearchQuery) ([]*entities.Listing, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

// blockingSource never returns before its context is done
type blockingSource struct{}

func (s *blockingSource) Name() string { return "blocking" }

func (s *blockingSource) Search(ctx context.Context, query entities.SearchQuery) ([]*entities.Listing, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// blockingGeocoder never resolves before its context is done
type blockingGeocoder struct{}

func (g *blockingGeocoder) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newAggregator(timeout time.Duration, srcs ...sources.ListingSource) *services.AggregatorService {
	return services.NewAggregatorService(srcs, cache.NewMemoryAdapter(), nil, 300, timeout, zerolog.Nop())
}

func TestAggregatorService_Search(t *testing.T) {
	ctx := context.Background()
	query := entities.SearchQuery{Location: "Paris"}

	t.Run("merges and deduplicates across sources", func(t *testing.T) {
		first := &countingSource{
			name:     "leboncoin",
			listings: []*entities.Listing{listing("leboncoin_1", "T2 lumineux", 850, surfacePtr(45), "Paris")},
		}
		second := &countingSource{
			name: "seloger",
			listings: []*entities.Listing{
				listing("seloger_1", "T2 lumineux", 850, surfacePtr(45), "Paris"),
				listing("seloger_2", "Studio calme", 650, surfacePtr(22), "Paris"),
			},
		}
		service := newAggregator(0, first, second)

		result, err := service.Search(ctx, query)

		require.NoError(t, err)
		assert.Len(t, result.Listings, 2)
		assert.Equal(t, "leboncoin_1", result.Listings[0].ID)
		assert.Equal(t, "seloger_2", result.Listings[1].ID)
		assert.Equal(t, []services.SourceReport{
			{Source: "leboncoin", Count: 1},
			{Source: "seloger", Count: 2},
		}, result.Sources)
		assert.False(t, result.FromCache)
	})

	t.Run("invalid query is rejected before any source is called", func(t *testing.T) {
		src := &countingSource{name: "leboncoin"}
		service := newAggregator(0, src)

		_, err := service.Search(ctx, entities.SearchQuery{})

		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, int32(0), src.calls.Load())
	})

	t.Run("a failing source degrades the result instead of failing it", func(t *testing.T) {
		broken := &countingSource{name: "leboncoin", err: errors.New("upstream 503")}
		healthy := &countingSource{
			name:     "seloger",
			listings: []*entities.Listing{listing("seloger_1", "T3", 1200, surfacePtr(62), "Paris")},
		}
		service := newAggregator(0, broken, healthy)

		result, err := service.Search(ctx, query)

		require.NoError(t, err)
		assert.Len(t, result.Listings, 1)
		assert.Equal(t, []services.SourceReport{
			{Source: "leboncoin", Failed: true},
			{Source: "seloger", Count: 1},
		}, result.Sources)
		assert.False(t, result.AllSourcesFailed())
	})

	t.Run("all sources failing yields an empty result, not an error", func(t *testing.T) {
		first := &countingSource{name: "leboncoin", err: errors.New("down")}
		second := &countingSource{name: "seloger", err: errors.New("down")}
		service := newAggregator(0, first, second)

		result, err := service.Search(ctx, query)

		require.NoError(t, err)
		assert.Empty(t, result.Listings)
		assert.True(t, result.AllSourcesFailed())
	})

	t.Run("a fully failed search is not cached", func(t *testing.T) {
		src := &countingSource{name: "leboncoin", err: errors.New("down")}
		service := newAggregator(0, src)

		_, err := service.Search(ctx, query)
		require.NoError(t, err)
		_, err = service.Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, int32(2), src.calls.Load())
	})

	t.Run("repeat query within TTL is served from cache without source calls", func(t *testing.T) {
		src := &countingSource{
			name:     "leboncoin",
			listings: []*entities.Listing{listing("leboncoin_1", "T2", 850, surfacePtr(45), "Paris")},
		}
		service := newAggregator(0, src)

		first, err := service.Search(ctx, query)
		require.NoError(t, err)
		second, err := service.Search(ctx, query)
		require.NoError(t, err)

		assert.Equal(t, int32(1), src.calls.Load())
		assert.False(t, first.FromCache)
		assert.True(t, second.FromCache)
		assert.Equal(t, first.Listings[0].ID, second.Listings[0].ID)
	})

	t.Run("value-identical queries share the cache entry", func(t *testing.T) {
		src := &countingSource{
			name:     "leboncoin",
			listings: []*entities.Listing{listing("leboncoin_1", "T2", 850, surfacePtr(45), "Paris")},
		}
		service := newAggregator(0, src)

		_, err := service.Search(ctx, entities.SearchQuery{Location: "Paris"})
		require.NoError(t, err)
		_, err = service.Search(ctx, entities.SearchQuery{Location: "  PARIS "})
		require.NoError(t, err)

		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("exceeding the deadline returns a timeout error", func(t *testing.T) {
		service := newAggregator(30*time.Millisecond, &blockingSource{})

		_, err := service.Search(ctx, query)

		assert.True(t, apperrors.IsTimeout(err))
	})

	t.Run("a deadline expiring during enrichment is a timeout, not a partial result", func(t *testing.T) {
		src := &countingSource{
			name:     "leboncoin",
			listings: []*entities.Listing{listing("leboncoin_1", "T2", 850, surfacePtr(45), "Paris")},
		}
		enricher := services.NewEnrichmentService(&blockingGeocoder{}, &stubPlaces{}, nil, 3600, 2, zerolog.Nop())
		store := cache.NewMemoryAdapter()
		service := services.NewAggregatorService(
			[]sources.ListingSource{src}, store, enricher, 300, 50*time.Millisecond, zerolog.Nop(),
		)

		_, err := service.SearchEnriched(ctx, query)

		assert.True(t, apperrors.IsTimeout(err))

		// The unenriched listings must not sit in the cache under the
		// enriched key for a full TTL
		normalized := query
		normalized.Normalize()
		_, cacheErr := store.Get(context.Background(), normalized.CacheKey(true))
		assert.Error(t, cacheErr)
	})
}
