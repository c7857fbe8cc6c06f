package geocoding_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immodex/immo-mcp/internal/adapters/cache"
	"github.com/immodex/immo-mcp/internal/adapters/providers/geocoding"
	"github.com/immodex/immo-mcp/internal/domain/entities"
)

// stubTier is a GeocodingProvider fake with call counting
type stubTier struct {
	coords *entities.Coordinates
	err    error
	calls  int
	mu     sync.Mutex
}

func (t *stubTier) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return t.coords, t.err
}

func TestBANProvider_Geocode(t *testing.T) {
	ctx := context.Background()

	t.Run("parses the best feature with GeoJSON lon-first order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Paris", r.URL.Query().Get("q"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[2.3522,48.8566]}}]}`))
		}))
		defer server.Close()

		provider := geocoding.NewBANProviderWithOptions(server.URL, server.Client())
		coords, err := provider.Geocode(ctx, "Paris")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InDelta(t, 48.8566, coords.Lat, 0.0001)
		assert.InDelta(t, 2.3522, coords.Lon, 0.0001)
	})

	t.Run("no feature means no match, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"features":[]}`))
		}))
		defer server.Close()

		coords, err := geocoding.NewBANProviderWithOptions(server.URL, server.Client()).Geocode(ctx, "Nowhere")

		assert.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("retries once on a transient server error", func(t *testing.T) {
		var attempts int
		var mu sync.Mutex
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			failFirst := attempts == 1
			mu.Unlock()
			if failFirst {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[4.8357,45.764]}}]}`))
		}))
		defer server.Close()

		coords, err := geocoding.NewBANProviderWithOptions(server.URL, server.Client()).Geocode(ctx, "Lyon")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.Equal(t, 2, attempts)
	})

	t.Run("empty address is rejected", func(t *testing.T) {
		_, err := geocoding.NewBANProvider().Geocode(ctx, "   ")
		assert.Error(t, err)
	})
}

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := context.Background()

	t.Run("parses string coordinates and sends the user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			assert.Equal(t, "fr", r.URL.Query().Get("countrycodes"))
			_, _ = w.Write([]byte(`[{"lat":"43.2965","lon":"5.3698"}]`))
		}))
		defer server.Close()

		provider := geocoding.NewNominatimProviderWithOptions(server.URL, server.Client(), 0)
		coords, err := provider.Geocode(ctx, "Marseille")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InDelta(t, 43.2965, coords.Lat, 0.0001)
		assert.InDelta(t, 5.3698, coords.Lon, 0.0001)
	})

	t.Run("empty result list means no match", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		coords, err := geocoding.NewNominatimProviderWithOptions(server.URL, server.Client(), 0).Geocode(ctx, "Nowhere")

		assert.NoError(t, err)
		assert.Nil(t, coords)
	})

	t.Run("consecutive calls are paced by the politeness delay", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"lat":"43.2965","lon":"5.3698"}]`))
		}))
		defer server.Close()

		provider := geocoding.NewNominatimProviderWithOptions(server.URL, server.Client(), 50*time.Millisecond)

		// The first call on a cold provider goes out immediately; each call
		// after it waits out the full delay even though the provider started
		// with a zero-value last-call time
		start := time.Now()
		_, err := provider.Geocode(ctx, "Marseille")
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 50*time.Millisecond)

		_, err = provider.Geocode(ctx, "Marseille")
		require.NoError(t, err)
		_, err = provider.Geocode(ctx, "Marseille")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	})
}

func TestChainProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	match := &entities.Coordinates{Lat: 48.85, Lon: 2.35}

	t.Run("first matching tier wins, later tiers untouched", func(t *testing.T) {
		primary := &stubTier{coords: match}
		fallback := &stubTier{coords: &entities.Coordinates{Lat: 1, Lon: 1}}

		coords, err := geocoding.NewChainProvider(logger, primary, fallback).Geocode(ctx, "Paris")

		require.NoError(t, err)
		assert.Equal(t, match, coords)
		assert.Equal(t, 0, fallback.calls)
	})

	t.Run("a failing tier falls through to the next", func(t *testing.T) {
		primary := &stubTier{err: errors.New("ban down")}
		fallback := &stubTier{coords: match}

		coords, err := geocoding.NewChainProvider(logger, primary, fallback).Geocode(ctx, "Paris")

		require.NoError(t, err)
		assert.Equal(t, match, coords)
	})

	t.Run("a no-match tier falls through too", func(t *testing.T) {
		primary := &stubTier{}
		fallback := &stubTier{coords: match}

		coords, err := geocoding.NewChainProvider(logger, primary, fallback).Geocode(ctx, "Paris")

		require.NoError(t, err)
		assert.Equal(t, match, coords)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("an exhausted chain reports no match without error", func(t *testing.T) {
		primary := &stubTier{err: errors.New("down")}
		fallback := &stubTier{}

		coords, err := geocoding.NewChainProvider(logger, primary, fallback).Geocode(ctx, "Nowhere")

		assert.NoError(t, err)
		assert.Nil(t, coords)
	})
}

func TestCachedProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	match := &entities.Coordinates{Lat: 48.85, Lon: 2.35}

	t.Run("repeat lookups hit the cache, not the inner provider", func(t *testing.T) {
		inner := &stubTier{coords: match}
		provider := geocoding.NewCachedProvider(inner, cache.NewMemoryAdapter(), 86400)

		first, err := provider.Geocode(ctx, "Paris")
		require.NoError(t, err)
		second, err := provider.Geocode(ctx, " PARIS  ")
		require.NoError(t, err)

		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, first, second)
	})

	t.Run("no-match results are not cached", func(t *testing.T) {
		inner := &stubTier{}
		provider := geocoding.NewCachedProvider(inner, cache.NewMemoryAdapter(), 86400)

		_, err := provider.Geocode(ctx, "Nowhere")
		require.NoError(t, err)
		_, err = provider.Geocode(ctx, "Nowhere")
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls)
	})

	t.Run("inner errors pass through untouched", func(t *testing.T) {
		inner := &stubTier{err: errors.New("down")}
		provider := geocoding.NewCachedProvider(inner, cache.NewMemoryAdapter(), 86400)

		_, err := provider.Geocode(ctx, "Paris")
		assert.Error(t, err)
	})
}
