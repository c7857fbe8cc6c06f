package geocoding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
)

// CachedProvider wraps a GeocodingProvider with cache-aside lookups keyed on
// the hashed, casefolded address. Addresses are stable, so the TTL is much
// longer than the query cache's.
type CachedProvider struct {
	inner      providers.GeocodingProvider
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewCachedProvider creates a caching decorator around a geocoding provider
func NewCachedProvider(inner providers.GeocodingProvider, cache providers.CacheProvider, ttlSeconds int) providers.GeocodingProvider {
	return &CachedProvider{
		inner:      inner,
		cache:      cache,
		ttlSeconds: ttlSeconds,
	}
}

// Geocode returns cached coordinates when available, delegating otherwise
func (p *CachedProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	cacheKey := "geo:v1:addr:" + hashKey(strings.ToLower(strings.TrimSpace(address)))

	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var coords entities.Coordinates
			if err := json.Unmarshal(cached, &coords); err == nil {
				return &coords, nil
			}
		}
	}

	coords, err := p.inner.Geocode(ctx, address)
	if err != nil || coords == nil {
		return coords, err
	}

	if p.cache != nil {
		if payload, err := json.Marshal(coords); err == nil {
			_ = p.cache.Set(ctx, cacheKey, payload, p.ttlSeconds)
		}
	}
	return coords, nil
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
