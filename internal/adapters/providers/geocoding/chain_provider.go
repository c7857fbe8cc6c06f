package geocoding

import (
	"context"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/rs/zerolog"
)

// ChainProvider tries an ordered list of geocoding tiers. A tier that errors
// or finds no match falls through to the next; when every tier is exhausted
// the chain reports "no match" rather than an error, so callers degrade to
// unenriched listings.
type ChainProvider struct {
	tiers  []providers.GeocodingProvider
	names  []string
	logger zerolog.Logger
}

// NewChainProvider creates a fallback chain over the given tiers, in order
func NewChainProvider(logger zerolog.Logger, tiers ...providers.GeocodingProvider) providers.GeocodingProvider {
	names := make([]string, len(tiers))
	for i := range tiers {
		names[i] = tierName(i)
	}
	return &ChainProvider{
		tiers:  tiers,
		names:  names,
		logger: logger,
	}
}

// Geocode resolves the address through the first tier that produces a match
func (p *ChainProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	for i, tier := range p.tiers {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		coords, err := tier.Geocode(ctx, address)
		if err != nil {
			p.logger.Debug().
				Str("tier", p.names[i]).
				Str("address", address).
				Err(err).
				Msg("geocoding tier failed, falling through")
			continue
		}
		if coords != nil {
			return coords, nil
		}
	}
	return nil, nil
}

func tierName(i int) string {
	switch i {
	case 0:
		return "primary"
	case 1:
		return "fallback"
	default:
		return "extra"
	}
}
