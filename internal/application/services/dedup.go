package services

import (
	"strings"

	"github.com/immodex/immo-mcp/internal/domain/entities"
)

// dedupKey identifies one real-world ad across sources. Exact match only:
// a fuzzy key would risk merging genuinely different ads, while a missed
// near-duplicate just costs the caller one extra row.
type dedupKey struct {
	title      string
	price      float64
	surface    float64
	hasSurface bool
	location   string
}

func keyOf(listing *entities.Listing) dedupKey {
	key := dedupKey{
		title:    strings.ToLower(strings.TrimSpace(listing.Title)),
		price:    listing.Price,
		location: strings.ToLower(strings.TrimSpace(listing.Location)),
	}
	if listing.SurfaceArea != nil {
		key.surface = *listing.SurfaceArea
		key.hasSurface = true
	}
	return key
}

// Dedupe removes duplicate listings, keeping the first occurrence of each
// duplicate group in input order. Pure and idempotent.
func Dedupe(listings []*entities.Listing) []*entities.Listing {
	seen := make(map[dedupKey]struct{}, len(listings))
	unique := make([]*entities.Listing, 0, len(listings))

	for _, listing := range listings {
		key := keyOf(listing)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, listing)
	}
	return unique
}
