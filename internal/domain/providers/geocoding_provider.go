package providers

import (
	"context"

	"github.com/immodex/immo-mcp/internal/domain/entities"
)

// GeocodingProvider resolves a free-text address to coordinates.
// A (nil, nil) return means "no match" and callers must treat it as
// enrichment skipped, not as a failure.
type GeocodingProvider interface {
	Geocode(ctx context.Context, address string) (*entities.Coordinates, error)
}

// Place categories queried for neighborhood enrichment
const (
	PlaceCategoryTransit   = "transit"
	PlaceCategoryAmenity   = "amenity"
	PlaceCategorySafety    = "safety"
	PlaceCategoryEducation = "education"
)

// Place is one point of interest returned by a PlacesProvider
type Place struct {
	Name      string
	Category  string
	Kind      string
	DistanceM float64
}

// PlacesProvider finds points of interest of one category around a point.
// A failing category yields an empty list on the caller side, never a failed
// enrichment as a whole.
type PlacesProvider interface {
	NearbyPlaces(ctx context.Context, center entities.Coordinates, category string) ([]Place, error)
}
