package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Weights of the category scores in the overall neighborhood score
const (
	weightTransit   = 0.40
	weightAmenities = 0.30
	weightSafety    = 0.20
	weightEducation = 0.10
)

var enrichmentCategories = []string{
	providers.PlaceCategoryTransit,
	providers.PlaceCategoryAmenity,
	providers.PlaceCategorySafety,
	providers.PlaceCategoryEducation,
}

// EnrichmentService attaches coordinates and neighborhood data to listings.
// Enrichment is strictly best-effort: a listing that cannot be geocoded, or a
// POI category that cannot be fetched, degrades to absent data and never fails
// the search that requested it.
type EnrichmentService struct {
	geocoder    providers.GeocodingProvider
	places      providers.PlacesProvider
	cache       providers.CacheProvider
	poiTTL      int
	concurrency int
	logger      zerolog.Logger
}

// NewEnrichmentService creates an enrichment service. cache may be nil to
// disable POI caching.
func NewEnrichmentService(
	geocoder providers.GeocodingProvider,
	places providers.PlacesProvider,
	cache providers.CacheProvider,
	poiTTLSeconds int,
	concurrency int,
	logger zerolog.Logger,
) *EnrichmentService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &EnrichmentService{
		geocoder:    geocoder,
		places:      places,
		cache:       cache,
		poiTTL:      poiTTLSeconds,
		concurrency: concurrency,
		logger:      logger.With().Str("service", "enrichment").Logger(),
	}
}

// EnrichAll enriches listings in place with bounded concurrency. It only
// returns an error when the context is cancelled; per-listing failures are
// logged and leave the listing unenriched.
func (s *EnrichmentService) EnrichAll(ctx context.Context, listings []*entities.Listing) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for _, listing := range listings {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			s.enrichOne(groupCtx, listing)
			return nil
		})
	}
	return group.Wait()
}

func (s *EnrichmentService) enrichOne(ctx context.Context, listing *entities.Listing) {
	if listing.Coordinates == nil {
		if listing.Location == "" || s.geocoder == nil {
			return
		}
		coords, err := s.geocoder.Geocode(ctx, listing.Location)
		if err != nil {
			s.logger.Warn().Str("listing_id", listing.ID).Err(err).Msg("geocoding failed, listing stays unenriched")
			return
		}
		if coords == nil {
			// No match for the address, nothing to anchor POI lookups on
			return
		}
		listing.SetCoordinates(coords)
	}

	info, err := s.NeighborhoodInfo(ctx, *listing.Coordinates)
	if err != nil {
		s.logger.Warn().Str("listing_id", listing.ID).Err(err).Msg("neighborhood lookup failed, listing stays unenriched")
		return
	}
	listing.SetNeighborhoodInfo(info)
}

// NeighborhoodInfo computes the neighborhood profile around a point. Results
// are cached per coordinate rounded to 3 decimals (roughly a city block), so
// listings in the same building share one set of POI queries.
func (s *EnrichmentService) NeighborhoodInfo(ctx context.Context, center entities.Coordinates) (*entities.NeighborhoodInfo, error) {
	cacheKey := fmt.Sprintf("poi:v1:%.3f,%.3f", center.Lat, center.Lon)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var info entities.NeighborhoodInfo
			if err := json.Unmarshal(cached, &info); err == nil {
				return &info, nil
			}
		}
	}

	byCategory := make(map[string][]providers.Place, len(enrichmentCategories))
	for _, category := range enrichmentCategories {
		places, err := s.places.NearbyPlaces(ctx, center, category)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Str("category", category).Err(err).Msg("place lookup failed, category left empty")
			places = nil
		}
		byCategory[category] = places
	}

	info := buildNeighborhoodInfo(byCategory)

	if s.cache != nil {
		if encoded, err := json.Marshal(info); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, s.poiTTL); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache neighborhood info")
			}
		}
	}
	return info, nil
}

func buildNeighborhoodInfo(byCategory map[string][]providers.Place) *entities.NeighborhoodInfo {
	transit := byCategory[providers.PlaceCategoryTransit]
	amenities := byCategory[providers.PlaceCategoryAmenity]
	safety := byCategory[providers.PlaceCategorySafety]
	education := byCategory[providers.PlaceCategoryEducation]

	info := &entities.NeighborhoodInfo{
		TransitScore:   transitScore(transit),
		AmenitiesScore: amenitiesScore(amenities),
		SafetyScore:    safetyScore(safety),
		EducationScore: educationScore(education),
		TransitStops:   toPlaceRefs(transit),
		Amenities:      toPlaceRefs(amenities),
		SafetyPoints:   toPlaceRefs(safety),
		Schools:        toPlaceRefs(education),
	}
	info.Score = weightTransit*info.TransitScore +
		weightAmenities*info.AmenitiesScore +
		weightSafety*info.SafetyScore +
		weightEducation*info.EducationScore
	info.Highlights = highlights(info)
	return info
}

// transitScore grades on the distance to the nearest stop. Providers return
// places sorted by distance, but nearest() does not rely on that.
func transitScore(places []providers.Place) float64 {
	place, ok := nearest(places)
	if !ok {
		return 0
	}
	switch {
	case place.DistanceM <= 300:
		return 100
	case place.DistanceM <= 600:
		return 75
	case place.DistanceM <= 1000:
		return 50
	default:
		return 25
	}
}

// amenitiesScore grades on the diversity of nearby amenity kinds rather than
// their raw count: five restaurants are worth less than a restaurant plus a
// supermarket.
func amenitiesScore(places []providers.Place) float64 {
	kinds := make(map[string]struct{})
	for _, place := range places {
		kinds[place.Kind] = struct{}{}
	}
	score := float64(len(kinds)) * 20
	if score > 100 {
		score = 100
	}
	return score
}

// safetyScore is a coarse proxy based on police station proximity. Absence of
// one within the search radius grades the same as a distant one.
func safetyScore(places []providers.Place) float64 {
	place, ok := nearest(places)
	if !ok {
		return 25
	}
	switch {
	case place.DistanceM <= 500:
		return 100
	case place.DistanceM <= 1000:
		return 75
	case place.DistanceM <= 2000:
		return 50
	default:
		return 25
	}
}

func educationScore(places []providers.Place) float64 {
	score := 0.0
	for _, kind := range []string{"school", "university"} {
		for _, place := range places {
			if place.Kind == kind {
				score += 50
				break
			}
		}
	}
	return score
}

func nearest(places []providers.Place) (providers.Place, bool) {
	if len(places) == 0 {
		return providers.Place{}, false
	}
	best := places[0]
	for _, place := range places[1:] {
		if place.DistanceM < best.DistanceM {
			best = place
		}
	}
	return best, true
}

func toPlaceRefs(places []providers.Place) []entities.PlaceRef {
	if len(places) == 0 {
		return nil
	}
	refs := make([]entities.PlaceRef, 0, len(places))
	for _, place := range places {
		refs = append(refs, entities.PlaceRef{
			Name:      place.Name,
			Category:  place.Kind,
			DistanceM: place.DistanceM,
		})
	}
	return refs
}

func highlights(info *entities.NeighborhoodInfo) []string {
	var lines []string
	if len(info.TransitStops) > 0 {
		stop := info.TransitStops[0]
		lines = append(lines, fmt.Sprintf("%s (%s) at %.0f m", stop.Name, stop.Category, stop.DistanceM))
	}
	if n := len(info.Amenities); n > 0 {
		lines = append(lines, fmt.Sprintf("%d amenities nearby", n))
	}
	if len(info.Schools) > 0 {
		school := info.Schools[0]
		lines = append(lines, fmt.Sprintf("%s (%s) at %.0f m", school.Name, school.Category, school.DistanceM))
	}
	return lines
}
