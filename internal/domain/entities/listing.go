package entities

import (
	"time"
)

// Listing is the canonical representation of one property ad, whatever the
// originating source looked like. Adapters construct it, the enricher may add
// Coordinates and NeighborhoodInfo, everything downstream treats it read-only.
type Listing struct {
	ID               string            `json:"id"`
	Source           string            `json:"source"`
	Title            string            `json:"title"`
	Price            float64           `json:"price"`
	Currency         string            `json:"currency"`
	Location         string            `json:"location"`
	PropertyType     string            `json:"property_type"`
	SurfaceArea      *float64          `json:"surface_area,omitempty"`
	Rooms            *int              `json:"rooms,omitempty"`
	Bedrooms         *int              `json:"bedrooms,omitempty"`
	Description      string            `json:"description"`
	Images           []string          `json:"images"`
	URL              string            `json:"url"`
	Coordinates      *Coordinates      `json:"coordinates,omitempty"`
	NeighborhoodInfo *NeighborhoodInfo `json:"neighborhood_info,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PricePerSqm returns the price per square meter, or 0 when the listing has
// no usable surface.
func (l *Listing) PricePerSqm() float64 {
	if l.SurfaceArea == nil || *l.SurfaceArea <= 0 || l.Price <= 0 {
		return 0
	}
	return l.Price / *l.SurfaceArea
}

// SetCoordinates attaches geocoded coordinates to the listing
func (l *Listing) SetCoordinates(coords *Coordinates) {
	l.Coordinates = coords
	l.UpdatedAt = time.Now()
}

// SetNeighborhoodInfo attaches neighborhood enrichment to the listing
func (l *Listing) SetNeighborhoodInfo(info *NeighborhoodInfo) {
	l.NeighborhoodInfo = info
	l.UpdatedAt = time.Now()
}

// NeighborhoodInfo holds the enrichment computed around a listing's
// coordinates. Scores are 0-100; Score is the weighted overall.
type NeighborhoodInfo struct {
	TransitScore   float64    `json:"transit_score"`
	AmenitiesScore float64    `json:"amenities_score"`
	SafetyScore    float64    `json:"safety_score"`
	EducationScore float64    `json:"education_score"`
	Score          float64    `json:"score"`
	Highlights     []string   `json:"highlights,omitempty"`
	TransitStops   []PlaceRef `json:"transit_stops,omitempty"`
	Amenities      []PlaceRef `json:"amenities,omitempty"`
	SafetyPoints   []PlaceRef `json:"safety_points,omitempty"`
	Schools        []PlaceRef `json:"schools,omitempty"`
}

// PlaceRef is a nearby point of interest with its distance from the listing
type PlaceRef struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	DistanceM float64 `json:"distance_m"`
}
