package places

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
)

const (
	defaultOverpassURL = "https://overpass-api.de/api/interpreter"
	defaultHTTPTimeout = 15 * time.Second
	maxPlacesPerQuery  = 10
)

// OverpassProvider implements PlacesProvider against the Overpass API.
// Each category maps to a fixed set of OSM selectors and radii.
type OverpassProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewOverpassProvider creates a new Overpass places provider
func NewOverpassProvider() providers.PlacesProvider {
	return NewOverpassProviderWithOptions(defaultOverpassURL, nil)
}

// NewOverpassProviderWithOptions allows overriding base URL and HTTP client (used for tests)
func NewOverpassProviderWithOptions(baseURL string, httpClient *http.Client) providers.PlacesProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOverpassURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OverpassProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// selector is one OSM node filter with its search radius in meters
type selector struct {
	filter  string
	radiusM int
	kind    string
}

func categorySelectors(category string) []selector {
	switch category {
	case providers.PlaceCategoryTransit:
		return []selector{
			{filter: `node["public_transport"="station"]["station"="subway"]`, radiusM: 1000, kind: "metro"},
			{filter: `node["highway"="bus_stop"]`, radiusM: 500, kind: "bus"},
		}
	case providers.PlaceCategoryAmenity:
		return []selector{
			{filter: `node["shop"="supermarket"]`, radiusM: 800, kind: "supermarket"},
			{filter: `node["amenity"="restaurant"]`, radiusM: 500, kind: "restaurant"},
			{filter: `node["amenity"="pharmacy"]`, radiusM: 1000, kind: "pharmacy"},
			{filter: `node["leisure"="park"]`, radiusM: 1000, kind: "park"},
			{filter: `node["amenity"="hospital"]`, radiusM: 2000, kind: "hospital"},
		}
	case providers.PlaceCategorySafety:
		return []selector{
			{filter: `node["amenity"="police"]`, radiusM: 2000, kind: "police"},
		}
	case providers.PlaceCategoryEducation:
		return []selector{
			{filter: `node["amenity"="school"]`, radiusM: 1500, kind: "school"},
			{filter: `node["amenity"="university"]`, radiusM: 5000, kind: "university"},
		}
	default:
		return nil
	}
}

// NearbyPlaces queries one category of points of interest around a center,
// sorted by distance, capped at ten
func (p *OverpassProvider) NearbyPlaces(ctx context.Context, center entities.Coordinates, category string) ([]providers.Place, error) {
	selectors := categorySelectors(category)
	if len(selectors) == 0 {
		return nil, fmt.Errorf("unknown place category: %s", category)
	}

	var b strings.Builder
	b.WriteString("[out:json][timeout:10];(")
	for _, sel := range selectors {
		fmt.Fprintf(&b, "%s(around:%d,%f,%f);", sel.filter, sel.radiusM, center.Lat, center.Lon)
	}
	b.WriteString(");out;")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("overpass request returned status %d", resp.StatusCode)
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}

	places := make([]providers.Place, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		places = append(places, providers.Place{
			Name:      name,
			Category:  category,
			Kind:      elementKind(el.Tags, selectors),
			DistanceM: haversineMeters(center.Lat, center.Lon, el.Lat, el.Lon),
		})
	}

	sort.Slice(places, func(i, j int) bool {
		return places[i].DistanceM < places[j].DistanceM
	})
	if len(places) > maxPlacesPerQuery {
		places = places[:maxPlacesPerQuery]
	}
	return places, nil
}

func elementKind(tags map[string]string, selectors []selector) string {
	for _, sel := range selectors {
		if strings.Contains(sel.filter, `"`+tags["amenity"]+`"`) && tags["amenity"] != "" {
			return sel.kind
		}
		if strings.Contains(sel.filter, `"`+tags["shop"]+`"`) && tags["shop"] != "" {
			return sel.kind
		}
		if strings.Contains(sel.filter, `"`+tags["leisure"]+`"`) && tags["leisure"] != "" {
			return sel.kind
		}
	}
	if tags["station"] == "subway" {
		return "metro"
	}
	if tags["highway"] == "bus_stop" {
		return "bus"
	}
	return ""
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000
	p := math.Pi / 180
	a := 0.5 - math.Cos((lat2-lat1)*p)/2 + math.Cos(lat1*p)*math.Cos(lat2*p)*(1-math.Cos((lon2-lon1)*p))/2
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}
