package leboncoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/immodex/immo-mcp/internal/adapters/sources/payload"
	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/immodex/immo-mcp/internal/domain/sources"
	"github.com/rs/zerolog"
)

const (
	sourceName        = "leboncoin"
	defaultBaseURL    = "https://api.leboncoin.fr/finder/search"
	defaultTimeout    = 30 * time.Second
	locationRadiusM   = 15000
	realEstateCatgory = "9"
)

// Adapter implements ListingSource for the LeBonCoin finder API. The API
// filters by coordinates when it can, so the query location is pre-resolved
// through the geocoder; when that fails the bare place label is sent and the
// site's own matching takes over.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	geocoder   providers.GeocodingProvider
	logger     zerolog.Logger
}

// New creates a LeBonCoin source adapter
func New(baseURL string, httpClient *http.Client, geocoder providers.GeocodingProvider, logger zerolog.Logger) sources.ListingSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Adapter{
		baseURL:    baseURL,
		httpClient: httpClient,
		geocoder:   geocoder,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// Name identifies the source
func (a *Adapter) Name() string {
	return sourceName
}

// Search queries the finder API and normalizes whatever ads come back.
// Individual ads that cannot be minimally parsed are dropped, not the batch.
func (a *Adapter) Search(ctx context.Context, query entities.SearchQuery) ([]*entities.Listing, error) {
	body, err := json.Marshal(a.buildPayload(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Ads []any `json:"ads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	listings := make([]*entities.Listing, 0, len(envelope.Ads))
	dropped := 0
	for _, ad := range envelope.Ads {
		listing := a.parseAd(ad)
		if listing == nil {
			dropped++
			continue
		}
		listings = append(listings, listing)
	}

	a.logger.Debug().
		Int("parsed", len(listings)).
		Int("dropped", dropped).
		Msg("search batch normalized")
	return listings, nil
}

func (a *Adapter) buildPayload(ctx context.Context, query entities.SearchQuery) map[string]any {
	enums := map[string]any{
		"ad_type": []string{"offer"},
	}
	if query.TransactionType == entities.TransactionSale {
		enums["real_estate_type"] = []string{"1"}
	} else {
		enums["real_estate_type"] = []string{"2"}
	}

	ranges := map[string]any{}
	if query.MinPrice != nil || query.MaxPrice != nil {
		priceRange := map[string]any{}
		if query.MinPrice != nil {
			priceRange["min"] = *query.MinPrice
		}
		if query.MaxPrice != nil {
			priceRange["max"] = *query.MaxPrice
		}
		ranges["price"] = priceRange
	}
	if query.MinSurface != nil || query.MaxSurface != nil {
		surfaceRange := map[string]any{}
		if query.MinSurface != nil {
			surfaceRange["min"] = *query.MinSurface
		}
		if query.MaxSurface != nil {
			surfaceRange["max"] = *query.MaxSurface
		}
		ranges["square"] = surfaceRange
	}
	if query.Rooms != nil {
		ranges["rooms"] = map[string]any{"min": *query.Rooms, "max": *query.Rooms}
	}

	location := map[string]any{
		"locations": []map[string]any{{"label": query.Location}},
	}
	if coords := a.resolveCoordinates(ctx, query.Location); coords != nil {
		location["area"] = map[string]any{
			"lat":    coords.Lat,
			"lng":    coords.Lon,
			"radius": locationRadiusM,
		}
	}

	return map[string]any{
		"filters": map[string]any{
			"category": map[string]any{"id": realEstateCatgory},
			"enums":    enums,
			"ranges":   ranges,
			"location": location,
		},
		"limit":      100,
		"sort_by":    "time",
		"sort_order": "desc",
	}
}

// resolveCoordinates is best-effort: a geocoding failure only means the
// request goes out with the place label alone
func (a *Adapter) resolveCoordinates(ctx context.Context, location string) *entities.Coordinates {
	if a.geocoder == nil {
		return nil
	}
	coords, err := a.geocoder.Geocode(ctx, location)
	if err != nil {
		a.logger.Warn().Str("location", location).Err(err).Msg("location pre-resolution failed, sending raw label")
		return nil
	}
	return coords
}

// parseAd normalizes one ad of any known shape, returning nil when the ad
// lacks a title or a parseable price
func (a *Adapter) parseAd(ad any) *entities.Listing {
	fields, ok := ad.(map[string]any)
	if !ok {
		return nil
	}

	title := payload.String(fields["subject"])
	if title == "" {
		return nil
	}

	price, ok := payload.Number(fields["price"])
	if !ok {
		if cents, centsOK := payload.Number(fields["price_cents"]); centsOK {
			price, ok = cents/100, true
		}
	}
	if !ok || price < 0 {
		return nil
	}

	attrs := payload.AttributesMap(fields["attributes"])

	providerID := payload.String(fields["list_id"])
	if providerID == "" {
		if id, idOK := payload.Number(fields["list_id"]); idOK {
			providerID = fmt.Sprintf("%.0f", id)
		}
	}
	if providerID == "" {
		providerID = payload.String(fields["id"])
	}
	if providerID == "" {
		providerID = uuid.NewString()
	}

	now := time.Now()
	listing := &entities.Listing{
		ID:           fmt.Sprintf("%s_%s", sourceName, providerID),
		Source:       sourceName,
		Title:        title,
		Price:        price,
		Currency:     "EUR",
		Location:     parseLocation(fields["location"]),
		PropertyType: propertyType(attrs),
		SurfaceArea:  payload.OptionalPositive(attrs, "square"),
		Rooms:        payload.OptionalCount(attrs, "rooms"),
		Bedrooms:     payload.OptionalCount(attrs, "bedrooms"),
		Description:  payload.String(fields["body"]),
		Images:       parseImages(fields["images"]),
		URL:          payload.String(fields["url"]),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return listing
}

// location arrives as a map with a city, a bare string, or a list of either
func parseLocation(v any) string {
	switch value := v.(type) {
	case map[string]any:
		return payload.String(value["city"])
	case string:
		return value
	case []any:
		if len(value) > 0 {
			return parseLocation(value[0])
		}
	}
	return ""
}

// images arrive either as {"urls": [{"href": …}]} or as a flat list
func parseImages(v any) []string {
	var raw []any
	switch value := v.(type) {
	case map[string]any:
		raw, _ = value["urls"].([]any)
	case []any:
		raw = value
	}

	images := make([]string, 0, len(raw))
	for _, item := range raw {
		switch img := item.(type) {
		case map[string]any:
			if href := payload.String(img["href"]); href != "" {
				images = append(images, href)
			}
		case string:
			images = append(images, img)
		}
	}
	return images
}

var propertyTypeLabels = map[string]string{
	"1": "maison",
	"2": "appartement",
	"3": "terrain",
	"4": "parking",
	"5": "autre",
}

func propertyType(attrs map[string]any) string {
	code := payload.String(attrs["real_estate_type"])
	if code == "" {
		if n, ok := payload.Number(attrs["real_estate_type"]); ok {
			code = fmt.Sprintf("%.0f", n)
		}
	}
	if label, ok := propertyTypeLabels[code]; ok {
		return label
	}
	return ""
}
