package seloger

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
	"github.com/immodex/immo-mcp/internal/domain/sources"
	"github.com/rs/zerolog"
)

const (
	sourceName     = "seloger"
	defaultBaseURL = "https://api.seloger.com/api/v2/annonces/_search"
	defaultTimeout = 30 * time.Second
	listingBaseURL = "https://www.seloger.com/annonces"
)

// Adapter implements ListingSource for the SeLoger search API, which takes
// its filters as a flat criteria list
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a SeLoger source adapter
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) sources.ListingSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Adapter{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With().Str("source", sourceName).Logger(),
	}
}

// Name identifies the source
func (a *Adapter) Name() string {
	return sourceName
}

// Search queries the annonces API and normalizes the returned items.
// Individual items that cannot be minimally parsed are dropped, not the batch.
func (a *Adapter) Search(ctx context.Context, query entities.SearchQuery) ([]*entities.Listing, error) {
	body, err := json.Marshal(buildPayload(query))
	if err != nil {
		return nil, fmt.Errorf("failed to encode search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	listings := make([]*entities.Listing, 0, len(envelope.Items))
	dropped := 0
	for _, item := range envelope.Items {
		listing := parseItem(item)
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

type criterion struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func buildPayload(query entities.SearchQuery) map[string]any {
	criteria := []criterion{
		{Type: "city", Value: query.Location},
		{Type: "transactionType", Value: transactionValue(query.TransactionType)},
	}
	if query.MinPrice != nil {
		criteria = append(criteria, criterion{Type: "minPrice", Value: *query.MinPrice})
	}
	if query.MaxPrice != nil {
		criteria = append(criteria, criterion{Type: "maxPrice", Value: *query.MaxPrice})
	}
	if query.PropertyType != "" {
		criteria = append(criteria, criterion{Type: "realtyTypes", Value: []string{realtyType(query.PropertyType)}})
	}
	if query.MinSurface != nil {
		criteria = append(criteria, criterion{Type: "minSurface", Value: *query.MinSurface})
	}
	if query.MaxSurface != nil {
		criteria = append(criteria, criterion{Type: "maxSurface", Value: *query.MaxSurface})
	}
	if query.Rooms != nil {
		criteria = append(criteria, criterion{Type: "rooms", Value: *query.Rooms})
	}

	return map[string]any{
		"pageIndex": 1,
		"pageSize":  50,
		"query":     map[string]any{"criteria": criteria},
		"sortBy":    "relevance",
		"sortOrder": "desc",
	}
}

func transactionValue(t string) string {
	if t == entities.TransactionSale {
		return "sale"
	}
	return "rent"
}

var realtyTypes = map[string]string{
	"appartement": "apartment",
	"maison":      "house",
	"terrain":     "land",
}

func realtyType(propertyType string) string {
	if mapped, ok := realtyTypes[propertyType]; ok {
		return mapped
	}
	return "apartment"
}

// parseItem normalizes one item, returning nil when it lacks a title or a
// parseable price
func parseItem(item map[string]any) *entities.Listing {
	title := payload.String(item["title"])
	if title == "" {
		return nil
	}
	price, ok := payload.Number(item["price"])
	if !ok || price < 0 {
		return nil
	}

	providerID := payload.String(item["id"])
	if providerID == "" {
		if id, idOK := payload.Number(item["id"]); idOK {
			providerID = fmt.Sprintf("%.0f", id)
		}
	}
	url := ""
	if providerID != "" {
		url = fmt.Sprintf("%s/%s.htm", listingBaseURL, providerID)
	} else {
		providerID = uuid.NewString()
	}

	now := time.Now()
	listing := &entities.Listing{
		ID:           fmt.Sprintf("%s_%s", sourceName, providerID),
		Source:       sourceName,
		Title:        title,
		Price:        price,
		Currency:     "EUR",
		Location:     nestedString(item, "city", "name"),
		PropertyType: nestedString(item, "propertyType", "label"),
		Description:  payload.String(item["description"]),
		Images:       parsePhotos(item["photos"]),
		URL:          url,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if surface, ok := payload.Number(item["surface"]); ok && surface > 0 {
		listing.SurfaceArea = &surface
	}
	if rooms, ok := payload.Int(item["rooms"]); ok && rooms >= 0 {
		listing.Rooms = &rooms
	}
	if bedrooms, ok := payload.Int(item["bedrooms"]); ok && bedrooms >= 0 {
		listing.Bedrooms = &bedrooms
	}

	// Some items carry coordinates already; keep them so enrichment can
	// skip the geocoding call
	if loc, ok := item["location"].(map[string]any); ok {
		lat, latOK := payload.Number(loc["latitude"])
		lon, lonOK := payload.Number(loc["longitude"])
		if latOK && lonOK {
			listing.Coordinates = &entities.Coordinates{Lat: lat, Lon: lon}
		}
	}

	return listing
}

func nestedString(item map[string]any, key, subKey string) string {
	if nested, ok := item[key].(map[string]any); ok {
		return payload.String(nested[subKey])
	}
	return payload.String(item[key])
}

func parsePhotos(v any) []string {
	raw, _ := v.([]any)
	photos := make([]string, 0, len(raw))
	for _, item := range raw {
		switch photo := item.(type) {
		case map[string]any:
			if url := payload.String(photo["url"]); url != "" {
				photos = append(photos, url)
			}
		case string:
			photos = append(photos, photo)
		}
	}
	return photos
}
