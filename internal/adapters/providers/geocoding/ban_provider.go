package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/immodex/immo-mcp/pkg/retry"
)

const (
	defaultBANURL      = "https://api-adresse.data.gouv.fr/search/"
	defaultHTTPTimeout = 10 * time.Second
)

// BANProvider implements GeocodingProvider against the French national
// address base (api-adresse.data.gouv.fr). This is the primary tier.
type BANProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewBANProvider creates a new BAN geocoding provider
func NewBANProvider() providers.GeocodingProvider {
	return NewBANProviderWithOptions(defaultBANURL, nil)
}

// NewBANProviderWithOptions allows overriding base URL and HTTP client (used for tests)
func NewBANProviderWithOptions(baseURL string, httpClient *http.Client) providers.GeocodingProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBANURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &BANProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// Geocode resolves an address through the BAN search endpoint, taking the
// best-scored feature. Returns (nil, nil) when the base has no match.
func (p *BANProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	params := url.Values{}
	params.Set("q", trimmed)
	params.Set("limit", "1")
	params.Set("autocomplete", "0")
	reqURL := p.baseURL + "?" + params.Encode()

	var payload banResponse
	retryCfg := retry.Config{
		MaxAttempts:     2,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: defaultHTTPTimeout,
	}
	err := retry.Do(ctx, retryCfg, func() error {
		return p.fetch(ctx, reqURL, &payload)
	})
	if err != nil {
		return nil, err
	}

	if len(payload.Features) == 0 {
		return nil, nil
	}

	coords := payload.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return nil, fmt.Errorf("malformed geometry in BAN response")
	}

	// GeoJSON order is longitude first
	return &entities.Coordinates{Lat: coords[1], Lon: coords[0]}, nil
}

func (p *BANProvider) fetch(ctx context.Context, reqURL string, payload *banResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build BAN request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("BAN request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("BAN request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("failed to decode BAN response: %w", err)
	}
	return nil
}

type banResponse struct {
	Features []banFeature `json:"features"`
}

type banFeature struct {
	Geometry banGeometry `json:"geometry"`
}

type banGeometry struct {
	Coordinates []float64 `json:"coordinates"`
}
