package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	nominatimUserAgent  = "immo-mcp/1.0 (github.com/immodex/immo-mcp)"
)

// NominatimProvider implements GeocodingProvider against the public
// Nominatim instance. Used as the fallback tier; the instance's usage policy
// caps clients at one request per second, so calls are paced.
type NominatimProvider struct {
	httpClient *http.Client
	baseURL    string
	delay      time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewNominatimProvider creates a new Nominatim geocoding provider
func NewNominatimProvider(delay time.Duration) providers.GeocodingProvider {
	return NewNominatimProviderWithOptions(defaultNominatimURL, nil, delay)
}

// NewNominatimProviderWithOptions allows overriding base URL and HTTP client (used for tests)
func NewNominatimProviderWithOptions(baseURL string, httpClient *http.Client, delay time.Duration) providers.GeocodingProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultNominatimURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &NominatimProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
		delay:      delay,
	}
}

// Geocode resolves an address through Nominatim. Returns (nil, nil) on no match.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}

	if err := p.pace(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", trimmed)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "fr")
	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nominatim request returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("malformed coordinates in nominatim response")
	}

	return &entities.Coordinates{Lat: lat, Lon: lon}, nil
}

// pace blocks until the politeness interval since the last call has elapsed
func (p *NominatimProvider) pace(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}

	p.mu.Lock()
	wait := p.delay - time.Since(p.lastCall)
	if wait < 0 {
		// A negative wait (first call, or idle longer than the delay) must not
		// drag lastCall into the past and disable pacing for later calls
		wait = 0
	}
	p.lastCall = time.Now().Add(wait)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Nominatim serializes coordinates as strings
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}
