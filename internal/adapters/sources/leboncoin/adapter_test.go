package leboncoin_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immodex/immo-mcp/internal/adapters/sources/leboncoin"
	"github.com/immodex/immo-mcp/internal/domain/entities"
)

// fixedGeocoder always resolves to the same point
type fixedGeocoder struct {
	coords *entities.Coordinates
}

func (g *fixedGeocoder) Geocode(ctx context.Context, address string) (*entities.Coordinates, error) {
	return g.coords, nil
}

func floatPtr(v float64) *float64 { return &v }

func TestAdapter_Search(t *testing.T) {
	ctx := context.Background()
	query := entities.SearchQuery{Location: "Paris", TransactionType: entities.TransactionRent}

	t.Run("normalizes well-formed ads", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ads":[{
				"list_id": 123456,
				"subject": "T2 lumineux proche métro",
				"price": [850],
				"body": "Bel appartement",
				"url": "https://www.leboncoin.fr/ad/123456",
				"location": {"city": "Paris"},
				"attributes": [
					{"key": "square", "value": "45"},
					{"key": "rooms", "value": "2"},
					{"key": "real_estate_type", "value": "2"}
				],
				"images": {"urls": [{"href": "https://img.leboncoin.fr/1.jpg"}]}
			}]}`))
		}))
		defer server.Close()

		adapter := leboncoin.New(server.URL, server.Client(), nil, zerolog.Nop())
		listings, err := adapter.Search(ctx, query)

		require.NoError(t, err)
		require.Len(t, listings, 1)
		got := listings[0]
		assert.Equal(t, "leboncoin_123456", got.ID)
		assert.Equal(t, "leboncoin", got.Source)
		assert.Equal(t, "T2 lumineux proche métro", got.Title)
		assert.Equal(t, 850.0, got.Price)
		assert.Equal(t, "EUR", got.Currency)
		assert.Equal(t, "Paris", got.Location)
		assert.Equal(t, "appartement", got.PropertyType)
		require.NotNil(t, got.SurfaceArea)
		assert.Equal(t, 45.0, *got.SurfaceArea)
		require.NotNil(t, got.Rooms)
		assert.Equal(t, 2, *got.Rooms)
		assert.Equal(t, []string{"https://img.leboncoin.fr/1.jpg"}, got.Images)
	})

	t.Run("drops unparseable ads individually", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ads":[
				{"subject": "Sans prix"},
				{"price": 850, "body": "sans titre"},
				{"list_id": "7", "subject": "Valide", "price": "650 €"}
			]}`))
		}))
		defer server.Close()

		adapter := leboncoin.New(server.URL, server.Client(), nil, zerolog.Nop())
		listings, err := adapter.Search(ctx, query)

		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, "leboncoin_7", listings[0].ID)
		assert.Equal(t, 650.0, listings[0].Price)
	})

	t.Run("falls back to price_cents when price is absent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ads":[{"list_id": 9, "subject": "T1", "price_cents": 72050}]}`))
		}))
		defer server.Close()

		adapter := leboncoin.New(server.URL, server.Client(), nil, zerolog.Nop())
		listings, err := adapter.Search(ctx, query)

		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.InDelta(t, 720.50, listings[0].Price, 0.001)
	})

	t.Run("sends a coordinate area block when the geocoder resolves the city", func(t *testing.T) {
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			_, _ = w.Write([]byte(`{"ads":[]}`))
		}))
		defer server.Close()

		geocoder := &fixedGeocoder{coords: &entities.Coordinates{Lat: 48.8566, Lon: 2.3522}}
		adapter := leboncoin.New(server.URL, server.Client(), geocoder, zerolog.Nop())

		fullQuery := entities.SearchQuery{
			Location:        "Paris",
			TransactionType: entities.TransactionSale,
			MinPrice:        floatPtr(200000),
			MaxPrice:        floatPtr(400000),
		}
		_, err := adapter.Search(ctx, fullQuery)
		require.NoError(t, err)

		filters := captured["filters"].(map[string]any)
		location := filters["location"].(map[string]any)
		area := location["area"].(map[string]any)
		assert.InDelta(t, 48.8566, area["lat"].(float64), 0.0001)
		assert.InDelta(t, 2.3522, area["lng"].(float64), 0.0001)

		enums := filters["enums"].(map[string]any)
		assert.Equal(t, []any{"1"}, enums["real_estate_type"])

		ranges := filters["ranges"].(map[string]any)
		price := ranges["price"].(map[string]any)
		assert.Equal(t, 200000.0, price["min"])
		assert.Equal(t, 400000.0, price["max"])
	})

	t.Run("non-2xx responses are a source failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		adapter := leboncoin.New(server.URL, server.Client(), nil, zerolog.Nop())
		_, err := adapter.Search(ctx, query)
		assert.Error(t, err)
	})
}
