package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestSearchQuery_Normalize(t *testing.T) {
	query := entities.SearchQuery{Location: "  Paris  ", PropertyType: " appartement "}
	query.Normalize()

	assert.Equal(t, "Paris", query.Location)
	assert.Equal(t, "appartement", query.PropertyType)
	assert.Equal(t, entities.TransactionRent, query.TransactionType)
}

func TestSearchQuery_Validate(t *testing.T) {
	t.Run("accepts a minimal valid query", func(t *testing.T) {
		query := entities.SearchQuery{Location: "Paris"}
		assert.NoError(t, query.Validate())
	})

	t.Run("rejects invalid queries with a validation error", func(t *testing.T) {
		cases := map[string]entities.SearchQuery{
			"missing location":      {},
			"blank location":        {Location: "   "},
			"negative min price":    {Location: "Paris", MinPrice: floatPtr(-1)},
			"min price above max":   {Location: "Paris", MinPrice: floatPtr(900), MaxPrice: floatPtr(500)},
			"min surface above max": {Location: "Paris", MinSurface: floatPtr(80), MaxSurface: floatPtr(40)},
			"negative rooms":        {Location: "Paris", Rooms: intPtr(-2)},
			"unknown transaction":   {Location: "Paris", TransactionType: "lease"},
		}
		for name, query := range cases {
			t.Run(name, func(t *testing.T) {
				err := query.Validate()
				assert.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
			})
		}
	})

	t.Run("equal min and max bounds are valid", func(t *testing.T) {
		query := entities.SearchQuery{
			Location: "Paris",
			MinPrice: floatPtr(800),
			MaxPrice: floatPtr(800),
		}
		assert.NoError(t, query.Validate())
	})
}

func TestSearchQuery_CacheKey(t *testing.T) {
	t.Run("value-identical queries collide", func(t *testing.T) {
		a := entities.SearchQuery{Location: "Paris", MinPrice: floatPtr(500), Rooms: intPtr(2)}
		b := entities.SearchQuery{Location: "Paris", MinPrice: floatPtr(500), Rooms: intPtr(2)}

		assert.Equal(t, a.CacheKey(false), b.CacheKey(false))
	})

	t.Run("location case and whitespace do not change the key", func(t *testing.T) {
		a := entities.SearchQuery{Location: "Paris"}
		b := entities.SearchQuery{Location: "  PARIS "}

		assert.Equal(t, a.CacheKey(false), b.CacheKey(false))
	})

	t.Run("any differing field changes the key", func(t *testing.T) {
		base := entities.SearchQuery{Location: "Paris"}
		variants := []entities.SearchQuery{
			{Location: "Lyon"},
			{Location: "Paris", MinPrice: floatPtr(500)},
			{Location: "Paris", MaxPrice: floatPtr(500)},
			{Location: "Paris", PropertyType: "maison"},
			{Location: "Paris", Rooms: intPtr(3)},
			{Location: "Paris", TransactionType: entities.TransactionSale},
		}
		for _, variant := range variants {
			assert.NotEqual(t, base.CacheKey(false), variant.CacheKey(false))
		}
	})

	t.Run("absent transaction type keys like the rent default", func(t *testing.T) {
		a := entities.SearchQuery{Location: "Paris"}
		b := entities.SearchQuery{Location: "Paris", TransactionType: entities.TransactionRent}

		assert.Equal(t, a.CacheKey(false), b.CacheKey(false))
	})

	t.Run("enriched and plain searches never share a key", func(t *testing.T) {
		query := entities.SearchQuery{Location: "Paris"}
		assert.NotEqual(t, query.CacheKey(false), query.CacheKey(true))
	})
}
