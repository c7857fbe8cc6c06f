package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

// Transaction types accepted by SearchQuery
const (
	TransactionRent = "rent"
	TransactionSale = "sale"
)

// SearchQuery carries the criteria of one aggregated search. It doubles as
// the cache identity: two queries with identical field values (including
// absent optionals) always derive the same cache key.
type SearchQuery struct {
	Location        string   `json:"location"`
	MinPrice        *float64 `json:"min_price,omitempty"`
	MaxPrice        *float64 `json:"max_price,omitempty"`
	PropertyType    string   `json:"property_type,omitempty"`
	MinSurface      *float64 `json:"min_surface,omitempty"`
	MaxSurface      *float64 `json:"max_surface,omitempty"`
	Rooms           *int     `json:"rooms,omitempty"`
	TransactionType string   `json:"transaction_type,omitempty"`
}

// Normalize trims free-text fields and applies defaults in place
func (q *SearchQuery) Normalize() {
	q.Location = strings.TrimSpace(q.Location)
	q.PropertyType = strings.TrimSpace(q.PropertyType)
	if q.TransactionType == "" {
		q.TransactionType = TransactionRent
	}
}

// Validate checks the query contract. Violations are the only error class
// that aborts a search before any source is called.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Location) == "" {
		return apperrors.NewValidationError("location is required")
	}
	if q.MinPrice != nil && *q.MinPrice < 0 {
		return apperrors.NewValidationError("min_price must not be negative")
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return apperrors.NewValidationError("max_price must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return apperrors.NewValidationError("min_price must not exceed max_price")
	}
	if q.MinSurface != nil && q.MaxSurface != nil && *q.MinSurface > *q.MaxSurface {
		return apperrors.NewValidationError("min_surface must not exceed max_surface")
	}
	if q.Rooms != nil && *q.Rooms < 0 {
		return apperrors.NewValidationError("rooms must not be negative")
	}
	if q.TransactionType != "" && q.TransactionType != TransactionRent && q.TransactionType != TransactionSale {
		return apperrors.NewValidationError("transaction_type must be \"rent\" or \"sale\"")
	}
	return nil
}

// CacheKey derives the deterministic cache key for this query. Field order is
// fixed and absent optionals serialize to an empty slot, so value-identical
// queries always collide. Enriched and plain searches get distinct keys.
func (q SearchQuery) CacheKey(enriched bool) string {
	tx := q.TransactionType
	if tx == "" {
		tx = TransactionRent
	}

	var b strings.Builder
	b.WriteString("location=")
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Location)))
	b.WriteString("|min_price=")
	b.WriteString(formatOptFloat(q.MinPrice))
	b.WriteString("|max_price=")
	b.WriteString(formatOptFloat(q.MaxPrice))
	b.WriteString("|property_type=")
	b.WriteString(strings.ToLower(strings.TrimSpace(q.PropertyType)))
	b.WriteString("|min_surface=")
	b.WriteString(formatOptFloat(q.MinSurface))
	b.WriteString("|max_surface=")
	b.WriteString(formatOptFloat(q.MaxSurface))
	b.WriteString("|rooms=")
	b.WriteString(formatOptInt(q.Rooms))
	b.WriteString("|transaction_type=")
	b.WriteString(tx)
	b.WriteString("|enriched=")
	b.WriteString(strconv.FormatBool(enriched))

	sum := sha256.Sum256([]byte(b.String()))
	return "search:v1:" + hex.EncodeToString(sum[:])
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
