package providers

import (
	"context"
)

// MarketReference holds per-city reference values used by investment
// estimates. The numbers are business data supplied by an implementation,
// never constants in code.
type MarketReference struct {
	City               string
	AvgPricePerSqm     float64
	AvgRentPerSqmMonth float64
	RenovationCostSqm  float64
}

// MarketDataProvider supplies market reference data for a city.
// Implementations: a static in-memory table (offline default and test
// double) and a Postgres-backed table.
type MarketDataProvider interface {
	Reference(ctx context.Context, city string) (*MarketReference, error)
}
