package entities

import "time"

// ValueStats summarizes one numeric dimension of a listing set
type ValueStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
}

// MarketStats is the market summary computed over one aggregated result set
type MarketStats struct {
	Location         string         `json:"location"`
	TransactionType  string         `json:"transaction_type"`
	TotalListings    int            `json:"total_listings"`
	PriceStats       ValueStats     `json:"price_stats"`
	PricePerSqmStats ValueStats     `json:"price_per_sqm_stats"`
	SurfaceStats     ValueStats     `json:"surface_stats"`
	RoomsCount       map[int]int    `json:"rooms_distribution,omitempty"`
	PropertyTypes    map[string]int `json:"property_types,omitempty"`
	Sources          []string       `json:"sources"`
	AnalysisDate     time.Time      `json:"analysis_date"`
}

// YieldEstimate is a gross rental yield estimate for a sale listing or a
// whole area, derived from injected market reference data. The renovated
// variant assumes the city's reference renovation budget is added to the
// purchase price.
type YieldEstimate struct {
	City                    string  `json:"city"`
	PricePerSqm             float64 `json:"price_per_sqm"`
	AvgRentPerSqmMonth      float64 `json:"avg_rent_per_sqm_month"`
	GrossAnnualYieldPct     float64 `json:"gross_annual_yield_pct"`
	RenovationCostSqm       float64 `json:"renovation_cost_sqm,omitempty"`
	RenovatedAnnualYieldPct float64 `json:"renovated_annual_yield_pct,omitempty"`
}
