package services

import (
	"context"
	"sort"
	"time"

	"github.com/immodex/immo-mcp/internal/domain/entities"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/rs/zerolog"
)

// MarketAnalysisService computes market summaries over aggregated listings
// and gross yield estimates from injected reference data. It carries no
// market constants of its own.
type MarketAnalysisService struct {
	marketData providers.MarketDataProvider
	logger     zerolog.Logger
}

// NewMarketAnalysisService creates a market analysis service
func NewMarketAnalysisService(marketData providers.MarketDataProvider, logger zerolog.Logger) *MarketAnalysisService {
	return &MarketAnalysisService{
		marketData: marketData,
		logger:     logger.With().Str("service", "market_analysis").Logger(),
	}
}

// Analyze summarizes a listing set. Listings without a surface contribute to
// price stats but not to surface or per-sqm stats.
func (s *MarketAnalysisService) Analyze(listings []*entities.Listing, location, transactionType string) *entities.MarketStats {
	stats := &entities.MarketStats{
		Location:        location,
		TransactionType: transactionType,
		TotalListings:   len(listings),
		RoomsCount:      map[int]int{},
		PropertyTypes:   map[string]int{},
		AnalysisDate:    time.Now(),
	}

	var prices, perSqm, surfaces []float64
	sourcesSeen := map[string]struct{}{}
	for _, listing := range listings {
		if listing.Price > 0 {
			prices = append(prices, listing.Price)
		}
		if v := listing.PricePerSqm(); v > 0 {
			perSqm = append(perSqm, v)
		}
		if listing.SurfaceArea != nil && *listing.SurfaceArea > 0 {
			surfaces = append(surfaces, *listing.SurfaceArea)
		}
		if listing.Rooms != nil {
			stats.RoomsCount[*listing.Rooms]++
		}
		if listing.PropertyType != "" {
			stats.PropertyTypes[listing.PropertyType]++
		}
		if listing.Source != "" {
			sourcesSeen[listing.Source] = struct{}{}
		}
	}

	stats.PriceStats = valueStats(prices)
	stats.PricePerSqmStats = valueStats(perSqm)
	stats.SurfaceStats = valueStats(surfaces)

	stats.Sources = make([]string, 0, len(sourcesSeen))
	for source := range sourcesSeen {
		stats.Sources = append(stats.Sources, source)
	}
	sort.Strings(stats.Sources)

	return stats
}

// EstimateYield estimates the gross annual rental yield for a city. When
// pricePerSqm is zero the city's reference purchase price stands in, giving
// the area-level estimate.
func (s *MarketAnalysisService) EstimateYield(ctx context.Context, city string, pricePerSqm float64) (*entities.YieldEstimate, error) {
	ref, err := s.marketData.Reference(ctx, city)
	if err != nil {
		return nil, err
	}

	if pricePerSqm <= 0 {
		pricePerSqm = ref.AvgPricePerSqm
	}
	estimate := &entities.YieldEstimate{
		City:               ref.City,
		PricePerSqm:        pricePerSqm,
		AvgRentPerSqmMonth: ref.AvgRentPerSqmMonth,
		RenovationCostSqm:  ref.RenovationCostSqm,
	}
	if pricePerSqm > 0 {
		estimate.GrossAnnualYieldPct = ref.AvgRentPerSqmMonth * 12 / pricePerSqm * 100
	}
	// Yield of a renovation play: the same rent against purchase plus works
	if renovated := pricePerSqm + ref.RenovationCostSqm; renovated > 0 && ref.RenovationCostSqm > 0 {
		estimate.RenovatedAnnualYieldPct = ref.AvgRentPerSqmMonth * 12 / renovated * 100
	}

	s.logger.Debug().
		Str("city", ref.City).
		Float64("yield_pct", estimate.GrossAnnualYieldPct).
		Msg("yield estimated")
	return estimate, nil
}

func valueStats(values []float64) entities.ValueStats {
	if len(values) == 0 {
		return entities.ValueStats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return entities.ValueStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    sum / float64(len(sorted)),
		Median: median,
	}
}
