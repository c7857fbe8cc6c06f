package marketdata

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/immodex/immo-mcp/internal/domain/providers"
	"github.com/immodex/immo-mcp/internal/infrastructure/clients/postgres"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

// PostgresProvider implements MarketDataProvider over a market_references
// table maintained outside this service
type PostgresProvider struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPostgresProvider creates a Postgres-backed market data provider
func NewPostgresProvider(client *postgres.Client) providers.MarketDataProvider {
	return &PostgresProvider{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Reference returns the reference values for a city
func (p *PostgresProvider) Reference(ctx context.Context, city string) (*providers.MarketReference, error) {
	query, args, err := p.db.Select(
		"city", "avg_price_per_sqm", "avg_rent_per_sqm_month", "renovation_cost_per_sqm",
	).From("market_references").
		Where(goqu.L("lower(city)").Eq(normalizeCity(city))).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build market reference query", err)
	}

	row := p.client.DB().QueryRowContext(ctx, query, args...)

	var ref providers.MarketReference
	err = row.Scan(&ref.City, &ref.AvgPricePerSqm, &ref.AvgRentPerSqmMonth, &ref.RenovationCostSqm)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("no market reference for city: " + city)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load market reference", err)
	}
	return &ref, nil
}
