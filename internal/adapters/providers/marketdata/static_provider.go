package marketdata

import (
	"context"
	"strings"

	"github.com/immodex/immo-mcp/internal/domain/providers"
	apperrors "github.com/immodex/immo-mcp/pkg/errors"
)

// StaticProvider implements MarketDataProvider over an injected in-memory
// table. Used offline and as the test double; the numbers come from the
// caller, never from this package.
type StaticProvider struct {
	refs map[string]providers.MarketReference
}

// NewStaticProvider creates a static market data provider from a reference list
func NewStaticProvider(refs []providers.MarketReference) providers.MarketDataProvider {
	table := make(map[string]providers.MarketReference, len(refs))
	for _, ref := range refs {
		table[normalizeCity(ref.City)] = ref
	}
	return &StaticProvider{refs: table}
}

// Reference returns the reference values for a city
func (p *StaticProvider) Reference(ctx context.Context, city string) (*providers.MarketReference, error) {
	ref, ok := p.refs[normalizeCity(city)]
	if !ok {
		return nil, apperrors.NewNotFoundError("no market reference for city: " + city)
	}
	return &ref, nil
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
