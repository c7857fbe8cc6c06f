package sources

import (
	"context"

	"github.com/immodex/immo-mcp/internal/domain/entities"
)

// ListingSource is implemented once per external listing site. Search
// translates the generic query into the site's own filter representation and
// normalizes whatever comes back into canonical Listings. A source error
// means that source contributed nothing; it never fails the aggregation.
type ListingSource interface {
	// Name identifies the source in listing ids and per-source reports
	Name() string

	// Search returns the normalized listings matching the query
	Search(ctx context.Context, query entities.SearchQuery) ([]*entities.Listing, error)
}
