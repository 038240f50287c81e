package stock

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
)

// LedgerSource returns a fresh ledger snapshot for one product.
type LedgerSource interface {
	Ledger(ctx context.Context, q Query) ([]LedgerEntry, error)
}

// APISource reads the ledger from the inventory service's /stock-ledger endpoint.
type APISource struct {
	client *upstream.Client
}

// NewAPISource constructs an APISource.
func NewAPISource(client *upstream.Client) *APISource {
	return &APISource{client: client}
}

// Ledger fetches the rows of the queried product. The depot filter is forwarded as a hint; the
// selector applies it again so a server that ignores it still yields correct results.
func (s *APISource) Ledger(ctx context.Context, q Query) ([]LedgerEntry, error) {
	params := url.Values{}
	if q.ProductID != nil {
		params.Set("product_id", strconv.FormatInt(*q.ProductID, 10))
	} else if q.ProductCode != "" {
		params.Set("product_code", q.ProductCode)
	}
	if q.DepotID != nil {
		params.Set("depot_id", strconv.FormatInt(*q.DepotID, 10))
	}
	var rows upstream.List[RawLedgerRow]
	if err := s.client.GetJSON(ctx, "/stock-ledger", params, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return NormalizeLedger(rows), nil
}
