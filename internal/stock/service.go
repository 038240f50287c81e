package stock

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// AllocationLine asks for a FEFO split of one order-entry line.
type AllocationLine struct {
	ProductID   *int64
	ProductCode string
	DepotID     *int64
	Quantity    decimal.Decimal
}

// LineAllocation pairs a line's snapshot with its FEFO allocation.
type LineAllocation struct {
	Line       int        `json:"line"`
	Snapshot   Snapshot   `json:"snapshot"`
	Allocation Allocation `json:"allocation"`
}

// Service exposes the batch selector over freshly fetched ledgers.
type Service struct {
	source      LedgerSource
	logger      *slog.Logger
	concurrency int
}

// NewService constructs a Service. concurrency bounds parallel ledger fetches in Suggest.
func NewService(source LedgerSource, logger *slog.Logger, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger, concurrency: concurrency}
}

// Lookup returns the FEFO snapshot for one product. Without a product there is nothing to fetch
// and an empty snapshot comes back.
func (s *Service) Lookup(ctx context.Context, q Query) (Snapshot, error) {
	if !q.HasProduct() {
		return BuildSnapshot(nil, q), nil
	}
	ledger, err := s.source.Ledger(ctx, q)
	if err != nil {
		s.logger.Warn("stock ledger lookup failed", slog.Any("error", err))
		return Snapshot{}, err
	}
	return BuildSnapshot(ledger, q), nil
}

// Suggest allocates every line FEFO-first. Ledgers are fetched concurrently; the result keeps the
// input order. Any fetch failure fails the whole call.
func (s *Service) Suggest(ctx context.Context, lines []AllocationLine, filter BatchPredicate) ([]LineAllocation, error) {
	out := make([]LineAllocation, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			q := Query{
				ProductID:   line.ProductID,
				ProductCode: line.ProductCode,
				DepotID:     line.DepotID,
				BatchFilter: filter,
			}
			snap, err := s.Lookup(gctx, q)
			if err != nil {
				return err
			}
			out[i] = LineAllocation{
				Line:       i + 1,
				Snapshot:   snap,
				Allocation: Allocate(snap.Candidates, line.Quantity),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
