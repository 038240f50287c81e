// Package stock derives FEFO (first-expired-first-out) batch views from stock-ledger snapshots.
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one canonical stock-ledger row: quantity of a batch of a product at a depot.
type LedgerEntry struct {
	ProductID   *int64
	ProductCode string
	// DepotID is nil for central stock rows.
	DepotID    *int64
	Batch      string
	ExpiryDate *time.Time
	Quantity   decimal.Decimal
}

// Eligible reports whether the entry can be allocated from.
func (e LedgerEntry) Eligible() bool {
	return e.Batch != "" && e.Quantity.IsPositive()
}

// BatchPredicate narrows eligible batches for screens with stricter rules.
type BatchPredicate func(batch string) bool

// Query selects the ledger rows of one product, optionally at one depot.
type Query struct {
	ProductID   *int64
	ProductCode string
	DepotID     *int64
	// BatchFilter is applied on top of the eligibility rule when set.
	BatchFilter BatchPredicate
}

// HasProduct reports whether the query names a product at all.
func (q Query) HasProduct() bool {
	return q.ProductID != nil || q.ProductCode != ""
}

// Candidate is an eligible batch in FEFO order.
type Candidate struct {
	Batch      string          `json:"batch"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Snapshot is what a screen needs after picking a product: the ordered candidates,
// the FEFO default and the figure shown as current stock.
type Snapshot struct {
	ProductID    *int64          `json:"product_id,omitempty"`
	ProductCode  string          `json:"product_code,omitempty"`
	DepotID      *int64          `json:"depot_id,omitempty"`
	Candidates   []Candidate     `json:"candidates"`
	Default      *Candidate      `json:"default,omitempty"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

// Pick is the quantity taken from one batch by an allocation.
type Pick struct {
	Batch      string          `json:"batch"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Allocation is the FEFO split of a requested quantity across batches.
type Allocation struct {
	Requested decimal.Decimal `json:"requested"`
	Picks     []Pick          `json:"picks"`
	Allocated decimal.Decimal `json:"allocated"`
	Shortfall decimal.Decimal `json:"shortfall"`
}
