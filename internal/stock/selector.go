package stock

import (
	"slices"

	"github.com/shopspring/decimal"
)

// SelectEligibleBatches filters ledger to the eligible batches of the queried product (and depot,
// when given) and orders them by expiry ascending. Rows without an expiry come after every dated
// row; the sort is stable so ties keep ledger order. A query without a product yields nothing.
func SelectEligibleBatches(ledger []LedgerEntry, q Query) []Candidate {
	if !q.HasProduct() {
		return []Candidate{}
	}
	out := make([]Candidate, 0)
	for _, e := range ledger {
		if !q.matches(e) || !e.Eligible() {
			continue
		}
		if q.BatchFilter != nil && !q.BatchFilter(e.Batch) {
			continue
		}
		out = append(out, Candidate{Batch: e.Batch, ExpiryDate: e.ExpiryDate, Quantity: e.Quantity})
	}
	slices.SortStableFunc(out, compareExpiry)
	return out
}

func compareExpiry(a, b Candidate) int {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate == nil:
		return 0
	case a.ExpiryDate == nil:
		return 1
	case b.ExpiryDate == nil:
		return -1
	default:
		return a.ExpiryDate.Compare(*b.ExpiryDate)
	}
}

// matches applies the product and depot filters. productID wins over productCode.
func (q Query) matches(e LedgerEntry) bool {
	switch {
	case q.ProductID != nil:
		if e.ProductID == nil || *e.ProductID != *q.ProductID {
			return false
		}
	case q.ProductCode != "":
		if e.ProductCode != q.ProductCode {
			return false
		}
	default:
		return false
	}
	if q.DepotID != nil {
		return e.DepotID != nil && *e.DepotID == *q.DepotID
	}
	return true
}

// CurrentStock is the quantity of the FEFO default when there is one. Otherwise it is the sum of
// every ledger row matching the product (and depot), batch or not, which is zero without matches.
func CurrentStock(ledger []LedgerEntry, q Query, candidates []Candidate) decimal.Decimal {
	if len(candidates) > 0 {
		return candidates[0].Quantity
	}
	total := decimal.Zero
	if !q.HasProduct() {
		return total
	}
	for _, e := range ledger {
		if q.matches(e) {
			total = total.Add(e.Quantity)
		}
	}
	return total
}

// BuildSnapshot runs the selector and the current-stock rule over one ledger snapshot.
func BuildSnapshot(ledger []LedgerEntry, q Query) Snapshot {
	candidates := SelectEligibleBatches(ledger, q)
	snap := Snapshot{
		ProductID:    q.ProductID,
		ProductCode:  q.ProductCode,
		DepotID:      q.DepotID,
		Candidates:   candidates,
		CurrentStock: CurrentStock(ledger, q, candidates),
	}
	if len(candidates) > 0 {
		head := candidates[0]
		snap.Default = &head
	}
	return snap
}

// Allocate consumes candidates in order until qty is covered. Whatever cannot be covered is
// reported as shortfall. Non-positive requests allocate nothing.
func Allocate(candidates []Candidate, qty decimal.Decimal) Allocation {
	result := Allocation{
		Requested: qty,
		Picks:     make([]Pick, 0),
		Allocated: decimal.Zero,
		Shortfall: decimal.Zero,
	}
	if !qty.IsPositive() {
		return result
	}
	remaining := qty
	for _, c := range candidates {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.Quantity)
		if !take.IsPositive() {
			continue
		}
		result.Picks = append(result.Picks, Pick{Batch: c.Batch, ExpiryDate: c.ExpiryDate, Quantity: take})
		result.Allocated = result.Allocated.Add(take)
		remaining = remaining.Sub(take)
	}
	result.Shortfall = remaining
	return result
}

// NumericBatch accepts batch identifiers made only of ASCII digits. Some order-entry flows only
// allow those.
func NumericBatch(batch string) bool {
	if batch == "" {
		return false
	}
	for i := 0; i < len(batch); i++ {
		if batch[i] < '0' || batch[i] > '9' {
			return false
		}
	}
	return true
}
