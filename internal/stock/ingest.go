package stock

import (
	"strings"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
)

// RawLedgerRow is a stock-ledger row as the inventory service sends it. Several field names have
// been used for the same value over time; NormalizeLedger resolves them in declaration order.
type RawLedgerRow struct {
	ProductID   *upstream.LooseInt64 `json:"product_id"`
	ProductCode *string              `json:"product_code"`

	DepotID     *upstream.LooseInt64 `json:"depot_id"`
	WarehouseID *upstream.LooseInt64 `json:"warehouse_id"`

	Batch       *string `json:"batch"`
	BatchNumber *string `json:"batch_number"`
	BatchNo     *string `json:"batch_no"`

	ExpiryDate *string `json:"expiry_date"`
	Expiry     *string `json:"expiry"`
	ExpDate    *string `json:"exp_date"`

	Quantity          *upstream.LooseDecimal `json:"quantity"`
	AvailableQuantity *upstream.LooseDecimal `json:"available_quantity"`
	Qty               *upstream.LooseDecimal `json:"qty"`
}

// NormalizeLedger converts raw rows to canonical entries. It never fails: an unreadable expiry is
// treated as missing, which sorts the batch last. Blank identifiers and quantities count as absent.
func NormalizeLedger(rows []RawLedgerRow) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Normalize())
	}
	return out
}

// Normalize resolves field aliases for one row.
func (r RawLedgerRow) Normalize() LedgerEntry {
	e := LedgerEntry{
		ProductID:   r.ProductID.Ptr(),
		ProductCode: strings.TrimSpace(deref(r.ProductCode)),
		DepotID:     upstream.FirstID(r.DepotID, r.WarehouseID),
		Batch:       strings.TrimSpace(firstString(r.Batch, r.BatchNumber, r.BatchNo)),
		ExpiryDate:  upstream.ParseDate(firstString(r.ExpiryDate, r.Expiry, r.ExpDate)),
	}
	e.Quantity, _ = upstream.FirstDecimal(r.Quantity, r.AvailableQuantity, r.Qty)
	return e
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
