package loading

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
)

// RawOrder is an order row as the order service sends it. Collection, delivery and transfer
// screens read different endpoints that disagree on field names; Normalize resolves the aliases
// in declaration order, first non-blank wins.
type RawOrder struct {
	ID *upstream.LooseInt64 `json:"id"`

	LoadingNumber *string `json:"loading_number"`
	LoadingNo     *string `json:"loading_no"`

	LoadingDate *string `json:"loading_date"`
	OrderDate   *string `json:"order_date"`
	CreatedAt   *string `json:"created_at"`

	Status           *string `json:"status"`
	CollectionStatus *string `json:"collection_status"`
	DeliveryStatus   *string `json:"delivery_status"`

	CustomerName *string `json:"customer_name"`

	EmployeeName *string `json:"employee_name"`
	Salesman     *string `json:"salesman"`

	VehicleNumber *string `json:"vehicle_number"`
	VehicleNo     *string `json:"vehicle_no"`

	Area  *string `json:"area"`
	Route *string `json:"route"`

	TotalAmount *upstream.LooseDecimal `json:"total_amount"`
	Total       *upstream.LooseDecimal `json:"total"`

	CollectedAmount *upstream.LooseDecimal `json:"collected_amount"`
	Collected       *upstream.LooseDecimal `json:"collected"`

	PendingAmount *upstream.LooseDecimal `json:"pending_amount"`
	Pending       *upstream.LooseDecimal `json:"pending"`

	TotalValue *upstream.LooseDecimal `json:"total_value"`
}

// NormalizeOrders converts raw rows to canonical orders, keeping their order. Rows without a
// usable id are dropped: they cannot be grouped on their own or approved.
func NormalizeOrders(rows []RawOrder) []Order {
	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		if r.ID.Ptr() == nil {
			continue
		}
		out = append(out, r.Normalize())
	}
	return out
}

// Normalize resolves field aliases for one row. Missing amounts are zero; a missing pending
// amount is derived as total minus collected, floored at zero.
func (r RawOrder) Normalize() Order {
	o := Order{
		LoadingNumber:   strings.TrimSpace(firstString(r.LoadingNumber, r.LoadingNo)),
		LoadingDate:     upstream.ParseDate(firstString(r.LoadingDate)),
		OrderDate:       upstream.ParseDate(firstString(r.OrderDate, r.CreatedAt)),
		Status:          ParseStatus(firstString(r.Status, r.CollectionStatus, r.DeliveryStatus)),
		CustomerName:    strings.TrimSpace(firstString(r.CustomerName)),
		EmployeeName:    strings.TrimSpace(firstString(r.EmployeeName, r.Salesman)),
		VehicleNumber:   strings.TrimSpace(firstString(r.VehicleNumber, r.VehicleNo)),
		Area:            strings.TrimSpace(firstString(r.Area, r.Route)),
		TotalAmount:     firstDecimal(r.TotalAmount, r.Total),
		CollectedAmount: firstDecimal(r.CollectedAmount, r.Collected),
		TotalValue:      firstDecimal(r.TotalValue),
	}
	if id := r.ID.Ptr(); id != nil {
		o.ID = *id
	}
	if pending, ok := upstream.FirstDecimal(r.PendingAmount, r.Pending); ok {
		o.PendingAmount = pending
	} else {
		o.PendingAmount = decimal.Max(o.TotalAmount.Sub(o.CollectedAmount), decimal.Zero)
	}
	return o
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

func firstDecimal(values ...*upstream.LooseDecimal) decimal.Decimal {
	d, _ := upstream.FirstDecimal(values...)
	return d
}
