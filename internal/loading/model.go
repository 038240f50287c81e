package loading

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the canonical view of one order, delivery or transfer row.
type Order struct {
	ID              int64           `json:"id"`
	LoadingNumber   string          `json:"loading_number,omitempty"`
	LoadingDate     *time.Time      `json:"loading_date,omitempty"`
	OrderDate       *time.Time      `json:"order_date,omitempty"`
	Status          Status          `json:"status"`
	CustomerName    string          `json:"customer_name,omitempty"`
	EmployeeName    string          `json:"employee_name,omitempty"`
	VehicleNumber   string          `json:"vehicle_number,omitempty"`
	Area            string          `json:"area,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	TotalValue      decimal.Decimal `json:"total_value"`
}

// DisplayDate is the loading date, falling back to the order date.
func (o Order) DisplayDate() *time.Time {
	if o.LoadingDate != nil {
		return o.LoadingDate
	}
	return o.OrderDate
}

// Totals sums the tracked monetary and quantity fields.
type Totals struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CollectedAmount decimal.Decimal `json:"collected_amount"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	TotalValue      decimal.Decimal `json:"total_value"`
}

func (t *Totals) add(o Order) {
	t.TotalAmount = t.TotalAmount.Add(o.TotalAmount)
	t.CollectedAmount = t.CollectedAmount.Add(o.CollectedAmount)
	t.PendingAmount = t.PendingAmount.Add(o.PendingAmount)
	t.TotalValue = t.TotalValue.Add(o.TotalValue)
}

func (t *Totals) merge(o Totals) {
	t.TotalAmount = t.TotalAmount.Add(o.TotalAmount)
	t.CollectedAmount = t.CollectedAmount.Add(o.CollectedAmount)
	t.PendingAmount = t.PendingAmount.Add(o.PendingAmount)
	t.TotalValue = t.TotalValue.Add(o.TotalValue)
}

// Attribute names reported in Group.MixedAttributes.
const (
	AttrEmployee = "employee"
	AttrVehicle  = "vehicle"
	AttrArea     = "area"
)

// Group is the derived view of all orders sharing a loading number. Orders without a loading
// number form a synthetic singleton group keyed by their id.
type Group struct {
	Key           string     `json:"key"`
	LoadingNumber string     `json:"loading_number,omitempty"`
	Synthetic     bool       `json:"synthetic"`
	Date          *time.Time `json:"date,omitempty"`
	EmployeeName  string     `json:"employee_name,omitempty"`
	VehicleNumber string     `json:"vehicle_number,omitempty"`
	Area          string     `json:"area,omitempty"`
	// MixedAttributes lists the display attributes on which members disagree. The first member's
	// value is shown regardless.
	MixedAttributes []string `json:"mixed_attributes,omitempty"`
	OrderCount      int      `json:"order_count"`
	Totals
	Approvable bool    `json:"approvable"`
	Orders     []Order `json:"orders"`
}

// OrderIDs returns member ids in group order.
func (g Group) OrderIDs() []int64 {
	ids := make([]int64, 0, len(g.Orders))
	for _, o := range g.Orders {
		ids = append(ids, o.ID)
	}
	return ids
}

// Summary totals a set of groups for the dashboard header.
type Summary struct {
	GroupCount      int `json:"group_count"`
	OrderCount      int `json:"order_count"`
	ApprovableCount int `json:"approvable_count"`
	Totals
}
