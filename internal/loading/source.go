package loading

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/upstream"
)

// Filter narrows an order read.
type Filter struct {
	Workflow      Workflow
	DateFrom      *time.Time
	DateTo        *time.Time
	DepotID       *int64
	LoadingNumber string
	OrderIDs      []int64
}

// OrderSource returns a fresh order snapshot.
type OrderSource interface {
	Orders(ctx context.Context, f Filter) ([]Order, error)
}

// Intent is an approval command sent to the order service.
type Intent struct {
	Workflow      string  `json:"workflow"`
	LoadingNumber string  `json:"loading_number,omitempty"`
	OrderIDs      []int64 `json:"order_ids,omitempty"`
	ActorID       int64   `json:"actor_id"`
	RequestID     string  `json:"request_id"`
}

// Approver performs the authoritative state transition.
type Approver interface {
	Approve(ctx context.Context, in Intent) error
}

// APISource reads orders from, and sends approvals to, the order service.
type APISource struct {
	client *upstream.Client
}

// NewAPISource constructs an APISource.
func NewAPISource(client *upstream.Client) *APISource {
	return &APISource{client: client}
}

// Orders fetches GET /orders for the filter.
func (s *APISource) Orders(ctx context.Context, f Filter) ([]Order, error) {
	params := url.Values{}
	if f.Workflow.Name != "" {
		params.Set("workflow", f.Workflow.Name)
	}
	if f.DateFrom != nil {
		params.Set("date_from", f.DateFrom.Format(time.DateOnly))
	}
	if f.DateTo != nil {
		params.Set("date_to", f.DateTo.Format(time.DateOnly))
	}
	if f.DepotID != nil {
		params.Set("depot_id", strconv.FormatInt(*f.DepotID, 10))
	}
	if f.LoadingNumber != "" {
		params.Set("loading_number", f.LoadingNumber)
	}
	for _, id := range f.OrderIDs {
		params.Add("order_id", strconv.FormatInt(id, 10))
	}
	var rows upstream.List[RawOrder]
	if err := s.client.GetJSON(ctx, "/orders", params, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrdersUnavailable, err)
	}
	return NormalizeOrders(rows), nil
}

// Approve posts the intent. A loading number goes to /loadings/{n}/approve, a bare order list to
// /orders/approve.
func (s *APISource) Approve(ctx context.Context, in Intent) error {
	path := "/orders/approve"
	if in.LoadingNumber != "" {
		path = "/loadings/" + url.PathEscape(in.LoadingNumber) + "/approve"
	}
	if err := s.client.PostJSON(ctx, path, in, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}
	return nil
}
