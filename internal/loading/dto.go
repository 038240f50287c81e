package loading

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
)

// IdempotencyHeader may carry the idempotency key instead of the request body.
const IdempotencyHeader = "Idempotency-Key"

// ListQuery holds GET /loading/groups parameters.
type ListQuery struct {
	Workflow string `validate:"required,oneof=collection delivery transfer"`
	DateFrom *time.Time
	DateTo   *time.Time
	DepotID  *int64 `validate:"omitempty,gt=0"`
	Page     int    `validate:"gte=0"`
	PerPage  int    `validate:"gte=0,lte=500"`
}

// parseListQuery reads list parameters from the query string.
func parseListQuery(r *http.Request) (ListQuery, error) {
	q := r.URL.Query()
	lq := ListQuery{Workflow: strings.ToLower(strings.TrimSpace(q.Get("workflow")))}
	if lq.Workflow == "" {
		lq.Workflow = Collection.Name
	}
	var err error
	if lq.DateFrom, err = queryDate(r, "date_from"); err != nil {
		return lq, err
	}
	if lq.DateTo, err = queryDate(r, "date_to"); err != nil {
		return lq, err
	}
	if lq.DepotID, err = httpx.QueryInt64(r, "depot_id"); err != nil {
		return lq, fmt.Errorf("depot_id must be an integer")
	}
	if lq.Page, err = queryInt(r, "page"); err != nil {
		return lq, err
	}
	if lq.PerPage, err = queryInt(r, "per_page"); err != nil {
		return lq, err
	}
	return lq, nil
}

// Filter converts the query to a source filter.
func (q ListQuery) Filter() (Filter, error) {
	wf, ok := LookupWorkflow(q.Workflow)
	if !ok {
		return Filter{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, q.Workflow)
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return Filter{}, fmt.Errorf("date_to is before date_from")
	}
	return Filter{Workflow: wf, DateFrom: q.DateFrom, DateTo: q.DateTo, DepotID: q.DepotID}, nil
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return &t, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// GroupListResponse is the body of GET /loading/groups.
type GroupListResponse struct {
	Workflow   string            `json:"workflow"`
	Summary    Summary           `json:"summary"`
	Groups     []Group           `json:"groups"`
	Pagination shared.Pagination `json:"pagination"`
}

// ApproveRequest is the body of POST /loading/groups/{key}/approve.
type ApproveRequest struct {
	Workflow       string `json:"workflow" validate:"required,oneof=collection delivery transfer"`
	ActorID        int64  `json:"actor_id" validate:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128"`
	PrintReceipt   bool   `json:"print_receipt"`
}

// Command converts the request for Service.Approve.
func (req ApproveRequest) Command(key string) (ApproveCommand, error) {
	wf, ok := LookupWorkflow(req.Workflow)
	if !ok {
		return ApproveCommand{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, req.Workflow)
	}
	return ApproveCommand{
		Workflow:       wf,
		Key:            key,
		ActorID:        req.ActorID,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		PrintReceipt:   req.PrintReceipt,
	}, nil
}

// ApprovalEntry is one row of a group's approval history.
type ApprovalEntry struct {
	ActorID int64     `json:"actor_id"`
	Action  string    `json:"action"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

func newApprovalEntry(l shared.ApprovalLog) ApprovalEntry {
	return ApprovalEntry{ActorID: l.ActorID, Action: string(l.Action), Note: l.Note, At: l.At}
}

// ApprovalHistoryResponse is the body of GET /loading/groups/{key}/approvals.
type ApprovalHistoryResponse struct {
	Workflow  string          `json:"workflow"`
	Key       string          `json:"key"`
	Approvals []ApprovalEntry `json:"approvals"`
}
