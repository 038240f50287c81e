package loading

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-dms/internal/shared"
)

// ReceiptFetcher loads a previously issued receipt document.
type ReceiptFetcher interface {
	Fetch(ctx context.Context, workflow, key string) ([]byte, error)
}

// Handler serves loading groups over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	receipts  ReceiptFetcher
	validator *validator.Validate
}

// NewHandler builds Handler instance. receipts may be nil when receipts are disabled.
func NewHandler(logger *slog.Logger, service *Service, receipts ReceiptFetcher) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		receipts:  receipts,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers loading routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/groups", h.listGroups)
	r.Get("/groups/export.xlsx", h.exportGroups)
	r.Post("/groups/{key}/approve", h.approveGroup)
	r.Get("/groups/{key}/receipt", h.downloadReceipt)
	r.Post("/groups/{key}/receipt", h.issueReceipt)
	r.Get("/groups/{key}/approvals", h.approvalHistory)
}

// listGroups handles GET /loading/groups
func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	lq, filter, ok := h.readFilter(w, r)
	if !ok {
		return
	}
	groups, err := h.service.Groups(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	page := shared.NewPagination(lq.Page, lq.PerPage, len(groups))
	httpx.JSON(w, http.StatusOK, GroupListResponse{
		Workflow:   filter.Workflow.Name,
		Summary:    Summarize(groups),
		Groups:     shared.Paginate(groups, page),
		Pagination: page,
	})
}

// exportGroups handles GET /loading/groups/export.xlsx
func (h *Handler) exportGroups(w http.ResponseWriter, r *http.Request) {
	_, filter, ok := h.readFilter(w, r)
	if !ok {
		return
	}
	groups, err := h.service.Groups(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteLoadingSheet(&buf, groups); err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=loading-%s.xlsx", filter.Workflow.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// approveGroup handles POST /loading/groups/{key}/approve
func (h *Handler) approveGroup(w http.ResponseWriter, r *http.Request) {
	key, err := groupKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	cmd, err := req.Command(key)
	if err != nil {
		h.fail(w, err)
		return
	}
	result, err := h.service.Approve(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}
	if result.Receipt != nil && result.Receipt.URL == "" &&
		(result.Receipt.Status == ReceiptReady || result.Receipt.Status == ReceiptQueued) {
		result.Receipt.URL = receiptURL(cmd.Workflow.Name, result.Key)
	}
	httpx.JSON(w, http.StatusOK, result)
}

// downloadReceipt handles GET /loading/groups/{key}/receipt?workflow=
func (h *Handler) downloadReceipt(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		httpx.RespondError(w, fmt.Errorf("%w: receipts disabled", httpx.ErrNotFound))
		return
	}
	key, err := groupKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	wf, ok := LookupWorkflow(r.URL.Query().Get("workflow"))
	if !ok {
		wf = Collection
	}
	pdf, err := h.receipts.Fetch(r.Context(), wf.Name, key)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", sanitizeFilename(key)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// issueReceipt handles POST /loading/groups/{key}/receipt?workflow=
func (h *Handler) issueReceipt(w http.ResponseWriter, r *http.Request) {
	key, err := groupKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	wf, ok := LookupWorkflow(r.URL.Query().Get("workflow"))
	if !ok {
		wf = Collection
	}
	status, err := h.service.IssueReceipt(r.Context(), wf, key)
	if err != nil {
		h.fail(w, err)
		return
	}
	code := http.StatusOK
	switch status.Status {
	case ReceiptQueued:
		code = http.StatusAccepted
	case ReceiptUnavailable:
		httpx.RespondError(w, fmt.Errorf("%w: receipts disabled", httpx.ErrNotFound))
		return
	}
	if status.URL == "" {
		status.URL = receiptURL(wf.Name, key)
	}
	httpx.JSON(w, code, status)
}

// approvalHistory handles GET /loading/groups/{key}/approvals?workflow=
func (h *Handler) approvalHistory(w http.ResponseWriter, r *http.Request) {
	key, err := groupKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	wf, ok := LookupWorkflow(r.URL.Query().Get("workflow"))
	if !ok {
		wf = Collection
	}
	logs, err := h.service.History(r.Context(), wf, key)
	if err != nil {
		h.fail(w, err)
		return
	}
	entries := make([]ApprovalEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, newApprovalEntry(l))
	}
	httpx.JSON(w, http.StatusOK, ApprovalHistoryResponse{Workflow: wf.Name, Key: key, Approvals: entries})
}

func (h *Handler) readFilter(w http.ResponseWriter, r *http.Request) (ListQuery, Filter, bool) {
	lq, err := parseListQuery(r)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return lq, Filter{}, false
	}
	if err := h.validator.Struct(lq); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return lq, Filter{}, false
	}
	filter, err := lq.Filter()
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return lq, Filter{}, false
	}
	return lq, filter, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrReceiptNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, ErrNotApprovable), errors.Is(err, ErrDuplicateRequest):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, ErrUnknownWorkflow), errors.Is(err, ErrInvalidCommand):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, ErrOrdersUnavailable), errors.Is(err, ErrApprovalFailed):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
	default:
		h.logger.Error("loading request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// groupKey reads the {key} param. chi matches on RawPath when the request carries one, and only
// then is the param still escaped.
func groupKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			return "", fmt.Errorf("%w: invalid group key", httpx.ErrValidation)
		}
		key = unescaped
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: invalid group key", httpx.ErrValidation)
	}
	return key, nil
}

func receiptURL(workflow, key string) string {
	return "/loading/groups/" + url.PathEscape(key) + "/receipt?workflow=" + url.QueryEscape(workflow)
}

func sanitizeFilename(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, key)
}
