package stock

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-dms/internal/platform/httpx"
)

// Handler serves the batch selector over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: NewValidator(),
	}
}

// NewValidator returns a validator that understands decimal quantities.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/batches", h.batches)
	r.Post("/allocations", h.allocations)
}

// batches handles GET /stock/batches?product_id=&product_code=&depot_id=&numeric_batches=
func (h *Handler) batches(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.QueryInt64(r, "product_id")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: product_id must be an integer", httpx.ErrValidation))
		return
	}
	depotID, err := httpx.QueryInt64(r, "depot_id")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: depot_id must be an integer", httpx.ErrValidation))
		return
	}
	q := Query{
		ProductID:   productID,
		ProductCode: strings.TrimSpace(r.URL.Query().Get("product_code")),
		DepotID:     depotID,
	}
	if httpx.QueryBool(r, "numeric_batches") {
		q.BatchFilter = NumericBatch
	}

	snap, err := h.service.Lookup(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

// allocations handles POST /stock/allocations
func (h *Handler) allocations(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}

	lines, err := h.service.Suggest(r.Context(), req.ToLines(), req.Filter())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, AllocationResponse{Lines: lines})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLedgerUnavailable):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
	default:
		h.logger.Error("stock request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
