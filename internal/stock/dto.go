package stock

import "github.com/shopspring/decimal"

// AllocationRequest is the body of POST /stock/allocations.
type AllocationRequest struct {
	Lines          []AllocationLineReq `json:"lines" validate:"required,min=1,max=200,dive"`
	NumericBatches bool                `json:"numeric_batches"`
}

// AllocationLineReq is one order-entry line to allocate.
type AllocationLineReq struct {
	ProductID   *int64          `json:"product_id,omitempty" validate:"required_without=ProductCode"`
	ProductCode string          `json:"product_code,omitempty" validate:"required_without=ProductID,max=64"`
	DepotID     *int64          `json:"depot_id,omitempty" validate:"omitempty,gt=0"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// AllocationResponse is the answer of POST /stock/allocations.
type AllocationResponse struct {
	Lines []LineAllocation `json:"lines"`
}

// ToLines maps the request to service input.
func (r AllocationRequest) ToLines() []AllocationLine {
	lines := make([]AllocationLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, AllocationLine{
			ProductID:   l.ProductID,
			ProductCode: l.ProductCode,
			DepotID:     l.DepotID,
			Quantity:    l.Quantity,
		})
	}
	return lines
}

// Filter returns the batch predicate the request asks for.
func (r AllocationRequest) Filter() BatchPredicate {
	if r.NumericBatches {
		return NumericBatch
	}
	return nil
}
