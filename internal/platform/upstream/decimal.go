package upstream

import "github.com/shopspring/decimal"

// LooseDecimal decodes quantities and amounts sent as numbers or strings. Blank, null and
// unreadable values leave it unset instead of failing the whole payload.
type LooseDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *LooseDecimal) UnmarshalJSON(data []byte) error {
	*v = LooseDecimal{}
	raw := looseScalar(data)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	*v = LooseDecimal{Decimal: d, Valid: true}
	return nil
}

// FirstDecimal returns the first value that carries a number.
func FirstDecimal(values ...*LooseDecimal) (decimal.Decimal, bool) {
	for _, v := range values {
		if v != nil && v.Valid {
			return v.Decimal, true
		}
	}
	return decimal.Zero, false
}
