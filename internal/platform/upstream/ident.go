package upstream

import (
	"bytes"
	"fmt"
	"strconv"
)

// LooseInt64 decodes identifiers sent either as JSON numbers or numeric strings. A blank string
// leaves it unset, so it loses to any other alias that carries a value.
type LooseInt64 struct {
	Value int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *LooseInt64) UnmarshalJSON(data []byte) error {
	raw := looseScalar(data)
	if raw == "" {
		*v = LooseInt64{}
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("upstream: invalid identifier %q", raw)
	}
	*v = LooseInt64{Value: n, Valid: true}
	return nil
}

// Ptr returns the value as *int64, nil when absent or blank.
func (v *LooseInt64) Ptr() *int64 {
	if v == nil || !v.Valid {
		return nil
	}
	n := v.Value
	return &n
}

// FirstID returns the first identifier that carries a value.
func FirstID(values ...*LooseInt64) *int64 {
	for _, v := range values {
		if p := v.Ptr(); p != nil {
			return p
		}
	}
	return nil
}

// looseScalar strips whitespace and quotes; "" and null both come back empty.
func looseScalar(data []byte) string {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ""
	}
	data = bytes.TrimSpace(bytes.Trim(data, `"`))
	if bytes.Equal(data, []byte("null")) {
		return ""
	}
	return string(data)
}
