package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// List decodes either a bare JSON array or an envelope of the form {"data": [...]}.
// Older endpoints return the array directly, newer ones wrap it.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var envelope struct {
		Data    *[]T `json:"data"`
		Results *[]T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	switch {
	case envelope.Data != nil:
		*l = *envelope.Data
	case envelope.Results != nil:
		*l = *envelope.Results
	default:
		return fmt.Errorf("upstream: list payload has neither data nor results")
	}
	return nil
}
