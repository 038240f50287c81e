package upstream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooseInt64(t *testing.T) {
	var got struct {
		A *LooseInt64 `json:"a"`
		B *LooseInt64 `json:"b"`
		C *LooseInt64 `json:"c"`
		D *LooseInt64 `json:"d"`
		E *LooseInt64 `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":" 34 ","c":null,"d":"","e":"  "}`), &got))
	require.NotNil(t, got.A)
	assert.Equal(t, int64(12), *got.A.Ptr())
	assert.Equal(t, int64(34), *got.B.Ptr())
	assert.Nil(t, got.C)
	assert.Nil(t, got.D.Ptr())
	assert.Nil(t, got.E.Ptr())

	var bad struct {
		A *LooseInt64 `json:"a"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"a":"12x"}`), &bad))
}

func TestFirstID(t *testing.T) {
	one := &LooseInt64{Value: 1, Valid: true}
	two := &LooseInt64{Value: 2, Valid: true}
	blank := &LooseInt64{}

	assert.Nil(t, FirstID(nil, nil))
	assert.Nil(t, FirstID(blank))
	assert.Equal(t, int64(2), *FirstID(nil, two, one))
	assert.Equal(t, int64(1), *FirstID(blank, one))
}

func TestFirstIDSkipsBlankAlias(t *testing.T) {
	var row struct {
		DepotID     *LooseInt64 `json:"depot_id"`
		WarehouseID *LooseInt64 `json:"warehouse_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"depot_id":"","warehouse_id":5}`), &row))

	got := FirstID(row.DepotID, row.WarehouseID)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), *got)
}

func TestLooseDecimal(t *testing.T) {
	var got struct {
		A *LooseDecimal `json:"a"`
		B *LooseDecimal `json:"b"`
		C *LooseDecimal `json:"c"`
		D *LooseDecimal `json:"d"`
		E *LooseDecimal `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":" 2.25 ","c":"","d":null,"e":"n/a"}`), &got))
	assert.True(t, got.A.Valid)
	assert.Equal(t, "1.5", got.A.Decimal.String())
	assert.Equal(t, "2.25", got.B.Decimal.String())
	assert.False(t, got.C.Valid)
	assert.Nil(t, got.D)
	assert.False(t, got.E.Valid)

	d, ok := FirstDecimal(got.C, got.D, got.B)
	assert.True(t, ok)
	assert.Equal(t, "2.25", d.String())

	d, ok = FirstDecimal(got.C, got.E)
	assert.False(t, ok)
	assert.True(t, d.IsZero())
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	cases := map[string]*time.Time{
		"2025-04-30":           &want,
		"2025-04-30T00:00:00Z": &want,
		"2025-04-30 00:00:00":  &want,
		"2025-04-30T00:00:00":  &want,
		"  ":                   nil,
		"30/04/2025":           nil,
	}
	for raw, expected := range cases {
		got := ParseDate(raw)
		if expected == nil {
			assert.Nil(t, got, raw)
			continue
		}
		require.NotNil(t, got, raw)
		assert.True(t, expected.Equal(*got), raw)
	}
}
