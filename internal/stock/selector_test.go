package stock

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func batches(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Batch)
	}
	return out
}

func TestSelectEligibleBatchesOrdersByExpiry(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), Batch: "B1", Quantity: qty(10), ExpiryDate: day("2025-06-01")},
		{ProductID: id(1), Batch: "B2", Quantity: qty(5), ExpiryDate: day("2025-03-01")},
		{ProductID: id(1), Batch: "B3", Quantity: qty(0), ExpiryDate: day("2025-01-01")},
	}

	got := SelectEligibleBatches(ledger, Query{ProductID: id(1)})

	assert.Equal(t, []string{"B2", "B1"}, batches(got))
	assertDecimal(t, "5", got[0].Quantity)
}

func TestUndatedBatchesSortLastAndKeepLedgerOrder(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), Batch: "N1", Quantity: qty(1)},
		{ProductID: id(1), Batch: "D2", Quantity: qty(1), ExpiryDate: day("2026-02-01")},
		{ProductID: id(1), Batch: "N2", Quantity: qty(1)},
		{ProductID: id(1), Batch: "D1", Quantity: qty(1), ExpiryDate: day("2026-01-01")},
		{ProductID: id(1), Batch: "N3", Quantity: qty(1)},
	}

	got := SelectEligibleBatches(ledger, Query{ProductID: id(1)})

	assert.Equal(t, []string{"D1", "D2", "N1", "N2", "N3"}, batches(got))
}

func TestFEFOOrderingHoldsForShuffledInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := make([]LedgerEntry, 0, 60)
	for i := 0; i < 60; i++ {
		e := LedgerEntry{ProductID: id(9), Batch: string(rune('A'+i%26)) + "x", Quantity: qty(int64(rng.Intn(5)))}
		if rng.Intn(4) > 0 {
			exp := base.AddDate(0, 0, rng.Intn(90))
			e.ExpiryDate = &exp
		}
		ledger = append(ledger, e)
	}
	rng.Shuffle(len(ledger), func(i, j int) { ledger[i], ledger[j] = ledger[j], ledger[i] })

	got := SelectEligibleBatches(ledger, Query{ProductID: id(9)})

	seenUndated := false
	for i, c := range got {
		assert.True(t, c.Quantity.IsPositive())
		if c.ExpiryDate == nil {
			seenUndated = true
			continue
		}
		require.False(t, seenUndated, "dated batch %d after an undated one", i)
		if i > 0 && got[i-1].ExpiryDate != nil {
			assert.False(t, c.ExpiryDate.Before(*got[i-1].ExpiryDate), "expiry decreased at %d", i)
		}
	}
}

func TestIneligibleEntriesNeverSelected(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), Batch: "", Quantity: qty(50), ExpiryDate: day("2025-01-01")},
		{ProductID: id(1), Batch: "ZERO", Quantity: qty(0)},
		{ProductID: id(1), Batch: "NEG", Quantity: qty(-3)},
		{ProductID: id(1), Batch: "OK", Quantity: decimal.RequireFromString("0.5")},
	}

	got := SelectEligibleBatches(ledger, Query{ProductID: id(1)})

	assert.Equal(t, []string{"OK"}, batches(got))
}

func TestNoMatchDegradesToEmpty(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), DepotID: id(10), Batch: "B1", Quantity: qty(4)},
	}

	t.Run("unknown product", func(t *testing.T) {
		got := SelectEligibleBatches(ledger, Query{ProductID: id(2)})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
	t.Run("other depot", func(t *testing.T) {
		assert.Empty(t, SelectEligibleBatches(ledger, Query{ProductID: id(1), DepotID: id(11)}))
	})
	t.Run("no product selected", func(t *testing.T) {
		assert.Empty(t, SelectEligibleBatches(ledger, Query{}))
	})
	t.Run("nil ledger", func(t *testing.T) {
		assert.Empty(t, SelectEligibleBatches(nil, Query{ProductID: id(1)}))
	})
}

func TestProductMatching(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), ProductCode: "SKU-1", Batch: "A", Quantity: qty(1)},
		{ProductID: id(2), ProductCode: "SKU-1", Batch: "B", Quantity: qty(1)},
		{ProductCode: "SKU-1", Batch: "C", Quantity: qty(1)},
	}

	assert.Equal(t, []string{"A"}, batches(SelectEligibleBatches(ledger, Query{ProductID: id(1), ProductCode: "SKU-1"})))
	assert.Equal(t, []string{"A", "B", "C"}, batches(SelectEligibleBatches(ledger, Query{ProductCode: "SKU-1"})))
}

func TestDepotFilter(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), DepotID: id(10), Batch: "D10", Quantity: qty(1)},
		{ProductID: id(1), DepotID: id(20), Batch: "D20", Quantity: qty(1)},
		{ProductID: id(1), Batch: "CENTRAL", Quantity: qty(1)},
	}

	assert.Equal(t, []string{"D10"}, batches(SelectEligibleBatches(ledger, Query{ProductID: id(1), DepotID: id(10)})))
	assert.Len(t, SelectEligibleBatches(ledger, Query{ProductID: id(1)}), 3)
}

func TestNumericBatchFilter(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), Batch: "LOT-7", Quantity: qty(1), ExpiryDate: day("2025-01-01")},
		{ProductID: id(1), Batch: "20250101", Quantity: qty(1), ExpiryDate: day("2025-02-01")},
	}

	all := SelectEligibleBatches(ledger, Query{ProductID: id(1)})
	numeric := SelectEligibleBatches(ledger, Query{ProductID: id(1), BatchFilter: NumericBatch})

	assert.Equal(t, []string{"LOT-7", "20250101"}, batches(all))
	assert.Equal(t, []string{"20250101"}, batches(numeric))
}

func TestNumericBatch(t *testing.T) {
	assert.True(t, NumericBatch("0012"))
	assert.False(t, NumericBatch(""))
	assert.False(t, NumericBatch("12a"))
	assert.False(t, NumericBatch("１２"))
	assert.False(t, NumericBatch("-12"))
}

func TestCurrentStock(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), DepotID: id(10), Batch: "B1", Quantity: qty(7), ExpiryDate: day("2025-05-01")},
		{ProductID: id(1), DepotID: id(10), Batch: "B0", Quantity: qty(3), ExpiryDate: day("2025-04-01")},
		{ProductID: id(2), DepotID: id(10), Quantity: qty(11)},
		{ProductID: id(2), DepotID: id(10), Batch: "", Quantity: qty(4)},
		{ProductID: id(2), DepotID: id(20), Quantity: qty(100)},
	}

	t.Run("head of FEFO list", func(t *testing.T) {
		q := Query{ProductID: id(1)}
		assertDecimal(t, "3", CurrentStock(ledger, q, SelectEligibleBatches(ledger, q)))
	})
	t.Run("sum when no batches", func(t *testing.T) {
		q := Query{ProductID: id(2), DepotID: id(10)}
		assertDecimal(t, "15", CurrentStock(ledger, q, SelectEligibleBatches(ledger, q)))
	})
	t.Run("sum across depots when depot omitted", func(t *testing.T) {
		q := Query{ProductID: id(2)}
		assertDecimal(t, "115", CurrentStock(ledger, q, SelectEligibleBatches(ledger, q)))
	})
	t.Run("zero without match", func(t *testing.T) {
		q := Query{ProductID: id(3)}
		assertDecimal(t, "0", CurrentStock(ledger, q, nil))
	})
}

func TestBuildSnapshotDefault(t *testing.T) {
	ledger := []LedgerEntry{
		{ProductID: id(1), Batch: "B1", Quantity: qty(10), ExpiryDate: day("2025-06-01")},
		{ProductID: id(1), Batch: "B2", Quantity: qty(5), ExpiryDate: day("2025-03-01")},
	}

	snap := BuildSnapshot(ledger, Query{ProductID: id(1)})

	require.NotNil(t, snap.Default)
	assert.Equal(t, "B2", snap.Default.Batch)
	assertDecimal(t, "5", snap.CurrentStock)

	empty := BuildSnapshot(ledger, Query{ProductID: id(5)})
	assert.Nil(t, empty.Default)
	assert.Empty(t, empty.Candidates)
	assertDecimal(t, "0", empty.CurrentStock)
}

func TestAllocate(t *testing.T) {
	candidates := []Candidate{
		{Batch: "B2", Quantity: qty(5), ExpiryDate: day("2025-03-01")},
		{Batch: "B1", Quantity: qty(10), ExpiryDate: day("2025-06-01")},
	}

	t.Run("spans batches in order", func(t *testing.T) {
		a := Allocate(candidates, qty(8))
		require.Len(t, a.Picks, 2)
		assert.Equal(t, "B2", a.Picks[0].Batch)
		assertDecimal(t, "5", a.Picks[0].Quantity)
		assert.Equal(t, "B1", a.Picks[1].Batch)
		assertDecimal(t, "3", a.Picks[1].Quantity)
		assertDecimal(t, "8", a.Allocated)
		assertDecimal(t, "0", a.Shortfall)
	})
	t.Run("reports shortfall", func(t *testing.T) {
		a := Allocate(candidates, qty(20))
		assertDecimal(t, "15", a.Allocated)
		assertDecimal(t, "5", a.Shortfall)
	})
	t.Run("nothing to allocate from", func(t *testing.T) {
		a := Allocate(nil, qty(2))
		assert.Empty(t, a.Picks)
		assertDecimal(t, "2", a.Shortfall)
	})
	t.Run("non positive request", func(t *testing.T) {
		a := Allocate(candidates, qty(0))
		assert.Empty(t, a.Picks)
		assertDecimal(t, "0", a.Allocated)
	})
}
