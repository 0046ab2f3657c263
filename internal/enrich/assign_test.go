package enrich

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("P%03d", i)
	}
	return ids
}

func TestAssign_Deterministic(t *testing.T) {
	t.Parallel()

	ids := productIDs(100)
	a := Assign(ids, 0.3, 42)
	b := Assign(ids, 0.3, 42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 30)
}

// Golden draw. A change here re-randomises every recorded experiment.
func TestAssign_StableAcrossReleases(t *testing.T) {
	t.Parallel()

	got := Assign(productIDs(20), 0.3, 42).Sorted()
	assert.Equal(t, []string{"P001", "P002", "P008", "P009", "P014", "P019"}, got)
}

func TestAssign_FractionSizes(t *testing.T) {
	t.Parallel()

	ids := productIDs(37)
	for _, f := range []float64{0, 0.1, 0.25, 0.33, 0.5, 0.75, 0.999, 1.0} {
		t.Run(fmt.Sprintf("f=%v", f), func(t *testing.T) {
			got := Assign(ids, f, 7)
			assert.Len(t, got, int(math.Floor(float64(len(ids))*f)))
			for id := range got {
				assert.Contains(t, ids, id)
			}
		})
	}
}

func TestAssign_Edges(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Assign(nil, 0.5, 1))
	assert.Empty(t, Assign(productIDs(10), 0, 1))
	assert.Empty(t, Assign(productIDs(10), -0.5, 1))
	assert.Empty(t, Assign(productIDs(10), math.NaN(), 1))
	assert.Len(t, Assign(productIDs(10), 1.0, 1), 10)
	assert.Len(t, Assign(productIDs(10), 3.0, 1), 10)
	assert.Empty(t, Assign(productIDs(3), 0.3, 1), "floor(0.9) is zero")
}

func TestAssign_SeedsDiffer(t *testing.T) {
	t.Parallel()

	ids := productIDs(100)
	assert.NotEqual(t, Assign(ids, 0.5, 1).Sorted(), Assign(ids, 0.5, 2).Sorted())
}

func TestAssign_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ids := productIDs(20)
	before := append([]string(nil), ids...)
	Assign(ids, 0.5, 3)
	assert.Equal(t, before, ids)
}

func TestIDSet(t *testing.T) {
	t.Parallel()

	var empty IDSet
	assert.False(t, empty.Has("x"))

	s := IDSet{"b": {}, "a": {}}
	assert.True(t, s.Has("a"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}

var rampStart = time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)

func TestRampFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		offset   int
		rampDays int
		want     float64
	}{
		{name: "start day is zero", offset: 0, rampDays: 7, want: 0},
		{name: "first day", offset: 1, rampDays: 7, want: 1.0 / 7},
		{name: "mid ramp", offset: 3, rampDays: 6, want: 0.5},
		{name: "ramp complete", offset: 7, rampDays: 7, want: 1},
		{name: "after ramp", offset: 30, rampDays: 7, want: 1},
		{name: "zero ramp days", offset: 0, rampDays: 0, want: 1},
		{name: "negative ramp days", offset: 0, rampDays: -3, want: 1},
		{name: "before start", offset: -2, rampDays: 7, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := rampStart.AddDate(0, 0, tt.offset)
			assert.InDelta(t, tt.want, RampFactor(obs, rampStart, tt.rampDays), 1e-12)
		})
	}
}

func TestRampFactor_IgnoresClockTime(t *testing.T) {
	t.Parallel()

	obs := rampStart.Add(23 * time.Hour)
	assert.Equal(t, 0.0, RampFactor(obs, rampStart, 7))
	assert.True(t, onOrAfter(obs, rampStart))
	assert.False(t, onOrAfter(rampStart.Add(-time.Hour), rampStart))
}

func TestBoostQuantity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(3), boostQuantity(2, 0.5))
	assert.Equal(t, int64(15), boostQuantity(10, 0.5))
	assert.Equal(t, int64(11), boostQuantity(10, 0.5/3))
	assert.Equal(t, int64(1), boostQuantity(1, 0.5))
	assert.Equal(t, int64(0), boostQuantity(0, 0.5))
}

func TestBoostSale(t *testing.T) {
	t.Parallel()

	t.Run("funnel lifted", func(t *testing.T) {
		s := Sale{Quantity: 4, UnitPrice: 10, Funnel: &Funnel{Impressions: 100, Visits: 5, CartAdds: 4}}
		got := boostSale(s, 0.5, 0)
		assert.Equal(t, int64(6), got.Quantity)
		assert.Equal(t, 60.0, got.Revenue)
		require.NotNil(t, got.Funnel)
		assert.Equal(t, Funnel{Impressions: 100, Visits: 6, CartAdds: 6}, *got.Funnel)
		assert.Equal(t, int64(4), s.Funnel.CartAdds, "input funnel must not change")
	})

	t.Run("min units floor", func(t *testing.T) {
		got := boostSale(Sale{Quantity: 1, UnitPrice: 2.5}, 0, 3)
		assert.Equal(t, int64(3), got.Quantity)
		assert.Equal(t, 7.5, got.Revenue)
	})

	t.Run("zero units stay zero", func(t *testing.T) {
		got := boostSale(Sale{Quantity: 0, UnitPrice: 2.5}, 0.5, 3)
		assert.Equal(t, int64(0), got.Quantity)
		assert.Equal(t, 0.0, got.Revenue)
	})
}
