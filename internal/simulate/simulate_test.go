package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/money"
	"github.com/sells-group/retail-sim/internal/table"
)

func mustProducts(t *testing.T, n int) *table.Table {
	t.Helper()
	products, err := Products(ProductParams{NumProducts: n, Seed: 42})
	require.NoError(t, err)
	return products
}

func TestProducts(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 25)
	require.Equal(t, 25, products.Len())
	assert.Equal(t, []string{"product_identifier", "category", "price"}, products.Columns)

	ids := map[string]bool{}
	for _, r := range products.Rows {
		id := r["product_identifier"].(string)
		assert.Len(t, id, 10)
		assert.Equal(t, byte('B'), id[0])
		assert.False(t, ids[id], "duplicate id %s", id)
		ids[id] = true

		category := r["category"].(string)
		pr, ok := priceRanges[category]
		require.True(t, ok, "unknown category %s", category)
		price := r["price"].(float64)
		assert.GreaterOrEqual(t, price, pr.lo)
		assert.LessOrEqual(t, price, pr.hi)
	}
}

func TestProducts_Deterministic(t *testing.T) {
	t.Parallel()

	a := mustProducts(t, 10)
	b := mustProducts(t, 10)
	assert.Equal(t, a, b)

	c, err := Products(ProductParams{NumProducts: 10, Seed: 43})
	require.NoError(t, err)
	assert.NotEqual(t, a.Column("product_identifier"), c.Column("product_identifier"))
}

func TestProducts_StableAcrossReleases(t *testing.T) {
	t.Parallel()

	products, err := Products(ProductParams{NumProducts: 5, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t,
		[]any{"BX5KOWD7W3", "BJ0DC1O6T7", "BS3396G6GS", "BJRGYLDTOO", "B7ECB8NF7T"},
		products.Column(ColProductID))
	assert.Equal(t,
		[]any{"Books", "Health & Beauty", "Home & Garden", "Health & Beauty", "Sports & Outdoors"},
		products.Column(ColCategory))
}

func TestProducts_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := Products(ProductParams{NumProducts: 0})
	assert.Error(t, err)
}

func TestMetrics_DailyFunnel(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 8)
	p := DefaultMetricsParams()
	p.DateStart, p.DateEnd = "2024-01-01", "2024-01-10"

	m, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)
	require.Equal(t, 8*10, m.Len())
	assert.Equal(t, []string{
		"product_identifier", "category", "price", "date",
		"impressions", "visits", "cart_adds", "ordered_units", "revenue",
	}, m.Columns)

	var active int
	for _, r := range m.Rows {
		imp, vis, cart, units := r["impressions"].(int64), r["visits"].(int64), r["cart_adds"].(int64), r["ordered_units"].(int64)
		assert.GreaterOrEqual(t, imp, vis)
		assert.GreaterOrEqual(t, vis, cart)
		assert.GreaterOrEqual(t, cart, units)

		revenue := r["revenue"].(float64)
		assert.Equal(t, money.Revenue(units, r["price"].(float64)), revenue)
		if units == 0 {
			assert.Zero(t, revenue)
		} else {
			assert.Positive(t, revenue)
		}
		if imp == 0 {
			assert.Zero(t, vis+cart+units)
		} else {
			active++
		}
	}
	assert.Positive(t, active)
	assert.Equal(t, "2024-01-01", m.Rows[0]["date"])
	assert.Equal(t, "2024-01-10", m.Rows[m.Len()-1]["date"])
}

func TestMetrics_FullConversion(t *testing.T) {
	t.Parallel()

	p := DefaultMetricsParams()
	p.DateStart, p.DateEnd = "2024-01-01", "2024-01-02"
	p.SaleProb = 1
	p.ImpressionToVisitRate, p.VisitToCartRate, p.CartToOrderRate = 1, 1, 1

	m, err := Metrics(context.Background(), mustProducts(t, 5), p)
	require.NoError(t, err)
	for _, r := range m.Rows {
		imp := r["impressions"].(int64)
		assert.Positive(t, imp)
		assert.Equal(t, imp, r["ordered_units"])
	}
}

func TestMetrics_Weekly(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 10)
	p := DefaultMetricsParams()
	p.DateStart, p.DateEnd = "2024-01-03", "2024-01-31"
	p.Granularity = Weekly

	m, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)
	require.Equal(t, 10*5, m.Len(), "Jan 1 (Mon) to Feb 4 (Sun) is 5 weeks")

	weeks := map[string]bool{}
	pairs := map[string]bool{}
	for _, r := range m.Rows {
		d, err := time.Parse(time.DateOnly, r["date"].(string))
		require.NoError(t, err)
		assert.Equal(t, time.Monday, d.Weekday())
		weeks[r["date"].(string)] = true
		pairs[r["product_identifier"].(string)+"/"+r["date"].(string)] = true

		units := r["ordered_units"].(int64)
		assert.Equal(t, money.Revenue(units, r["price"].(float64)), r["revenue"])
		assert.GreaterOrEqual(t, r["cart_adds"].(int64), units)
	}
	assert.Len(t, weeks, 5)
	assert.Len(t, pairs, 50)
	assert.True(t, weeks["2024-01-01"])
	assert.True(t, weeks["2024-01-29"])
}

func TestMetrics_WeeklyMatchesDailySums(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 3)
	p := DefaultMetricsParams()
	p.DateStart, p.DateEnd = "2024-01-01", "2024-01-14"

	daily, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)
	p.Granularity = Weekly
	weekly, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)

	sums := map[string]int64{}
	for _, r := range daily.Rows {
		d, _ := time.Parse(time.DateOnly, r["date"].(string))
		key := r["product_identifier"].(string) + "/" + weekStart(d).Format(time.DateOnly)
		sums[key] += r["ordered_units"].(int64)
	}
	for _, r := range weekly.Rows {
		key := r["product_identifier"].(string) + "/" + r["date"].(string)
		assert.Equal(t, sums[key], r["ordered_units"], key)
	}
}

func TestMetrics_Deterministic(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 4)
	p := DefaultMetricsParams()
	a, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)
	b, err := Metrics(context.Background(), products, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMetrics_Errors(t *testing.T) {
	t.Parallel()

	products := mustProducts(t, 2)

	p := DefaultMetricsParams()
	p.DateStart, p.DateEnd = "2024-02-01", "2024-01-01"
	_, err := Metrics(context.Background(), products, p)
	assert.Error(t, err)

	p = DefaultMetricsParams()
	p.Granularity = "hourly"
	_, err = Metrics(context.Background(), products, p)
	assert.Error(t, err)

	p = DefaultMetricsParams()
	p.MaxImpressions = 10
	_, err = Metrics(context.Background(), products, p)
	assert.Error(t, err)

	_, err = Metrics(context.Background(), table.New("product_identifier"), DefaultMetricsParams())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Metrics(ctx, products, DefaultMetricsParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWeekStart(t *testing.T) {
	t.Parallel()

	mon := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 7 {
		assert.Equal(t, mon, weekStart(mon.AddDate(0, 0, i)))
	}
	assert.Equal(t, mon.AddDate(0, 0, 7), weekStart(mon.AddDate(0, 0, 7)))
}

type dropBackend struct{}

func (dropBackend) Name() string { return "drop" }

func (dropBackend) Regenerate(_ context.Context, p []details.Product, _ bool) ([]details.Product, error) {
	return p[1:], nil
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	catalog := mustProducts(t, 6)
	described, err := Describe(context.Background(), catalog, details.NewMockBackend(7))
	require.NoError(t, err)

	assert.Equal(t, []string{
		ColProductID, ColCategory, ColPrice,
		ColTitle, ColDescription, ColBrand, ColFeatures, ColQualityScore,
	}, described.Columns)
	require.Equal(t, catalog.Len(), described.Len())
	for i, r := range described.Rows {
		assert.Equal(t, catalog.Rows[i][ColProductID], r[ColProductID])
		assert.NotEmpty(t, r[ColTitle])
		assert.NotEmpty(t, r[ColDescription])
		assert.NotEmpty(t, r[ColFeatures])
		score := r[ColQualityScore].(float64)
		assert.Greater(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
	// The source catalog is untouched.
	assert.Len(t, catalog.Columns, 3)
	assert.NotContains(t, catalog.Rows[0], ColTitle)
}

func TestDescribe_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := Describe(ctx, nil, details.NewMockBackend(1))
	assert.Error(t, err)

	_, err = Describe(ctx, mustProducts(t, 3), dropBackend{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 2 products for 3 inputs")

	bad := table.New(ColProductID)
	bad.Append(table.Row{ColProductID: ""})
	_, err = Describe(ctx, bad, details.NewMockBackend(1))
	assert.Error(t, err)
}
