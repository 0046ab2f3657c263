package simulate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/money"
	"github.com/sells-group/retail-sim/internal/table"
)

// Metrics columns, in output order after the catalog columns.
const (
	ColDate         = "date"
	ColImpressions  = "impressions"
	ColVisits       = "visits"
	ColCartAdds     = "cart_adds"
	ColOrderedUnits = "ordered_units"
	ColRevenue      = "revenue"
)

// Granularities.
const (
	Daily  = "daily"
	Weekly = "weekly"
)

// MetricsParams configures funnel simulation.
type MetricsParams struct {
	DateStart   string  `mapstructure:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd     string  `mapstructure:"date_end" validate:"required,datetime=2006-01-02"`
	SaleProb    float64 `mapstructure:"sale_prob" validate:"gte=0,lte=1"`
	Seed        int64   `mapstructure:"seed"`
	Granularity string  `mapstructure:"granularity" validate:"oneof=daily weekly"`

	ImpressionToVisitRate float64 `mapstructure:"impression_to_visit_rate" validate:"gte=0,lte=1"`
	VisitToCartRate       float64 `mapstructure:"visit_to_cart_rate" validate:"gte=0,lte=1"`
	CartToOrderRate       float64 `mapstructure:"cart_to_order_rate" validate:"gte=0,lte=1"`

	MinImpressions int `mapstructure:"min_impressions" validate:"gte=1"`
	MaxImpressions int `mapstructure:"max_impressions" validate:"gtefield=MinImpressions"`
}

// DefaultMetricsParams returns a month of daily metrics.
func DefaultMetricsParams() MetricsParams {
	return MetricsParams{
		DateStart:             "2024-11-01",
		DateEnd:               "2024-11-30",
		SaleProb:              0.7,
		Seed:                  42,
		Granularity:           Daily,
		ImpressionToVisitRate: 0.1,
		VisitToCartRate:       0.3,
		CartToOrderRate:       0.5,
		MinImpressions:        50,
		MaxImpressions:        500,
	}
}

type funnel struct {
	impressions, visits, cartAdds, units int64
}

func (f *funnel) add(o funnel) {
	f.impressions += o.impressions
	f.visits += o.visits
	f.cartAdds += o.cartAdds
	f.units += o.units
}

type product struct {
	id, category string
	price        float64
}

// Metrics simulates one funnel row per product per day. On each day a
// product's funnel fires with probability SaleProb; impressions are drawn
// uniformly and each later stage is a binomial draw from the one before, so
// impressions >= visits >= cart_adds >= ordered_units. Revenue is
// ordered_units x price.
//
// Weekly granularity widens the range to whole Monday..Sunday weeks and sums
// each product's days into one row dated on the Monday. Every product gets a
// row for every week.
func Metrics(ctx context.Context, products *table.Table, p MetricsParams) (*table.Table, error) {
	if err := validate.Struct(p); err != nil {
		return nil, eris.Wrap(err, "simulate: metrics params")
	}
	start, _ := time.ParseInLocation(time.DateOnly, p.DateStart, time.UTC)
	end, _ := time.ParseInLocation(time.DateOnly, p.DateEnd, time.UTC)
	if end.Before(start) {
		return nil, eris.Errorf("simulate: date_end %s is before date_start %s", p.DateEnd, p.DateStart)
	}
	if p.Granularity == Weekly {
		start = weekStart(start)
		end = weekStart(end).AddDate(0, 0, 6)
	}

	catalog, err := readCatalog(products)
	if err != nil {
		return nil, err
	}

	rng := newRand(p.Seed)
	var days []time.Time
	var daily [][]funnel // [day][product]
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]funnel, len(catalog))
		for i := range catalog {
			row[i] = simulateDay(rng, p)
		}
		days = append(days, d)
		daily = append(daily, row)
	}

	out := table.New(ColProductID, ColCategory, ColPrice, ColDate,
		ColImpressions, ColVisits, ColCartAdds, ColOrderedUnits, ColRevenue)

	if p.Granularity != Weekly {
		for di, d := range days {
			for pi, prod := range catalog {
				out.Rows = append(out.Rows, metricsRow(prod, d, daily[di][pi]))
			}
		}
		return out, nil
	}

	// Weeks are whole, so day index / 7 is the week index.
	weeks := len(days) / 7
	for pi, prod := range catalog {
		for w := range weeks {
			var sum funnel
			for di := w * 7; di < (w+1)*7; di++ {
				sum.add(daily[di][pi])
			}
			out.Rows = append(out.Rows, metricsRow(prod, days[w*7], sum))
		}
	}
	return out, nil
}

func simulateDay(rng *rand.Rand, p MetricsParams) funnel {
	if rng.Float64() >= p.SaleProb {
		return funnel{}
	}
	var f funnel
	f.impressions = int64(p.MinImpressions + rng.IntN(p.MaxImpressions-p.MinImpressions+1))
	f.visits = binomial(rng, f.impressions, p.ImpressionToVisitRate)
	f.cartAdds = binomial(rng, f.visits, p.VisitToCartRate)
	f.units = binomial(rng, f.cartAdds, p.CartToOrderRate)
	return f
}

func metricsRow(prod product, d time.Time, f funnel) table.Row {
	return table.Row{
		ColProductID:    prod.id,
		ColCategory:     prod.category,
		ColPrice:        prod.price,
		ColDate:         d.Format(time.DateOnly),
		ColImpressions:  f.impressions,
		ColVisits:       f.visits,
		ColCartAdds:     f.cartAdds,
		ColOrderedUnits: f.units,
		ColRevenue:      money.Revenue(f.units, prod.price),
	}
}

// binomial counts successes in n Bernoulli(prob) trials.
func binomial(rng *rand.Rand, n int64, prob float64) int64 {
	switch {
	case prob <= 0 || n <= 0:
		return 0
	case prob >= 1:
		return n
	}
	var k int64
	for range n {
		if rng.Float64() < prob {
			k++
		}
	}
	return k
}

// weekStart returns the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func readCatalog(t *table.Table) ([]product, error) {
	if t.Len() == 0 {
		return nil, eris.New("simulate: product catalog is empty")
	}
	for _, col := range []string{ColProductID, ColPrice} {
		if !t.HasColumn(col) {
			return nil, eris.Errorf("simulate: product catalog has no %q column", col)
		}
	}
	out := make([]product, len(t.Rows))
	for i, r := range t.Rows {
		price, ok := table.Float(r[ColPrice])
		if !ok {
			return nil, eris.Errorf("simulate: product row %d: price %v is not a number", i, r[ColPrice])
		}
		out[i] = product{
			id:       table.String(r[ColProductID]),
			category: table.String(r[ColCategory]),
			price:    price,
		}
	}
	return out, nil
}
