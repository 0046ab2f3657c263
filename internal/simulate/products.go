// Package simulate builds rule-based synthetic catalogs and daily or weekly
// sales-funnel metrics. Output is a pure function of the parameters and seed.
package simulate

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/table"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog columns.
const (
	ColProductID = "product_identifier"
	ColCategory  = "category"
	ColPrice     = "price"
)

type priceRange struct{ lo, hi float64 }

var categories = []string{
	"Electronics",
	"Clothing",
	"Home & Garden",
	"Books",
	"Sports & Outdoors",
	"Toys & Games",
	"Food & Beverage",
	"Health & Beauty",
}

var priceRanges = map[string]priceRange{
	"Electronics":       {50, 1500},
	"Clothing":          {15, 200},
	"Home & Garden":     {20, 500},
	"Books":             {10, 60},
	"Sports & Outdoors": {15, 300},
	"Toys & Games":      {10, 100},
	"Food & Beverage":   {5, 50},
	"Health & Beauty":   {8, 80},
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ProductParams configures catalog generation.
type ProductParams struct {
	NumProducts int   `mapstructure:"num_products" validate:"gte=1"`
	Seed        int64 `mapstructure:"seed"`
}

// Products generates a catalog with product_identifier, category, and price
// columns. Identifiers are 10 characters starting with "B" and unique within
// the catalog.
func Products(p ProductParams) (*table.Table, error) {
	if err := validate.Struct(p); err != nil {
		return nil, eris.Wrap(err, "simulate: product params")
	}

	rng := newRand(p.Seed)
	t := table.New(ColProductID, ColCategory, ColPrice)
	seen := make(map[string]struct{}, p.NumProducts)
	for len(t.Rows) < p.NumProducts {
		category := categories[rng.IntN(len(categories))]
		pr := priceRanges[category]
		price := math.Round((pr.lo+rng.Float64()*(pr.hi-pr.lo))*100) / 100

		id := productID(rng)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t.Rows = append(t.Rows, table.Row{
			ColProductID: id,
			ColCategory:  category,
			ColPrice:     price,
		})
	}
	return t, nil
}

func productID(rng *rand.Rand) string {
	var b strings.Builder
	b.WriteByte('B')
	for range 9 {
		b.WriteByte(idAlphabet[rng.IntN(len(idAlphabet))])
	}
	return b.String()
}

func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s>>1|1))
}
