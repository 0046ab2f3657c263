package enrich

import (
	"time"

	"github.com/sells-group/retail-sim/internal/details"
)

// Sale is one observation row in canonical form: a product on a day (or the
// Monday of an ISO week) with its quantity outcome.
type Sale struct {
	ProductID string
	Date      time.Time
	Quantity  int64
	UnitPrice float64
	Revenue   float64
	Enriched  bool
	// Funnel is set only when the source table carries all funnel columns.
	Funnel *Funnel
}

// Funnel is the upstream part of the conversion hierarchy. Impressions >=
// Visits >= CartAdds >= Quantity holds on generated data.
type Funnel struct {
	Impressions int64
	Visits      int64
	CartAdds    int64
}

// Clone copies s including its funnel.
func (s Sale) Clone() Sale {
	if s.Funnel != nil {
		f := *s.Funnel
		s.Funnel = &f
	}
	return s
}

// PotentialOutcome holds the revenue a row would have under control (Y0)
// and under treatment (Y1).
type PotentialOutcome struct {
	ProductID string
	Date      time.Time
	Y0        float64
	Y1        float64
}

// Input is what an effect receives: the full observation set, never
// pre-filtered to treated products.
type Input struct {
	Sales []Sale
	// Products is the optional catalog. Effects that touch product details
	// draw their treatment group from it.
	Products []details.Product
	// Outcomes asks for the potential-outcomes table.
	Outcomes bool
	// Backends resolves detail backends for effects that regenerate text.
	Backends details.Factory
}

// Output is what an effect returns. Sales mirrors Input.Sales row for row.
type Output struct {
	Sales    []Sale
	Outcomes []PotentialOutcome
	// ProductsOriginal and ProductsEnriched are set by effects that
	// regenerate product details.
	ProductsOriginal []details.Product
	ProductsEnriched []details.Product
}

// population returns the distinct product IDs a treatment group is drawn
// from, in first-appearance order. The catalog defines it when useCatalog
// is set and a catalog was supplied; otherwise the observations do.
func (in Input) population(useCatalog bool) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if useCatalog && len(in.Products) > 0 {
		for _, p := range in.Products {
			add(p.ID)
		}
		return ids
	}
	for _, s := range in.Sales {
		add(s.ProductID)
	}
	return ids
}

func cloneSales(sales []Sale) []Sale {
	out := make([]Sale, len(sales))
	for i, s := range sales {
		out[i] = s.Clone()
	}
	return out
}
