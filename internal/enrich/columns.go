package enrich

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/money"
	"github.com/sells-group/retail-sim/internal/table"
)

// Column aliases, most preferred first. Pipeline generations disagree on
// names; the engine resolves them here and nowhere else.
var (
	idAliases       = []string{"product_identifier", "product_id", "asin"}
	quantityAliases = []string{"ordered_units", "quantity"}
	priceAliases    = []string{"unit_price", "price"}
)

// Canonical column names.
const (
	ColProductID   = "product_identifier"
	ColDate        = "date"
	ColRevenue     = "revenue"
	ColEnriched    = "enriched"
	ColImpressions = "impressions"
	ColVisits      = "visits"
	ColCartAdds    = "cart_adds"
	ColY0          = "Y0_revenue"
	ColY1          = "Y1_revenue"
)

// Product detail columns written back by detail-regenerating effects.
var detailColumns = []string{"title", "description", "brand", "features", "quality_score", ColEnriched}

type salesColumns struct {
	id         string
	quantity   string
	prices     []string
	hasRevenue bool
	funnel     bool
}

func firstPresent(t *table.Table, aliases []string) string {
	for _, a := range aliases {
		if t.HasColumn(a) {
			return a
		}
	}
	return ""
}

func resolveSalesColumns(t *table.Table) (salesColumns, error) {
	var c salesColumns
	if c.id = firstPresent(t, idAliases); c.id == "" {
		return c, eris.Wrapf(ErrInput, "observations have no product identifier column (want one of %s)", strings.Join(idAliases, ", "))
	}
	if !t.HasColumn(ColDate) {
		return c, eris.Wrapf(ErrInput, "observations have no %q column", ColDate)
	}
	if c.quantity = firstPresent(t, quantityAliases); c.quantity == "" {
		return c, eris.Wrapf(ErrInput, "observations have no quantity column (want one of %s)", strings.Join(quantityAliases, ", "))
	}
	for _, p := range priceAliases {
		if t.HasColumn(p) {
			c.prices = append(c.prices, p)
		}
	}
	if len(c.prices) == 0 {
		return c, eris.Wrapf(ErrInput, "observations have no price column (want one of %s)", strings.Join(priceAliases, ", "))
	}
	c.hasRevenue = t.HasColumn(ColRevenue)
	c.funnel = t.HasColumn(ColImpressions) && t.HasColumn(ColVisits) && t.HasColumn(ColCartAdds)
	return c, nil
}

func readSales(t *table.Table, c salesColumns) ([]Sale, error) {
	sales := make([]Sale, len(t.Rows))
	for i, r := range t.Rows {
		id := table.String(r[c.id])
		if id == "" {
			return nil, eris.Wrapf(ErrInput, "row %d: empty %s", i, c.id)
		}
		date, err := parseDate(r[ColDate])
		if err != nil {
			return nil, eris.Wrapf(ErrInput, "row %d: %v", i, err)
		}
		qty, err := intCell(r, c.quantity)
		if err != nil {
			return nil, eris.Wrapf(ErrInput, "row %d: %v", i, err)
		}
		price, ok := table.Float(r[c.prices[0]])
		if !ok {
			return nil, eris.Wrapf(ErrInput, "row %d: %s %v is not a number", i, c.prices[0], r[c.prices[0]])
		}

		s := Sale{ProductID: id, Date: date, Quantity: qty, UnitPrice: price}
		if rev, ok := table.Float(r[ColRevenue]); c.hasRevenue && ok {
			s.Revenue = rev
		} else {
			s.Revenue = money.Revenue(qty, price)
		}
		if c.funnel {
			var f Funnel
			for col, dst := range map[string]*int64{ColImpressions: &f.Impressions, ColVisits: &f.Visits, ColCartAdds: &f.CartAdds} {
				if *dst, err = intCell(r, col); err != nil {
					return nil, eris.Wrapf(ErrInput, "row %d: %v", i, err)
				}
			}
			s.Funnel = &f
		}
		sales[i] = s
	}
	return sales, nil
}

// writeSales folds effect output into dst, a copy of the observation table.
// Cells are rewritten only where the effect changed a value, so untouched
// rows keep their original representation.
func writeSales(dst *table.Table, c salesColumns, before, after []Sale) error {
	if len(after) != len(before) {
		return eris.Errorf("enrich: effect returned %d rows for %d observations", len(after), len(before))
	}
	for i, r := range dst.Rows {
		b, a := before[i], after[i]
		if a.ProductID != b.ProductID || !a.Date.Equal(b.Date) {
			return eris.Errorf("enrich: effect reordered rows: row %d is %s/%s, want %s/%s",
				i, a.ProductID, a.Date.Format(DateLayout), b.ProductID, b.Date.Format(DateLayout))
		}
		if a.Quantity != b.Quantity {
			r[c.quantity] = a.Quantity
		}
		if a.UnitPrice != b.UnitPrice {
			for _, p := range c.prices {
				r[p] = a.UnitPrice
			}
		}
		if !c.hasRevenue || a.Revenue != b.Revenue {
			r[ColRevenue] = a.Revenue
		}
		if c.funnel && a.Funnel != nil && b.Funnel != nil && *a.Funnel != *b.Funnel {
			r[ColImpressions] = a.Funnel.Impressions
			r[ColVisits] = a.Funnel.Visits
			r[ColCartAdds] = a.Funnel.CartAdds
		}
		r[ColEnriched] = a.Enriched
	}
	dst.AppendColumn(ColRevenue)
	dst.AppendColumn(ColEnriched)
	return nil
}

func outcomesTable(outcomes []PotentialOutcome) *table.Table {
	t := table.New(ColProductID, ColDate, ColY0, ColY1)
	t.Rows = make([]table.Row, len(outcomes))
	for i, o := range outcomes {
		t.Rows[i] = table.Row{
			ColProductID: o.ProductID,
			ColDate:      o.Date.Format(DateLayout),
			ColY0:        o.Y0,
			ColY1:        o.Y1,
		}
	}
	return t
}

func readProducts(t *table.Table) ([]details.Product, error) {
	id := firstPresent(t, idAliases)
	if id == "" {
		return nil, eris.Wrapf(ErrInput, "products have no identifier column (want one of %s)", strings.Join(idAliases, ", "))
	}
	price := firstPresent(t, []string{"price", "unit_price"})

	out := make([]details.Product, len(t.Rows))
	for i, r := range t.Rows {
		p := details.Product{
			ID:          table.String(r[id]),
			Category:    table.String(r["category"]),
			Title:       table.String(r["title"]),
			Description: table.String(r["description"]),
			Brand:       table.String(r["brand"]),
		}
		if p.ID == "" {
			return nil, eris.Wrapf(ErrInput, "product row %d: empty %s", i, id)
		}
		if price != "" {
			p.Price, _ = table.Float(r[price])
		}
		switch f := r["features"].(type) {
		case []string:
			p.Features = f
		case string:
			p.Features = table.SplitList(f)
		}
		p.QualityScore, _ = table.Float(r["quality_score"])
		p.Enriched, _ = r[ColEnriched].(bool)
		out[i] = p
	}
	return out, nil
}

// productsTable writes prods over a copy of src, row for row, keeping every
// source column and appending the detail columns.
func productsTable(src *table.Table, prods []details.Product) (*table.Table, error) {
	if len(prods) != src.Len() {
		return nil, eris.Errorf("enrich: effect returned %d products for %d catalog rows", len(prods), src.Len())
	}
	t := src.Clone()
	for i, p := range prods {
		r := t.Rows[i]
		r["title"] = p.Title
		r["description"] = p.Description
		r["brand"] = p.Brand
		r["features"] = p.Features
		r["quality_score"] = p.QualityScore
		r[ColEnriched] = p.Enriched
	}
	for _, col := range detailColumns {
		t.AppendColumn(col)
	}
	return t, nil
}

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		y, m, day := d.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
	case string:
		s := strings.TrimSpace(d)
		if len(s) > len(DateLayout) {
			s = s[:len(DateLayout)]
		}
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return time.Time{}, eris.Errorf("date %q is not YYYY-MM-DD", d)
		}
		return t, nil
	default:
		return time.Time{}, eris.Errorf("date %v has unsupported type %T", v, v)
	}
}

func intCell(r table.Row, col string) (int64, error) {
	v := r[col]
	if v == nil {
		return 0, nil
	}
	n, ok := table.Int(v)
	if !ok {
		return 0, eris.Errorf("%s %v is not a whole number", col, v)
	}
	return n, nil
}
