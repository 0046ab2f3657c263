package simulate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/table"
)

// Detail columns added by Describe.
const (
	ColTitle        = "title"
	ColDescription  = "description"
	ColBrand        = "brand"
	ColFeatures     = "features"
	ColQualityScore = "quality_score"
)

// Describe returns a copy of catalog with baseline text details generated by
// backend for every product.
func Describe(ctx context.Context, catalog *table.Table, backend details.Backend) (*table.Table, error) {
	if catalog == nil {
		return nil, eris.New("simulate: describe: no catalog")
	}
	prods := make([]details.Product, catalog.Len())
	for i, r := range catalog.Rows {
		prods[i].ID = table.String(r[ColProductID])
		prods[i].Category = table.String(r[ColCategory])
		prods[i].Price, _ = table.Float(r[ColPrice])
		if prods[i].ID == "" {
			return nil, eris.Errorf("simulate: describe: row %d has no %s", i, ColProductID)
		}
	}

	out, err := backend.Regenerate(ctx, prods, false)
	if err != nil {
		return nil, eris.Wrapf(err, "simulate: describe with %s", backend.Name())
	}
	if err := details.CheckIDs(prods, out); err != nil {
		return nil, eris.Wrap(err, "simulate: describe")
	}

	t := catalog.Clone()
	for i, p := range out {
		r := t.Rows[i]
		r[ColTitle] = p.Title
		r[ColDescription] = p.Description
		r[ColBrand] = p.Brand
		r[ColFeatures] = p.Features
		r[ColQualityScore] = details.QualityScore(p)
	}
	for _, c := range []string{ColTitle, ColDescription, ColBrand, ColFeatures, ColQualityScore} {
		t.AppendColumn(c)
	}
	return t, nil
}
