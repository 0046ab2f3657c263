package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/money"
)

// Built-in effect names.
const (
	QuantityBoost      = "quantity_boost"
	ProbabilityBoost   = "probability_boost"
	CombinedBoost      = "combined_boost"
	ProductDetailBoost = "product_detail_boost"
)

// LoadBuiltins registers the built-in effects on r. It is the registry's
// default loader.
func LoadBuiltins(r *Registry) error {
	builtins := []struct {
		name   string
		effect Effect
	}{
		{QuantityBoost, NewEffect(DefaultBoostParams, quantityBoost)},
		{ProbabilityBoost, NewEffect(DefaultBoostParams, probabilityBoost)},
		{CombinedBoost, NewEffect(DefaultRampParams, combinedBoost)},
		{ProductDetailBoost, NewEffect(DefaultDetailParams, productDetailBoost)},
	}
	for _, b := range builtins {
		if err := r.register(b.name, b.effect); err != nil {
			return err
		}
	}
	return nil
}

// quantityBoost multiplies the units of treated products on and after the
// start date by (1 + effect_size).
func quantityBoost(_ context.Context, in Input, p BoostParams) (*Output, error) {
	treated := Assign(in.population(false), p.EnrichmentFraction, p.Seed)
	constant := func(time.Time) float64 { return p.EffectSize }
	return applyBoost(in, treated, p.Start(), constant, p.MinUnits), nil
}

// probabilityBoost is kept as a separate name for treatment files that use
// it; the effect is the quantity boost.
func probabilityBoost(ctx context.Context, in Input, p BoostParams) (*Output, error) {
	return quantityBoost(ctx, in, p)
}

// combinedBoost is the quantity boost with the effect ramped in linearly
// over ramp_days. The start date itself gets no boost when ramp_days > 0.
func combinedBoost(_ context.Context, in Input, p RampParams) (*Output, error) {
	treated := Assign(in.population(false), p.EnrichmentFraction, p.Seed)
	return applyBoost(in, treated, p.Start(), rampedEffect(p), p.MinUnits), nil
}

// productDetailBoost applies the ramped boost and regenerates the text of a
// second product group through a detail backend. Both groups are drawn from
// the catalog: the sales group with (enrichment_fraction, seed), the text
// group with (detail_fraction, detail_seed). The draws are independent
// unless the caller sets the same fraction and seed for both.
func productDetailBoost(ctx context.Context, in Input, p DetailParams) (*Output, error) {
	if len(in.Products) == 0 {
		return nil, eris.Wrapf(ErrConfig, "%s needs a product table", ProductDetailBoost)
	}
	backend, err := resolveBackend(in.Backends, p)
	if err != nil {
		return nil, err
	}

	population := in.population(true)
	salesGroup := Assign(population, p.EnrichmentFraction, p.Seed)
	textGroup := Assign(population, p.detailFraction(), p.detailSeed())

	var subset []details.Product
	for _, prod := range in.Products {
		if textGroup.Has(prod.ID) {
			subset = append(subset, prod.Clone())
		}
	}

	regenerated, err := backend.Regenerate(ctx, subset, true)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: regenerate details with %s", backend.Name())
	}
	if err := details.CheckIDs(subset, regenerated); err != nil {
		return nil, err
	}
	byID := make(map[string]details.Product, len(regenerated))
	for _, prod := range regenerated {
		byID[prod.ID] = prod
	}

	out := applyBoost(in, salesGroup, p.Start(), rampedEffect(p.RampParams), p.MinUnits)
	out.ProductsOriginal = make([]details.Product, len(in.Products))
	out.ProductsEnriched = make([]details.Product, len(in.Products))
	for i, prod := range in.Products {
		orig := prod.Clone()
		orig.QualityScore = details.QualityScore(orig)
		orig.Enriched = false
		out.ProductsOriginal[i] = orig

		next, ok := byID[prod.ID]
		if !ok {
			next = orig.Clone()
		}
		next.Enriched = ok
		out.ProductsEnriched[i] = next
	}

	zap.L().Debug("enrich: regenerated product details",
		zap.String("backend", backend.Name()),
		zap.Int("products", len(in.Products)),
		zap.Int("regenerated", len(regenerated)),
	)
	return out, nil
}

func resolveBackend(factory details.Factory, p DetailParams) (details.Backend, error) {
	if factory == nil {
		factory = details.NewFactory(p.Seed)
	}
	b, err := factory(p.Backend)
	switch {
	case errors.Is(err, details.ErrUnknownBackend):
		return nil, eris.Wrapf(ErrConfig, "%v", err)
	case err != nil:
		return nil, err
	}
	return b, nil
}

func rampedEffect(p RampParams) func(time.Time) float64 {
	start := p.Start()
	return func(d time.Time) float64 {
		return p.EffectSize * RampFactor(d, start, p.RampDays)
	}
}

// applyBoost runs the shared boost loop. Every row is tagged with its
// product's group membership. Rows of treated products dated on or after
// start are boosted by effect(date); all other rows pass through. When
// potential outcomes are requested, minUnits floors boosted quantities and
// Y0/Y1 are recorded for every row, treated or not.
func applyBoost(in Input, treated IDSet, start time.Time, effect func(time.Time) float64, minUnits int64) *Output {
	if !in.Outcomes {
		minUnits = 0
	}
	out := &Output{Sales: make([]Sale, len(in.Sales))}
	if in.Outcomes {
		out.Outcomes = make([]PotentialOutcome, len(in.Sales))
	}

	for i, s := range in.Sales {
		s = s.Clone()
		s.Enriched = treated.Has(s.ProductID)
		post := onOrAfter(s.Date, start)

		var boosted Sale
		if post {
			boosted = boostSale(s, effect(s.Date), minUnits)
		}
		if s.Enriched && post {
			out.Sales[i] = boosted
		} else {
			out.Sales[i] = s
		}

		if in.Outcomes {
			y0 := money.Revenue(s.Quantity, s.UnitPrice)
			y1 := y0
			if post {
				y1 = boosted.Revenue
			}
			out.Outcomes[i] = PotentialOutcome{ProductID: s.ProductID, Date: s.Date, Y0: y0, Y1: y1}
		}
	}
	return out
}
