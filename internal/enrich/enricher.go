package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-sim/internal/details"
	"github.com/sells-group/retail-sim/internal/table"
)

// Enricher resolves a treatment against a registry and applies it to
// observation tables.
type Enricher struct {
	registry *Registry
	backends details.Factory
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithBackends sets the factory used to resolve detail backends. Without
// it, effects fall back to details.NewFactory seeded from their params.
func WithBackends(f details.Factory) Option {
	return func(e *Enricher) { e.backends = f }
}

// NewEnricher creates an Enricher over reg. A nil reg gets a fresh
// registry with the built-in effects.
func NewEnricher(reg *Registry, opts ...Option) *Enricher {
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Enricher{registry: reg}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Registry returns the registry the enricher resolves effects from.
func (e *Enricher) Registry() *Registry { return e.registry }

// Request is one enrichment call.
type Request struct {
	Treatment    Treatment
	Observations *table.Table
	// Products is the optional catalog, required by product_detail_boost.
	Products *table.Table
	// Outcomes asks for the Y0/Y1 potential-outcomes table.
	Outcomes bool
}

// Result holds the tables an enrichment produced.
type Result struct {
	// Enriched is the observation table with the effect folded in, the same
	// rows in the same order, plus an enriched column.
	Enriched *table.Table
	// Outcomes has product_identifier, date, Y0_revenue, Y1_revenue. Nil
	// unless requested.
	Outcomes *table.Table
	// ProductsOriginal and ProductsEnriched are set by detail-regenerating
	// effects.
	ProductsOriginal *table.Table
	ProductsEnriched *table.Table

	Function string
	Rows     int
	// Treated counts distinct products flagged as enriched.
	Treated int
}

// Enrich applies req.Treatment to req.Observations. Configuration and input
// errors are reported before the effect runs. On error no partial result is
// returned.
func (e *Enricher) Enrich(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	fn := req.Treatment.Function
	if fn == "" {
		return nil, eris.Wrap(ErrConfig, "treatment has no function name")
	}

	effect, err := e.registry.Get(fn)
	if err != nil {
		return nil, err
	}
	params, err := effect.DecodeParams(req.Treatment.Params)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: %s params", fn)
	}

	if req.Observations == nil {
		return nil, eris.Wrap(ErrInput, "no observation table")
	}
	cols, err := resolveSalesColumns(req.Observations)
	if err != nil {
		return nil, err
	}
	sales, err := readSales(req.Observations, cols)
	if err != nil {
		return nil, err
	}
	var products []details.Product
	if req.Products != nil {
		if products, err = readProducts(req.Products); err != nil {
			return nil, err
		}
	}

	in := Input{
		Sales:    cloneSales(sales),
		Products: products,
		Outcomes: req.Outcomes,
		Backends: e.backends,
	}
	out, err := effect.Apply(ctx, in, params)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: apply %s", fn)
	}
	if out == nil {
		return nil, eris.Errorf("enrich: %s returned no output", fn)
	}

	res := &Result{Function: fn, Rows: len(sales)}
	res.Enriched = req.Observations.Clone()
	if err := writeSales(res.Enriched, cols, sales, out.Sales); err != nil {
		return nil, err
	}
	res.Treated = countTreated(out.Sales)

	if req.Outcomes {
		if len(out.Outcomes) != len(sales) {
			return nil, eris.Errorf("enrich: %s returned %d potential outcomes for %d observations", fn, len(out.Outcomes), len(sales))
		}
		res.Outcomes = outcomesTable(out.Outcomes)
	}

	if req.Products != nil && out.ProductsEnriched != nil {
		if res.ProductsOriginal, err = productsTable(req.Products, out.ProductsOriginal); err != nil {
			return nil, err
		}
		if res.ProductsEnriched, err = productsTable(req.Products, out.ProductsEnriched); err != nil {
			return nil, err
		}
	}

	zap.L().Info("enrich: treatment applied",
		zap.String("function", fn),
		zap.Int("rows", res.Rows),
		zap.Int("treated_products", res.Treated),
		zap.Bool("outcomes", req.Outcomes),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func countTreated(sales []Sale) int {
	seen := make(map[string]struct{})
	for _, s := range sales {
		if s.Enriched {
			seen[s.ProductID] = struct{}{}
		}
	}
	return len(seen)
}
