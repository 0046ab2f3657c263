package enrich

import (
	"context"
	"maps"

	"github.com/rotisserie/eris"
)

// Effect is a pluggable treatment-effect model. DecodeParams turns the raw
// parameter mapping of a treatment into whatever Apply expects; it runs
// before any row is touched so bad specs fail early.
type Effect interface {
	DecodeParams(raw map[string]any) (any, error)
	Apply(ctx context.Context, in Input, params any) (*Output, error)
}

// checker is implemented by effects that can detect they were built
// incomplete.
type checker interface {
	check() error
}

type typedEffect[P any] struct {
	defaults func() P
	apply    func(context.Context, Input, P) (*Output, error)
}

// NewEffect builds an Effect with typed parameters. P should be a struct
// with mapstructure tags; validate tags are enforced after decoding over
// the values returned by defaults.
func NewEffect[P any](defaults func() P, apply func(context.Context, Input, P) (*Output, error)) Effect {
	return &typedEffect[P]{defaults: defaults, apply: apply}
}

func (e *typedEffect[P]) DecodeParams(raw map[string]any) (any, error) {
	p := e.defaults()
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *typedEffect[P]) Apply(ctx context.Context, in Input, params any) (*Output, error) {
	p, ok := params.(P)
	if !ok {
		return nil, eris.Wrapf(ErrConfig, "params have type %T", params)
	}
	return e.apply(ctx, in, p)
}

func (e *typedEffect[P]) check() error {
	if e == nil || e.defaults == nil || e.apply == nil {
		return eris.New("typed effect needs both defaults and apply")
	}
	return nil
}

// EffectFunc adapts a function taking the raw parameter mapping into an
// Effect.
type EffectFunc func(ctx context.Context, in Input, params map[string]any) (*Output, error)

// DecodeParams implements Effect. The mapping is passed through as a copy.
func (f EffectFunc) DecodeParams(raw map[string]any) (any, error) {
	return maps.Clone(raw), nil
}

// Apply implements Effect.
func (f EffectFunc) Apply(ctx context.Context, in Input, params any) (*Output, error) {
	raw, _ := params.(map[string]any)
	return f(ctx, in, raw)
}

func (f EffectFunc) check() error {
	if f == nil {
		return eris.New("nil effect func")
	}
	return nil
}
