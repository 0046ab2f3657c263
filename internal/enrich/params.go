package enrich

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BoostParams configures the immediate quantity boost.
type BoostParams struct {
	EffectSize         float64 `mapstructure:"effect_size" validate:"gte=0"`
	EnrichmentFraction float64 `mapstructure:"enrichment_fraction" validate:"gte=0,lte=1"`
	EnrichmentStart    string  `mapstructure:"enrichment_start" validate:"required,datetime=2006-01-02"`
	Seed               int64   `mapstructure:"seed"`
	// MinUnits floors boosted quantities when potential outcomes are
	// requested. Rows with zero base units stay at zero.
	MinUnits int64 `mapstructure:"min_units" validate:"gte=0"`
}

// DefaultBoostParams returns the defaults for quantity_boost.
func DefaultBoostParams() BoostParams {
	return BoostParams{
		EffectSize:         0.5,
		EnrichmentFraction: 0.3,
		EnrichmentStart:    "2024-11-15",
		Seed:               42,
		MinUnits:           1,
	}
}

// Start returns EnrichmentStart as a UTC date.
func (p BoostParams) Start() time.Time {
	t, _ := time.ParseInLocation(DateLayout, p.EnrichmentStart, time.UTC)
	return t
}

// RampParams configures combined_boost.
type RampParams struct {
	BoostParams `mapstructure:",squash"`
	RampDays    int `mapstructure:"ramp_days"`
}

// DefaultRampParams returns the defaults for combined_boost.
func DefaultRampParams() RampParams {
	return RampParams{BoostParams: DefaultBoostParams(), RampDays: 7}
}

// DetailParams configures product_detail_boost.
type DetailParams struct {
	RampParams `mapstructure:",squash"`
	Backend    string `mapstructure:"backend" validate:"required"`
	// DetailFraction sizes the text-regeneration group. Defaults to
	// EnrichmentFraction.
	DetailFraction *float64 `mapstructure:"detail_fraction" validate:"omitempty,gte=0,lte=1"`
	// DetailSeed seeds the text-regeneration draw. Defaults to Seed + 1, so
	// the group is drawn independently of the sales treatment group.
	DetailSeed *int64 `mapstructure:"detail_seed"`
}

// DefaultDetailParams returns the defaults for product_detail_boost.
func DefaultDetailParams() DetailParams {
	return DetailParams{RampParams: DefaultRampParams(), Backend: "mock"}
}

func (p DetailParams) detailFraction() float64 {
	if p.DetailFraction != nil {
		return *p.DetailFraction
	}
	return p.EnrichmentFraction
}

func (p DetailParams) detailSeed() int64 {
	if p.DetailSeed != nil {
		return *p.DetailSeed
	}
	return p.Seed + 1
}

// decodeParams overlays raw onto dst (which already holds defaults) and
// validates the result. Keys dst does not declare are logged and ignored.
func decodeParams(raw map[string]any, dst any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(dateToString),
	})
	if err != nil {
		return eris.Wrap(err, "enrich: build param decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return eris.Wrapf(ErrConfig, "decode params: %v", err)
	}
	if len(md.Unused) > 0 {
		zap.L().Warn("enrich: ignoring unknown treatment params", zap.Strings("params", md.Unused))
	}

	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(dst); err != nil {
		return eris.Wrapf(ErrConfig, "validate params: %v", err)
	}
	return nil
}

// dateToString lets YAML timestamps fill string date parameters.
func dateToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if t, ok := data.(time.Time); ok {
		return t.Format(DateLayout), nil
	}
	return data, nil
}
