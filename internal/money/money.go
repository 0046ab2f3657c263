// Package money computes currency amounts with decimal arithmetic so that
// revenue figures round the same way every time they are derived.
package money

import (
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

var ctx = apd.BaseContext.WithPrecision(34)

// Revenue returns quantity x unitPrice rounded half-even to 2 decimal places.
// A zero quantity always yields 0.
func Revenue(quantity int64, unitPrice float64) float64 {
	if quantity == 0 {
		return 0
	}
	price, ok := decimalFromFloat(unitPrice)
	if !ok {
		return Round2(float64(quantity) * unitPrice)
	}
	var q, product apd.Decimal
	q.SetInt64(quantity)
	ctx.Mul(&product, &q, &price)
	return quantize2(&product)
}

// Round2 rounds v half-even to 2 decimal places.
func Round2(v float64) float64 {
	d, ok := decimalFromFloat(v)
	if !ok {
		return v
	}
	return quantize2(&d)
}

// Equal reports whether a and b are the same amount at cent precision.
func Equal(a, b float64) bool {
	return Round2(a) == Round2(b)
}

func quantize2(d *apd.Decimal) float64 {
	var out apd.Decimal
	c := *ctx
	c.Rounding = apd.RoundHalfEven
	if _, err := c.Quantize(&out, d, -2); err != nil {
		f, _ := d.Float64()
		return f
	}
	f, err := out.Float64()
	if err != nil {
		return 0
	}
	return f
}

// decimalFromFloat uses the shortest decimal representation of v, so 19.99
// stays 19.99 rather than its binary expansion.
func decimalFromFloat(v float64) (apd.Decimal, bool) {
	var d apd.Decimal
	if _, _, err := d.SetString(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
		return d, false
	}
	return d, true
}
