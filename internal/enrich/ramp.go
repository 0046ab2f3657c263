package enrich

import (
	"time"

	"github.com/sells-group/retail-sim/internal/money"
)

// DateLayout is the calendar date format used by observation tables and
// treatment parameters.
const DateLayout = time.DateOnly

// RampFactor scales the configured effect on obs for a treatment that
// started on start. It grows linearly from 0 on the start date itself to 1
// after rampDays whole days. rampDays <= 0 disables ramping. Callers gate
// on obs >= start; earlier dates return 0.
func RampFactor(obs, start time.Time, rampDays int) float64 {
	if rampDays <= 0 {
		return 1.0
	}
	days := daysBetween(start, obs)
	if days <= 0 {
		return 0
	}
	return min(1.0, float64(days)/float64(rampDays))
}

// daysBetween counts calendar days from a to b, ignoring clock time.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// onOrAfter reports whether obs falls on or after start's calendar day.
func onOrAfter(obs, start time.Time) bool {
	return daysBetween(start, obs) >= 0
}

// boostQuantity scales q by (1 + effect) and truncates toward zero.
func boostQuantity(q int64, effect float64) int64 {
	return int64(float64(q) * (1 + effect))
}

// boostSale returns s with its quantity boosted by effect and revenue
// recomputed. Funnel stages below the new quantity are lifted so the
// hierarchy still holds.
func boostSale(s Sale, effect float64, minUnits int64) Sale {
	q := boostQuantity(s.Quantity, effect)
	if minUnits > 0 && s.Quantity > 0 {
		q = max(q, minUnits)
	}
	s.Quantity = q
	s.Revenue = money.Revenue(q, s.UnitPrice)
	if s.Funnel != nil {
		f := *s.Funnel
		f.CartAdds = max(f.CartAdds, q)
		f.Visits = max(f.Visits, f.CartAdds)
		f.Impressions = max(f.Impressions, f.Visits)
		s.Funnel = &f
	}
	return s
}
