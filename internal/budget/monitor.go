// Package budget implements the semáforo: the three-tier budget-consumption
// indicator computed fresh from the site aggregates on every read.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmezas/control-obras/internal/models"
)

// Tier is the budget-consumption tier.
type Tier string

const (
	TierGreen   Tier = "VERDE"
	TierAmber   Tier = "AMBAR"
	TierRed     Tier = "ROJO"
	TierUnknown Tier = "SIN DATOS"
)

// Tier thresholds are inclusive: exactly 95% is still green and exactly
// 100% is still amber.
var (
	greenLimit = decimal.NewFromInt(95)
	amberLimit = decimal.NewFromInt(100)
	hundred    = decimal.NewFromInt(100)
)

// Status is the evaluated budget state. Percent is only meaningful when
// HasPercent is set; a site without a configured budget has no percentage.
type Status struct {
	Tier       Tier
	Percent    decimal.Decimal
	HasPercent bool
	Message    string
	Color      string // display hex, matches the original dashboard palette
}

// Evaluate maps cumulative spend against the total budget to a tier.
// A non-positive budget yields TierUnknown instead of dividing by zero.
func Evaluate(spent, total decimal.Decimal) Status {
	if total.LessThanOrEqual(decimal.Zero) {
		return Status{Tier: TierUnknown, Message: "SIN DATOS", Color: "#95a5a6"}
	}

	pct := spent.Div(total).Mul(hundred)
	st := Status{Percent: pct, HasPercent: true}

	switch {
	case pct.LessThanOrEqual(greenLimit):
		st.Tier, st.Color = TierGreen, "#2ecc71"
	case pct.LessThanOrEqual(amberLimit):
		st.Tier, st.Color = TierAmber, "#f1c40f"
	default:
		st.Tier, st.Color = TierRed, "#e74c3c"
	}
	st.Message = fmt.Sprintf("%s (%s%%)", st.Tier, pct.StringFixed(1))
	return st
}

// DailyTotals sums expense entries, returning the spend booked on the given
// day alongside the cumulative spend across all entries.
func DailyTotals(gastos []models.ExpenseEntry, day string) (daily, cumulative decimal.Decimal) {
	daily, cumulative = decimal.Zero, decimal.Zero
	for _, g := range gastos {
		cumulative = cumulative.Add(g.Monto.Decimal)
		if g.Fecha == day {
			daily = daily.Add(g.Monto.Decimal)
		}
	}
	return daily, cumulative
}
