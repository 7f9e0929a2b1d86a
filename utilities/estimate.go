package utilities

import (
	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// EstimateAmount prices units at rate, rounded to whole currency units.
func EstimateAmount(units decimal.Decimal, rate finance.Amount) finance.Money {
	return finance.NewMoney(units.Mul(rate.Money().Value)).Round(0)
}

// Resolve fills in the amount of a measurement that arrived without one,
// using the service rate. Measurements with an amount are returned as is.
// The estimated flag is set when an amount was derived.
func Resolve(m Measurement, svc Service) (Measurement, bool) {
	if !m.Amount.IsEmpty() {
		return m, false
	}
	m.Amount = finance.AmountFromMoney(EstimateAmount(m.UnitsUsed, svc.RatePerUnit))
	m.Status = MeasurementEstimated
	return m, true
}

// =============================================================================
// PRESETS
// =============================================================================

type preset struct {
	name   string
	kind   Kind
	unit   string
	rate   int64
	budget int64
	color  string
}

var presets = []preset{
	{"Drinking water", KindWater, "m³", 1200, 25000, "#3b82f6"},
	{"Electricity", KindElectricity, "kWh", 190, 42000, "#f97316"},
	{"Household gas", KindGas, "m³", 850, 38000, "#facc15"},
	{"Internet & TV", KindInternet, "Mbps", 500, 29000, "#8b5cf6"},
}

// DefaultServices returns the services a new household starts with. IDs are
// left empty for the caller to assign.
func DefaultServices() []Service {
	out := make([]Service, 0, len(presets))
	for _, p := range presets {
		budget := finance.AmountFromInt(p.budget)
		out = append(out, Service{
			Name:          p.name,
			Kind:          p.kind,
			Unit:          p.unit,
			RatePerUnit:   finance.AmountFromInt(p.rate),
			MonthlyBudget: &budget,
			AutoEstimate:  true,
			Color:         p.color,
		})
	}
	return out
}
