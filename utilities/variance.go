package utilities

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/finance"
)

var zeroBaselineGrowth = decimal.NewFromInt(100)

// Variance returns the percentage change from prior to current.
//
// With no prior spend there is no ratio to compute. Going from nothing to
// something is reported as a full 100% increase; nothing to nothing is 0.
func Variance(current, prior finance.Money) decimal.Decimal {
	if prior.IsZero() {
		if current.IsPositive() {
			return zeroBaselineGrowth
		}
		return decimal.Zero
	}
	return finance.PercentChange(current, prior)
}

// Insight compares one service across two billing periods.
type Insight struct {
	Service         Service
	CurrentAmount   finance.Money
	PreviousAmount  finance.Money
	VariancePercent decimal.Decimal
	AverageUnits    decimal.Decimal

	BudgetGoal *finance.Money
	OverBudget bool
}

// Overview is the variance over the totals of all services.
type Overview struct {
	TotalCurrent    finance.Money
	TotalPrevious   finance.Money
	VariancePercent decimal.Decimal
}

// ComparePeriods builds one insight per service, in service order.
// Measurements are matched to services by ServiceID; measurements of unknown
// services are ignored.
func ComparePeriods(current, prior []Measurement, services []Service) []Insight {
	insights := make([]Insight, 0, len(services))

	for _, svc := range services {
		cur := sumFor(current, svc.ID)
		prev := sumFor(prior, svc.ID)

		in := Insight{
			Service:         svc,
			CurrentAmount:   cur.amount,
			PreviousAmount:  prev.amount,
			VariancePercent: Variance(cur.amount, prev.amount),
			AverageUnits:    cur.averageUnits(),
		}
		if svc.MonthlyBudget != nil && svc.MonthlyBudget.Valid() {
			goal := svc.MonthlyBudget.Money()
			in.BudgetGoal = &goal
			in.OverBudget = cur.amount.GreaterThan(goal)
		}
		insights = append(insights, in)
	}
	return insights
}

// Summarize totals the insights and applies the same variance rule.
func Summarize(insights []Insight) Overview {
	o := Overview{TotalCurrent: finance.Zero(), TotalPrevious: finance.Zero()}
	for _, in := range insights {
		o.TotalCurrent = o.TotalCurrent.Add(in.CurrentAmount)
		o.TotalPrevious = o.TotalPrevious.Add(in.PreviousAmount)
	}
	o.VariancePercent = Variance(o.TotalCurrent, o.TotalPrevious)
	return o
}

type periodTotal struct {
	amount finance.Money
	units  decimal.Decimal
	count  int
}

func sumFor(measurements []Measurement, serviceID string) periodTotal {
	t := periodTotal{amount: finance.Zero(), units: decimal.Zero}
	for _, m := range measurements {
		if m.ServiceID != serviceID {
			continue
		}
		t.amount = t.amount.Add(m.Amount.Money())
		t.units = t.units.Add(m.UnitsUsed)
		t.count++
	}
	return t
}

// averageUnits is the mean over the period, rounded to 2 places. The divisor
// is floored at 1 so an empty period averages to 0.
func (t periodTotal) averageUnits() decimal.Decimal {
	n := t.count
	if n < 1 {
		n = 1
	}
	return t.units.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// SplitByMonth selects the measurements whose billing window lies inside
// the month of now (current) and inside the month before it (prior).
// Windows spanning both months belong to neither.
func SplitByMonth(measurements []Measurement, now time.Time) (current, prior []Measurement) {
	month := finance.MonthOf(now)
	previous := month.PreviousMonth()

	for _, m := range measurements {
		switch {
		case month.Covers(m.PeriodStart, m.PeriodEnd):
			current = append(current, m)
		case previous.Covers(m.PeriodStart, m.PeriodEnd):
			prior = append(prior, m)
		}
	}
	return current, prior
}
