package debts

import (
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// CATEGORY DISTRIBUTION
// =============================================================================

// Uncategorized is the synthetic bucket for obligations without a category.
const Uncategorized = "Uncategorized"

type CategoryTotal struct {
	Category string
	Amount   finance.Money
	Count    int
}

// GroupByCategory totals obligations per category in first-seen order.
// Amounts are rounded to cents.
func GroupByCategory(obligations []Obligation) []CategoryTotal {
	index := make(map[string]int)
	var groups []CategoryTotal

	for _, o := range obligations {
		amount := o.Amount.Money()
		key := o.Category
		if key == "" {
			key = Uncategorized
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, CategoryTotal{Category: key, Amount: finance.Zero()})
		}
		groups[i].Amount = groups[i].Amount.Add(amount)
		groups[i].Count++
	}

	for i := range groups {
		groups[i].Amount = groups[i].Amount.Cents()
	}
	return groups
}

// =============================================================================
// MONTHLY TREND
// =============================================================================

// DefaultTrendMonths is the width of the trend series when none is given.
const DefaultTrendMonths = 6

type TrendPoint struct {
	Key    string // "2006-01"
	Label  string // "Jan 06"
	Amount finance.Money
}

// BuildTrend returns monthCount monthly buckets ending with the month of
// now, oldest first.
//
// Paid obligations count in every bucket: there is no per-period payment
// ledger behind this series. Pending obligations add half their amount to
// the current month only, as a forecast. Bucket totals are rounded to
// whole units.
func BuildTrend(obligations []Obligation, now time.Time, monthCount int) []TrendPoint {
	if monthCount <= 0 {
		monthCount = DefaultTrendMonths
	}

	var paid, pendingForecast finance.Money = finance.Zero(), finance.Zero()
	for _, o := range obligations {
		amount := o.Amount.Money()
		switch o.Status {
		case StatusPaid:
			paid = paid.Add(amount)
		case StatusPending:
			pendingForecast = pendingForecast.Add(amount.Half())
		}
	}

	points := make([]TrendPoint, monthCount)
	current := finance.StartOfMonth(now)
	for i := 0; i < monthCount; i++ {
		month := finance.AddMonthsClamped(current, -i)
		amount := paid
		if i == 0 {
			amount = amount.Add(pendingForecast)
		}
		// Walked backward from now; stored oldest first.
		points[monthCount-1-i] = TrendPoint{
			Key:    month.Format("2006-01"),
			Label:  month.Format("Jan 06"),
			Amount: amount.Round(0),
		}
	}
	return points
}
