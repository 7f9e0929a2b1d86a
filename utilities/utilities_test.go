package utilities_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func measurement(serviceID string, start time.Time, units string, amount finance.Amount) utilities.Measurement {
	return utilities.Measurement{
		ID:          serviceID + start.Format("0102"),
		ServiceID:   serviceID,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, 9),
		UnitsUsed:   decimal.RequireFromString(units),
		Amount:      amount,
		Status:      utilities.MeasurementConfirmed,
	}
}

func service(id string, budget *int64) utilities.Service {
	s := utilities.Service{ID: id, Name: id, Kind: utilities.KindOther, RatePerUnit: finance.AmountFromInt(100)}
	if budget != nil {
		b := finance.AmountFromInt(*budget)
		s.MonthlyBudget = &b
	}
	return s
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// VARIANCE
// =============================================================================

func TestVariance(t *testing.T) {
	tests := []struct {
		name           string
		current, prior int64
		want           decimal.Decimal
	}{
		{"nothing to nothing", 0, 0, pct("0")},
		{"nothing to something", 100, 0, pct("100")},
		{"halved", 100, 200, pct("-50")},
		{"doubled", 400, 200, pct("100")},
		{"unchanged", 200, 200, pct("0")},
		{"to nothing", 0, 200, pct("-100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := utilities.Variance(finance.MoneyFromInt(tt.current), finance.MoneyFromInt(tt.prior))
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestComparePeriods(t *testing.T) {
	// GIVEN: Water with a budget and two current readings; power without a budget
	budget := int64(25000)
	water := service("water", &budget)
	power := service("power", nil)
	idle := service("idle", nil)

	current := []utilities.Measurement{
		measurement("water", day(2024, time.March, 1), "10", finance.AmountFromInt(15000)),
		measurement("water", day(2024, time.March, 15), "12.5", finance.AmountFromString("15000")),
		measurement("power", day(2024, time.March, 1), "150", finance.AmountFromInt(30000)),
		measurement("ghost", day(2024, time.March, 1), "1", finance.AmountFromInt(999)),
	}
	prior := []utilities.Measurement{
		measurement("water", day(2024, time.February, 1), "20", finance.AmountFromInt(20000)),
		measurement("power", day(2024, time.February, 1), "140", finance.AmountFromString("n/a")),
	}

	// WHEN: Comparing
	insights := utilities.ComparePeriods(current, prior, []utilities.Service{water, power, idle})

	// THEN: One insight per service, in service order
	require.Len(t, insights, 3)

	w := insights[0]
	assert.Equal(t, "water", w.Service.ID)
	assert.True(t, w.CurrentAmount.Equal(finance.MoneyFromInt(30000)))
	assert.True(t, w.PreviousAmount.Equal(finance.MoneyFromInt(20000)))
	assert.True(t, pct("50").Equal(w.VariancePercent), "got %s", w.VariancePercent)
	assert.True(t, pct("11.25").Equal(w.AverageUnits), "got %s", w.AverageUnits)
	require.NotNil(t, w.BudgetGoal)
	assert.True(t, w.OverBudget)

	p := insights[1]
	// A malformed prior amount normalizes to zero: growth from zero.
	assert.True(t, p.PreviousAmount.IsZero())
	assert.True(t, pct("100").Equal(p.VariancePercent))
	assert.Nil(t, p.BudgetGoal)
	assert.False(t, p.OverBudget)

	i := insights[2]
	assert.True(t, i.CurrentAmount.IsZero())
	assert.True(t, i.VariancePercent.IsZero())
	assert.True(t, i.AverageUnits.IsZero())

	// WHEN: Summarizing
	o := utilities.Summarize(insights)

	// THEN: The same rule over the grand totals
	assert.True(t, o.TotalCurrent.Equal(finance.MoneyFromInt(60000)))
	assert.True(t, o.TotalPrevious.Equal(finance.MoneyFromInt(20000)))
	assert.True(t, pct("200").Equal(o.VariancePercent))
}

func TestSummarize_Empty(t *testing.T) {
	o := utilities.Summarize(nil)
	assert.True(t, o.TotalCurrent.IsZero())
	assert.True(t, o.VariancePercent.IsZero())
}

func TestAverageUnits_RoundsToTwoPlaces(t *testing.T) {
	svc := service("gas", nil)
	current := []utilities.Measurement{
		measurement("gas", day(2024, time.March, 1), "1", finance.AmountFromInt(1)),
		measurement("gas", day(2024, time.March, 11), "1", finance.AmountFromInt(1)),
		measurement("gas", day(2024, time.March, 21), "2", finance.AmountFromInt(1)),
	}

	insights := utilities.ComparePeriods(current, nil, []utilities.Service{svc})

	assert.True(t, pct("1.33").Equal(insights[0].AverageUnits), "got %s", insights[0].AverageUnits)
}

// =============================================================================
// PERIOD SPLIT
// =============================================================================

func TestSplitByMonth(t *testing.T) {
	now := time.Date(2024, time.March, 18, 10, 0, 0, 0, time.UTC)

	inMarch := measurement("w", day(2024, time.March, 2), "1", "1")
	// Windows are ten days long: these two end on Mar 31 and Feb 29.
	endOfMarch := measurement("w", day(2024, time.March, 22), "1", "1")
	inFeb := measurement("w", day(2024, time.February, 20), "1", "1")
	spanning := measurement("w", day(2024, time.February, 25), "1", "1")
	old := measurement("w", day(2024, time.January, 3), "1", "1")

	current, prior := utilities.SplitByMonth([]utilities.Measurement{inMarch, endOfMarch, inFeb, spanning, old}, now)

	assert.Equal(t, []utilities.Measurement{inMarch, endOfMarch}, current)
	assert.Equal(t, []utilities.Measurement{inFeb}, prior)
}

// =============================================================================
// ESTIMATES
// =============================================================================

func TestEstimateAmount(t *testing.T) {
	got := utilities.EstimateAmount(decimal.RequireFromString("12.3"), finance.AmountFromInt(1200))
	assert.True(t, got.Equal(finance.MoneyFromInt(14760)))

	got = utilities.EstimateAmount(decimal.RequireFromString("0.5"), finance.AmountFromInt(190))
	assert.True(t, got.Equal(finance.MoneyFromInt(95)))

	got = utilities.EstimateAmount(decimal.RequireFromString("3"), "broken")
	assert.True(t, got.IsZero())
}

func TestResolve(t *testing.T) {
	svc := service("water", nil)
	svc.RatePerUnit = finance.AmountFromInt(1200)

	blank := measurement("water", day(2024, time.March, 1), "10", "")
	blank.Status = utilities.MeasurementConfirmed

	out, estimated := utilities.Resolve(blank, svc)
	assert.True(t, estimated)
	assert.Equal(t, utilities.MeasurementEstimated, out.Status)
	assert.True(t, out.Amount.Money().Equal(finance.MoneyFromInt(12000)))

	given := measurement("water", day(2024, time.March, 1), "10", finance.AmountFromInt(5000))
	out, estimated = utilities.Resolve(given, svc)
	assert.False(t, estimated)
	assert.Equal(t, given, out)
}

func TestDefaultServices(t *testing.T) {
	services := utilities.DefaultServices()

	require.Len(t, services, 4)
	kinds := []utilities.Kind{}
	for _, s := range services {
		kinds = append(kinds, s.Kind)
		require.NoError(t, s.Validate())
		require.NotNil(t, s.MonthlyBudget)
	}
	assert.Equal(t, []utilities.Kind{utilities.KindWater, utilities.KindElectricity, utilities.KindGas, utilities.KindInternet}, kinds)
	assert.True(t, services[0].RatePerUnit.Money().Equal(finance.MoneyFromInt(1200)))
	assert.True(t, services[1].MonthlyBudget.Money().Equal(finance.MoneyFromInt(42000)))
}

func TestMeasurement_Validate(t *testing.T) {
	m := measurement("w", day(2024, time.March, 1), "3", "10")
	require.NoError(t, m.Validate())

	bad := m
	bad.PeriodEnd = day(2024, time.February, 1)
	assert.ErrorIs(t, bad.Validate(), finance.ErrInvalidInput)

	bad = m
	bad.UnitsUsed = decimal.NewFromInt(-1)
	assert.ErrorIs(t, bad.Validate(), finance.ErrInvalidInput)
}
