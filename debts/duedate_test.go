package debts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func obligation(id string, amount int64, status debts.Status) debts.Obligation {
	return debts.Obligation{
		ID:                 id,
		Name:               "Obligation " + id,
		Amount:             finance.AmountFromInt(amount),
		Frequency:          debts.FrequencyMonthly,
		DueRule:            debts.DueEndOfMonth,
		StartDate:          date(2024, time.January, 1),
		Status:             status,
		AlertThresholdDays: 3,
	}
}

func withCustomDay(o debts.Obligation, day, threshold int) debts.Obligation {
	o.DueRule = debts.DueCustomDay
	o.CustomDueDay = day
	o.AlertThresholdDays = threshold
	return o
}

// =============================================================================
// RULE TESTS
// =============================================================================

func TestResolve_EndOfMonth_IsLastDayOfMonth(t *testing.T) {
	// GIVEN: An end-of-month obligation
	o := obligation("rent", 1000, debts.StatusPending)

	// WHEN: Resolving from the middle of every month of a leap and a common year
	// THEN: The day always equals the month length
	for _, year := range []int{2023, 2024} {
		for m := time.January; m <= time.December; m++ {
			due := debts.Resolve(o, at(year, m, 14, 9))
			assert.Equal(t, finance.DaysInMonth(year, m), due.Day(), "%d-%02d", year, m)
			assert.Equal(t, m, due.Month())
		}
	}
}

func TestResolve_Quincena(t *testing.T) {
	o := obligation("salary-loan", 500, debts.StatusPending)
	o.DueRule = debts.DueQuincena
	o.StartDate = date(2023, time.January, 1)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"first half goes to the 15th", at(2024, time.March, 3, 8), date(2024, time.March, 15)},
		{"day 15 is still first half", at(2024, time.March, 15, 23), date(2024, time.March, 15)},
		{"second half goes to the 30th", at(2024, time.March, 16, 0), date(2024, time.March, 30)},
		{"31-day month still uses the 30th", at(2024, time.March, 31, 12), date(2024, time.March, 30)},
		{"leap february overflows to march 1", at(2024, time.February, 20, 0), date(2024, time.March, 1)},
		{"common february overflows to march 2", at(2023, time.February, 20, 0), date(2023, time.March, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, debts.Resolve(o, tt.now))
		})
	}
}

func TestResolve_CustomDay(t *testing.T) {
	tests := []struct {
		name string
		day  int
		now  time.Time
		want time.Time
	}{
		{"later this month", 20, at(2024, time.March, 10, 9), date(2024, time.March, 20)},
		{"already passed rolls to next month", 5, at(2024, time.March, 10, 9), date(2024, time.April, 5)},
		{"due today at midnight stays today", 10, at(2024, time.March, 10, 0), date(2024, time.March, 10)},
		{"due today past midnight rolls to next month", 10, at(2024, time.March, 10, 10), date(2024, time.April, 10)},
		{"december rolls into january", 1, at(2024, time.December, 10, 9), date(2025, time.January, 1)},
		{"day past month end overflows", 31, at(2024, time.April, 10, 9), date(2024, time.May, 1)},
		{"missing day uses the reference day", 0, at(2024, time.March, 10, 0), date(2024, time.March, 10)},
		{"missing day past midnight rolls too", 0, at(2024, time.March, 10, 9), date(2024, time.April, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := withCustomDay(obligation("card", 100, debts.StatusPending), tt.day, 3)
			assert.Equal(t, tt.want, debts.Resolve(o, tt.now))
		})
	}
}

func TestResolve_FutureStartDate_UsesStartMonth(t *testing.T) {
	// GIVEN: An obligation that starts in June
	o := obligation("insurance", 300, debts.StatusPending)
	o.StartDate = date(2024, time.June, 5)

	// WHEN: Resolving in March
	due := debts.Resolve(o, at(2024, time.March, 10, 9))

	// THEN: The due date belongs to the start month
	assert.Equal(t, date(2024, time.June, 30), due)
}

func TestResolve_StoredNextDue_ReturnedUnchanged(t *testing.T) {
	stored := time.Date(2019, time.July, 4, 13, 37, 11, 42, time.FixedZone("X", -3*3600))

	rules := []debts.DueRule{debts.DueEndOfMonth, debts.DueQuincena, debts.DueCustomDay, "unknown"}
	nows := []time.Time{at(2018, time.January, 1, 0), at(2024, time.March, 10, 9), at(2031, time.December, 31, 23)}

	for _, rule := range rules {
		for _, now := range nows {
			o := obligation("stored", 100, debts.StatusPostponed)
			o.DueRule = rule
			o.CustomDueDay = 12
			o.NextDueDate = &stored

			got := debts.Resolve(o, now)
			assert.True(t, got.Equal(stored), "rule %s now %s", rule, now)
			assert.Equal(t, stored.Location(), got.Location())
		}
	}
}

func TestResolve_UnknownRule_ReturnsReferencePoint(t *testing.T) {
	o := obligation("odd", 100, debts.StatusPending)
	o.DueRule = "weekly"
	now := at(2024, time.March, 10, 9)

	assert.Equal(t, now, debts.Resolve(o, now))

	o.StartDate = date(2024, time.May, 2)
	assert.Equal(t, date(2024, time.May, 2), debts.Resolve(o, now))
}

type tenthOfMonth struct{}

func (tenthOfMonth) NextDue(_ debts.Obligation, ref time.Time) time.Time {
	return finance.DateIn(ref.Year(), ref.Month(), 10, ref.Location())
}

func TestRegisterDueRule_ExtendsResolve(t *testing.T) {
	// GIVEN: A rule registered by the caller
	debts.RegisterDueRule("tenth", tenthOfMonth{})

	o := obligation("school", 100, debts.StatusPending)
	o.DueRule = "tenth"

	// WHEN / THEN: Resolve dispatches to it
	assert.Equal(t, date(2024, time.March, 10), debts.Resolve(o, at(2024, time.March, 2, 9)))
}
