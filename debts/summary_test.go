package debts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
)

// householdScenario returns the three-obligation household used across tests:
// A pending and due in 3 days, B overdue, C already paid.
func householdScenario() (now time.Time, a, b, c debts.Obligation) {
	now = at(2024, time.March, 10, 9)

	a = withCustomDay(obligation("A", 1000, debts.StatusPending), 13, 5)
	b = obligation("B", 500, debts.StatusOverdue)
	c = obligation("C", 2000, debts.StatusPaid)
	return now, a, b, c
}

func assertMoney(t *testing.T, want int64, got finance.Money, field string) {
	t.Helper()
	assert.True(t, got.Equal(finance.MoneyFromInt(want)), "%s: want %d, got %s", field, want, got)
}

func TestSummarize_Empty(t *testing.T) {
	s := debts.Summarize(nil, at(2024, time.March, 10, 9))

	assert.True(t, s.TotalAmount.IsZero())
	assert.True(t, s.TotalPending.IsZero())
	assert.True(t, s.TotalOverdue.IsZero())
	assert.True(t, s.TotalPaid.IsZero())
	assert.True(t, s.MonthlyProjection.IsZero())
	assert.True(t, s.BiweeklyProjection.IsZero())
	assert.Nil(t, s.NextDueDate)
	assert.Nil(t, s.NextDueAmount)
	assert.Empty(t, s.NextDueID)
	assert.Zero(t, s.Installments)
	assert.Zero(t, s.Progress())
}

func TestHouseholdScenario_EndToEnd(t *testing.T) {
	// GIVEN: A pending in 3 days (threshold 5), B overdue, C paid
	now, a, b, c := householdScenario()
	all := []debts.Obligation{a, b, c}

	// WHEN: Classifying each obligation
	// THEN: A needs attention, B is critical
	ha := debts.Evaluate(a, now)
	assert.Equal(t, 3, ha.DaysToDue)
	assert.Equal(t, debts.RiskAttention, ha.Tier)
	assert.Equal(t, debts.RiskCritical, debts.Evaluate(b, now).Tier)

	// WHEN: Summarizing
	s := debts.Summarize(all, now)

	// THEN: Totals split by status bucket
	assertMoney(t, 3500, s.TotalAmount, "total")
	assertMoney(t, 1000, s.TotalPending, "pending")
	assertMoney(t, 500, s.TotalOverdue, "overdue")
	assertMoney(t, 2000, s.TotalPaid, "paid")

	// THEN: A is the next due item
	require.NotNil(t, s.NextDueDate)
	assert.Equal(t, date(2024, time.March, 13), *s.NextDueDate)
	assertMoney(t, 1000, *s.NextDueAmount, "next due amount")
	assert.Equal(t, "A", s.NextDueID)
}

func TestSummarize_TotalsAreOrderIndependent(t *testing.T) {
	now, a, b, c := householdScenario()
	d := obligation("D", 750, debts.StatusPostponed)
	d.Frequency = debts.FrequencyBiweekly

	orders := [][]debts.Obligation{
		{a, b, c, d},
		{d, c, b, a},
		{b, d, a, c},
		{c, a, d, b},
	}

	base := debts.Summarize(orders[0], now)
	for _, order := range orders[1:] {
		s := debts.Summarize(order, now)
		assert.True(t, base.TotalAmount.Equal(s.TotalAmount))
		assert.True(t, base.TotalPending.Equal(s.TotalPending))
		assert.True(t, base.TotalOverdue.Equal(s.TotalOverdue))
		assert.True(t, base.TotalPaid.Equal(s.TotalPaid))
		assert.True(t, base.MonthlyProjection.Equal(s.MonthlyProjection))
		assert.True(t, base.BiweeklyProjection.Equal(s.BiweeklyProjection))
		assert.Equal(t, base.Installments, s.Installments)
	}
}

func TestSummarize_NextDueTie_FirstSeenWins(t *testing.T) {
	// GIVEN: Two unpaid obligations sharing the same earliest due date
	now := at(2024, time.March, 10, 9)
	x := withCustomDay(obligation("X", 100, debts.StatusPending), 20, 3)
	y := withCustomDay(obligation("Y", 900, debts.StatusPending), 20, 3)

	// WHEN / THEN: The first one in input order is reported
	s := debts.Summarize([]debts.Obligation{x, y}, now)
	assert.Equal(t, "X", s.NextDueID)
	assertMoney(t, 100, *s.NextDueAmount, "x first")

	s = debts.Summarize([]debts.Obligation{y, x}, now)
	assert.Equal(t, "Y", s.NextDueID)
	assertMoney(t, 900, *s.NextDueAmount, "y first")
}

func TestSummarize_NextDue_SkipsOnlyPaid(t *testing.T) {
	now := at(2024, time.March, 10, 9)
	paid := withCustomDay(obligation("paid", 100, debts.StatusPaid), 11, 3)
	archived := withCustomDay(obligation("archived", 200, debts.StatusArchived), 12, 3)
	pending := withCustomDay(obligation("pending", 300, debts.StatusPending), 25, 3)

	s := debts.Summarize([]debts.Obligation{paid, archived, pending}, now)

	assert.Equal(t, "archived", s.NextDueID)
	// Archived counts toward the total only.
	assertMoney(t, 600, s.TotalAmount, "total")
	assertMoney(t, 300, s.TotalPending, "pending")
	assertMoney(t, 100, s.TotalPaid, "paid")
}

func TestSummarize_Projection(t *testing.T) {
	now := at(2024, time.March, 10, 9)

	monthly := obligation("m", 1001, debts.StatusPending)
	biweekly := obligation("b", 1000, debts.StatusPending)
	biweekly.Frequency = debts.FrequencyBiweekly
	custom := obligation("c", 200, debts.StatusPending)
	custom.Frequency = debts.FrequencyCustom

	s := debts.Summarize([]debts.Obligation{monthly, biweekly, custom}, now)

	// monthly: 1001 + 500 + 200
	assertMoney(t, 1701, s.MonthlyProjection, "monthly")
	// biweekly: round(500.5) + 1000 + 100
	assertMoney(t, 1601, s.BiweeklyProjection, "biweekly")
}

func TestSummarize_MalformedAmountsCountAsZero(t *testing.T) {
	now := at(2024, time.March, 10, 9)

	good := obligation("good", 100, debts.StatusPending)
	asString := obligation("string", 0, debts.StatusPending)
	asString.Amount = finance.AmountFromString("250.50")
	broken := obligation("broken", 0, debts.StatusPending)
	broken.Amount = finance.AmountFromString("twelve")
	empty := obligation("empty", 0, debts.StatusPending)
	empty.Amount = ""

	s := debts.Summarize([]debts.Obligation{good, asString, broken, empty}, now)

	assert.True(t, s.TotalAmount.Equal(finance.MustParseMoney("350.50")), "got %s", s.TotalAmount)
	assert.Equal(t, 2, s.MalformedAmounts)
}

func TestSummarize_Installments(t *testing.T) {
	now := at(2024, time.March, 10, 9)

	total := 12
	loan := obligation("loan", 100, debts.StatusPending)
	loan.TotalInstallments = &total
	loan.InstallmentsPaid = 3

	// Jan 15 -> Mar 10 is one whole month.
	open := obligation("open", 100, debts.StatusPending)
	open.StartDate = date(2024, time.January, 15)
	open.InstallmentsPaid = 1

	// Ends before a whole month passes: floored at one.
	short := obligation("short", 100, debts.StatusPending)
	short.StartDate = date(2024, time.March, 1)
	end := date(2024, time.March, 20)
	short.EndDate = &end

	// A year-long plan.
	long := obligation("long", 100, debts.StatusPending)
	long.StartDate = date(2023, time.March, 10)
	longEnd := date(2024, time.March, 10)
	long.EndDate = &longEnd

	s := debts.Summarize([]debts.Obligation{loan, open, short, long}, now)

	assert.Equal(t, 12+1+1+12, s.Installments)
	assert.Equal(t, 4, s.InstallmentsPaid)
	assert.InDelta(t, 15.4, s.Progress(), 0.0001)
}

func TestSummarize_Installments_MissingStartDate(t *testing.T) {
	// GIVEN: An open-ended obligation with no start date
	o := obligation("undated", 100, debts.StatusPending)
	o.StartDate = time.Time{}

	// WHEN: Summarizing
	s := debts.Summarize([]debts.Obligation{o}, at(2024, time.March, 10, 9))

	// THEN: It counts as a single installment, not months since year one
	assert.Equal(t, 1, s.Installments)
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	now, a, b, c := householdScenario()
	in := []debts.Obligation{a, b, c}
	before := append([]debts.Obligation(nil), in...)

	debts.Summarize(in, now)

	assert.Equal(t, before, in)
}
