// Package storetest holds the behaviour every store.Store implementation
// must share. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// Factory returns an empty store. Run closes it.
type Factory func(t *testing.T) store.Store

var base = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

// Obligation builds a valid pending obligation created offset minutes after
// the test base time.
func Obligation(id string, amount string, offset int) debts.Obligation {
	return debts.Obligation{
		ID:                 id,
		Name:               "Obligation " + id,
		Amount:             finance.Amount(amount),
		Currency:           "CLP",
		Frequency:          debts.FrequencyMonthly,
		DueRule:            debts.DueEndOfMonth,
		StartDate:          day(time.January, 1),
		Status:             debts.StatusPending,
		AlertThresholdDays: 5,
		CreatedAt:          base.Add(time.Duration(offset) * time.Minute),
		UpdatedAt:          base.Add(time.Duration(offset) * time.Minute),
	}
}

// Run executes the shared contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	open := func(t *testing.T) store.Store {
		s := newStore(t)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("ObligationRoundTrip", func(t *testing.T) { testObligationRoundTrip(t, open(t)) })
	t.Run("ListOrderAndFilter", func(t *testing.T) { testListOrderAndFilter(t, open(t)) })
	t.Run("StatusAndPostpone", func(t *testing.T) { testStatusAndPostpone(t, open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open(t)) })
	t.Run("RecordPayment", func(t *testing.T) { testRecordPayment(t, open(t)) })
	t.Run("Measurements", func(t *testing.T) { testMeasurements(t, open(t)) })
	t.Run("Reminders", func(t *testing.T) { testReminders(t, open(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, open(t)) })
}

func testObligationRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	// GIVEN: An obligation using every optional field
	total := 24
	end := day(time.December, 31)
	next := day(time.April, 5)
	o := Obligation("full", "189000.50", 0)
	o.Description = "Car loan"
	o.Category = "Transport"
	o.DueRule = debts.DueCustomDay
	o.CustomDueDay = 5
	o.EndDate = &end
	o.TotalInstallments = &total
	o.InstallmentsPaid = 3
	o.NextDueDate = &next
	o.Autopay = true
	o.Tags = []string{"bank", "car"}
	o.HouseholdMember = "ana"

	// WHEN: Saving and reading back
	require.NoError(t, s.SaveObligation(ctx, o))
	got, err := s.GetObligation(ctx, "full")

	// THEN: Nothing is lost, the amount text included
	require.NoError(t, err)
	assert.Equal(t, o, got)
	assert.Equal(t, finance.Amount("189000.50"), got.Amount)

	// WHEN: Saving again with changes (upsert)
	o.Name = "Car loan (refinanced)"
	o.Amount = "150000"
	require.NoError(t, s.SaveObligation(ctx, o))

	got, err = s.GetObligation(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, "Car loan (refinanced)", got.Name)
	assert.Equal(t, finance.Amount("150000"), got.Amount)
}

func testListOrderAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()

	c := Obligation("c", "300", 2)
	c.Category = "Credit"
	a := Obligation("a", "100", 0)
	a.Status = debts.StatusOverdue
	a.HouseholdMember = "luis"
	b := Obligation("b", "200", 1)
	b.Category = "Credit"
	for _, o := range []debts.Obligation{c, a, b} {
		require.NoError(t, s.SaveObligation(ctx, o))
	}

	all, err := s.ListObligations(ctx, store.ObligationFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	credit, err := s.ListObligations(ctx, store.ObligationFilter{Category: "Credit"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(credit))

	overdue, err := s.ListObligations(ctx, store.ObligationFilter{Statuses: []debts.Status{debts.StatusOverdue, debts.StatusPaid}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(overdue))

	luis, err := s.ListObligations(ctx, store.ObligationFilter{HouseholdMember: "luis"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(luis))
}

func testStatusAndPostpone(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveObligation(ctx, Obligation("x", "100", 0)))

	later := base.Add(time.Hour)
	require.NoError(t, s.UpdateStatus(ctx, "x", debts.StatusOverdue, later))
	got, err := s.GetObligation(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, debts.StatusOverdue, got.Status)
	assert.True(t, got.UpdatedAt.Equal(later))

	until := day(time.April, 2)
	require.NoError(t, s.Postpone(ctx, "x", until, later))
	got, err = s.GetObligation(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, debts.StatusPostponed, got.Status)
	require.NotNil(t, got.NextDueDate)
	assert.True(t, got.NextDueDate.Equal(until))
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetObligation(ctx, "missing")
	assert.ErrorIs(t, err, finance.ErrNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, "missing", debts.StatusPaid, base), finance.ErrNotFound)
	assert.ErrorIs(t, s.Postpone(ctx, "missing", base, base), finance.ErrNotFound)
	assert.ErrorIs(t, s.DeleteObligation(ctx, "missing"), finance.ErrNotFound)
	assert.ErrorIs(t, s.RecordPayment(ctx, Obligation("missing", "1", 0), debts.Payment{}), finance.ErrNotFound)
	_, err = s.GetService(ctx, "missing")
	assert.ErrorIs(t, err, finance.ErrNotFound)
	assert.ErrorIs(t, s.MarkDelivered(ctx, "missing", base), finance.ErrNotFound)
}

func testRecordPayment(t *testing.T, s store.Store) {
	ctx := context.Background()

	// GIVEN: A stored loan with 1 of 3 installments paid
	total := 3
	o := Obligation("loan", "400", 0)
	o.TotalInstallments = &total
	o.InstallmentsPaid = 1
	require.NoError(t, s.SaveObligation(ctx, o))

	// WHEN: Paying through the lifecycle action
	now := base.Add(2 * time.Hour)
	paid, err := debts.MarkPaid(o, now)
	require.NoError(t, err)
	require.NoError(t, s.RecordPayment(ctx, paid, debts.PaymentFor(o, now)))

	// THEN: Payment and obligation are both stored
	got, err := s.GetObligation(ctx, "loan")
	require.NoError(t, err)
	assert.Equal(t, 2, got.InstallmentsPaid)
	assert.Equal(t, debts.StatusPaid, got.Status)

	payments, err := s.ListPayments(ctx, "loan")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.NotEmpty(t, payments[0].ID)
	assert.Equal(t, "loan", payments[0].ObligationID)
	assert.Equal(t, debts.PaymentPaid, payments[0].Status)
	assert.True(t, payments[0].Amount.Money().Equal(finance.MoneyFromInt(400)))
	require.NotNil(t, payments[0].PaidAt)
	assert.True(t, payments[0].PaidAt.Equal(now))

	// WHEN: Deleting the obligation
	require.NoError(t, s.DeleteObligation(ctx, "loan"))

	// THEN: Its payments are gone too
	payments, err = s.ListPayments(ctx, "loan")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func testMeasurements(t *testing.T, s store.Store) {
	ctx := context.Background()

	budget := finance.Amount("25000")
	water := utilities.Service{
		ID: "water", Name: "Water", Kind: utilities.KindWater, Unit: "m³",
		RatePerUnit: "1200", MonthlyBudget: &budget, AutoEstimate: true,
		CreatedAt: base, UpdatedAt: base,
	}
	gas := utilities.Service{ID: "gas", Name: "Gas", Kind: utilities.KindGas, RatePerUnit: "850", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.SaveService(ctx, water))
	require.NoError(t, s.SaveService(ctx, gas))

	services, err := s.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Gas", services[0].Name)
	require.NotNil(t, services[1].MonthlyBudget)
	assert.Equal(t, budget, *services[1].MonthlyBudget)

	measure := func(id, svc string, start time.Time, units string, amount finance.Amount) utilities.Measurement {
		return utilities.Measurement{
			ID: id, ServiceID: svc, PeriodStart: start, PeriodEnd: start.AddDate(0, 0, 9),
			UnitsUsed: decimal.RequireFromString(units), Amount: amount,
			Status: utilities.MeasurementConfirmed, CreatedAt: base, UpdatedAt: base,
		}
	}
	require.NoError(t, s.SaveMeasurement(ctx, measure("m1", "water", day(time.February, 3), "10.5", "12600")))
	require.NoError(t, s.SaveMeasurement(ctx, measure("m2", "water", day(time.March, 3), "12", "14400")))
	require.NoError(t, s.SaveMeasurement(ctx, measure("m3", "gas", day(time.March, 5), "3", "")))

	err = s.SaveMeasurement(ctx, measure("m4", "ghost", day(time.March, 5), "3", "1"))
	assert.ErrorIs(t, err, finance.ErrInvalidInput)

	all, err := s.ListMeasurements(ctx, store.MeasurementFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2", "m1"}, measurementIDs(all))

	from := day(time.March, 1)
	to := day(time.March, 31)
	march, err := s.ListMeasurements(ctx, store.MeasurementFilter{ServiceID: "water", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "m2", march[0].ID)
	assert.True(t, march[0].UnitsUsed.Equal(decimal.NewFromInt(12)))

	limited, err := s.ListMeasurements(ctx, store.MeasurementFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testReminders(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveObligation(ctx, Obligation("A", "100", 0)))

	reminders := []debts.Reminder{
		{ID: "A:upcoming:2024-03-13", ObligationID: "A", FireAt: day(time.March, 10), Kind: debts.ReminderUpcoming, Message: "soon", CreatedAt: base},
		{ID: "A:overdue:2024-03-31", ObligationID: "A", FireAt: day(time.April, 1), Kind: debts.ReminderOverdue, Message: "late", CreatedAt: base},
	}

	added, err := s.SaveReminders(ctx, reminders)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Saving the same plan again is a no-op.
	added, err = s.SaveReminders(ctx, reminders)
	require.NoError(t, err)
	assert.Zero(t, added)

	march, err := s.ListReminders(ctx, day(time.March, 1), day(time.March, 31))
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "soon", march[0].Message)
	assert.Nil(t, march[0].DeliveredAt)

	require.NoError(t, s.MarkDelivered(ctx, march[0].ID, base))
	march, err = s.ListReminders(ctx, day(time.March, 1), day(time.March, 31))
	require.NoError(t, err)
	require.NotNil(t, march[0].DeliveredAt)
	assert.True(t, march[0].DeliveredAt.Equal(base))
}

func testReset(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveObligation(ctx, Obligation("x", "1", 0)))
	require.NoError(t, s.SaveService(ctx, utilities.Service{ID: "s", Name: "S", Kind: utilities.KindOther, CreatedAt: base, UpdatedAt: base}))

	require.NoError(t, s.Reset(ctx))

	obligations, err := s.ListObligations(ctx, store.ObligationFilter{})
	require.NoError(t, err)
	assert.Empty(t, obligations)
	services, err := s.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)
}

func ids(list []debts.Obligation) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = o.ID
	}
	return out
}

func measurementIDs(list []utilities.Measurement) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}
