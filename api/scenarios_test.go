/*
scenarios_test.go - Tests for demo scenarios and the reminder scheduler

PURPOSE:
	Tests that each scenario sets up the expected state and that the
	scheduler plans reminders idempotently. Scenarios double as integration
	tests of the factory, the store and the engine.
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/factory"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/store/sqlite"
)

func TestScenario_Household(t *testing.T) {
	// GIVEN: An empty store
	h, _ := setupTestHandler(t)
	ctx := context.Background()

	// WHEN: Loading the household scenario
	require.NoError(t, h.LoadScenarioByID(ctx, "household", refDay))

	// THEN: Every status is represented
	obligations, err := h.Store.ListObligations(ctx, store.ObligationFilter{})
	require.NoError(t, err)
	require.Len(t, obligations, 7)
	seen := make(map[debts.Status]bool)
	for _, o := range obligations {
		seen[o.Status] = true
	}
	for _, s := range []debts.Status{debts.StatusPending, debts.StatusPaid, debts.StatusOverdue, debts.StatusPostponed} {
		assert.True(t, seen[s], "missing status %s", s)
	}

	// AND: The postponed gym fee keeps its stored due date
	gym, err := h.Store.GetObligation(ctx, "obl-gym")
	require.NoError(t, err)
	require.NotNil(t, gym.NextDueDate)
	assert.True(t, gym.NextDueDate.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)))

	// AND: Services and two months of measurements exist
	services, err := h.Store.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 4)
	measurements, err := h.Store.ListMeasurements(ctx, store.MeasurementFilter{})
	require.NoError(t, err)
	assert.Len(t, measurements, 7)

	assert.Equal(t, "household", h.currentScenario)
}

func TestScenario_DebtPayoff(t *testing.T) {
	h, _ := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.LoadScenarioByID(ctx, "debt-payoff", refDay))

	obligations, err := h.Store.ListObligations(ctx, store.ObligationFilter{})
	require.NoError(t, err)
	summary := debts.Summarize(obligations, refDay)

	// Archived card has no installment cap; it counts whole months since start.
	months := finance.MonthsBetween(time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), refDay)
	assert.Equal(t, 24+240+12+120+months, summary.Installments)
	assert.Equal(t, 20+61+12+18, summary.InstallmentsPaid)
	assert.True(t, summary.TotalPaid.Equal(finance.MoneyFromInt(38000)))

	// Reloading resets first
	require.NoError(t, h.LoadScenarioByID(ctx, "empty", refDay))
	obligations, err = h.Store.ListObligations(ctx, store.ObligationFilter{})
	require.NoError(t, err)
	assert.Empty(t, obligations)
}

func TestScenario_Unknown(t *testing.T) {
	h, router := setupTestHandler(t)

	err := h.LoadScenarioByID(context.Background(), "mansion", refDay)
	require.Error(t, err)
	assert.True(t, finance.IsClientError(err))

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "mansion"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_LoadAndResetViaAPI(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	rec = do(t, router, http.MethodPost, "/api/scenarios/load?now=2024-03-10", LoadScenarioRequest{ScenarioID: "household"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "household", decode[ScenarioDTO](t, rec).ID)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/obligations", nil)
	assert.Empty(t, decode[[]ObligationDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestScenario_SQLiteStore(t *testing.T) {
	// GIVEN: The household scenario in SQLite
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewHandler(st, quietLogger(), DefaultSettings())
	require.NoError(t, h.LoadScenarioByID(context.Background(), "household", refDay))

	// WHEN: Requesting the dashboard
	rec := do(t, NewRouter(h, nil), http.MethodGet, "/api/dashboard?now=2024-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dash := decode[DashboardResponse](t, rec)

	// THEN: Same numbers as the memory store
	assertMoney(t, "988500.50", dash.Summary.TotalAmount)
	assert.Equal(t, "obl-power", dash.Summary.NextDueID)
	require.NotNil(t, dash.Utilities)
	assertMoney(t, "125300", dash.Utilities.TotalCurrent)
}

func TestEnsureServices(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults when no presets", func(t *testing.T) {
		h, _ := setupTestHandler(t)

		n, err := h.EnsureServices(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		// Second call is a no-op
		n, err = h.EnsureServices(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("presets", func(t *testing.T) {
		h, _ := setupTestHandler(t)

		n, err := h.EnsureServices(ctx, []factory.ServiceJSON{
			{Name: "Agua", Kind: "water", Unit: "m3", RatePerUnit: "1100"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		services, err := h.Store.ListServices(ctx)
		require.NoError(t, err)
		require.Len(t, services, 1)
		assert.Equal(t, "Agua", services[0].Name)
	})

	t.Run("invalid preset", func(t *testing.T) {
		h, _ := setupTestHandler(t)

		_, err := h.EnsureServices(ctx, []factory.ServiceJSON{{Name: "Leña", Kind: "wood"}})
		assert.True(t, finance.IsClientError(err))
	})
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestReminderScheduler_RunOnce(t *testing.T) {
	// GIVEN: The household scenario with its load-time reminders
	h, _ := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.LoadScenarioByID(ctx, "household", refDay))

	sched, err := NewReminderScheduler(h.Store, quietLogger(), "", 0)
	require.NoError(t, err)
	sched.Clock = func() time.Time { return refDay.AddDate(0, 0, 5) }

	// WHEN: Running five days later
	planned, added, err := sched.RunOnce(ctx)
	require.NoError(t, err)

	// THEN: The overdue card keeps its reminder; the car loan and the
	// postponed gym fee enter their alert window
	assert.Equal(t, 3, planned)
	assert.Equal(t, 2, added)

	reminders, err := h.Store.ListReminders(ctx, refDay, refDay.AddDate(0, 0, 30))
	require.NoError(t, err)
	var ids []string
	for _, r := range reminders {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{
		"obl-card:overdue:2024-03-15",
		"obl-power:upcoming:2024-03-10",
		"obl-car:upcoming:2024-03-20",
		"obl-gym:postponed:2024-03-20",
	}, ids)

	// AND: Running again adds nothing
	_, added, err = sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestReminderScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewReminderScheduler(nil, quietLogger(), "every full moon", 0)
	assert.Error(t, err)
}

func TestReminderScheduler_StartStop(t *testing.T) {
	h, _ := setupTestHandler(t)

	sched, err := NewReminderScheduler(h.Store, quietLogger(), "@every 1h", 0)
	require.NoError(t, err)

	sched.Start()
	sched.Start() // second start is a no-op
	sched.Stop()
	sched.Stop()

	disabled, err := NewReminderScheduler(h.Store, quietLogger(), "", 0)
	require.NoError(t, err)
	disabled.Enabled = false
	disabled.Start()
	assert.Nil(t, disabled.cron)
}

// gatedStore blocks the first obligation listing until released.
type gatedStore struct {
	store.Store
	once     sync.Once
	entered  chan struct{}
	release  chan struct{}
	finished atomic.Bool
}

func (g *gatedStore) ListObligations(ctx context.Context, f store.ObligationFilter) ([]debts.Obligation, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	defer g.finished.Store(true)
	return g.Store.ListObligations(ctx, f)
}

func TestReminderScheduler_StopWaitsForStartupRun(t *testing.T) {
	// GIVEN: A scheduler whose startup run is stuck reading the store
	h, _ := setupTestHandler(t)
	gated := &gatedStore{Store: h.Store, entered: make(chan struct{}), release: make(chan struct{})}

	sched, err := NewReminderScheduler(gated, quietLogger(), "@every 1h", 0)
	require.NoError(t, err)
	sched.Start()
	<-gated.entered

	// WHEN: Stopping while that run is in flight
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gated.release)
	}()
	sched.Stop()

	// THEN: Stop returned only after the run finished with the store
	assert.True(t, gated.finished.Load())
}
