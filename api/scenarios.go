/*
scenarios.go - Demo household loaders for testing and demonstrations

PURPOSE:

	Provides pre-built households that populate the store with realistic
	data for demos. Each scenario creates obligations in every status and,
	where useful, utility services with two months of measurements so the
	dashboard has something to compare.

AVAILABLE SCENARIOS:

	household:    Rent, bills and debts across every status and risk tier
	debt-payoff:  Installment loans at different stages of repayment
	empty:        Clears the store

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Build obligations through the factory, dated relative to "now"
 3. Create utility services and measurements
 4. Plan the reminders for the new snapshot

Dates are relative to the reference instant of the request, so a scenario
loaded with ?now=2024-03-10 always produces the same dashboard.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "household"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, now)
 3. Add case to LoadScenarioByID

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and its settings
  - factory/obligation.go: ObligationJSON validation
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/factory"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "household",
		Name:        "Household",
		Description: "Rent, bills and debts in every status, with utility measurements for two months",
	},
	{
		ID:          "debt-payoff",
		Name:        "Debt Payoff",
		Description: "Installment loans at different stages of repayment",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No data",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID, now); err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// LoadScenarioByID resets the store and loads the named scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string, now time.Time) error {
	var load func(context.Context, time.Time) error
	switch id {
	case "household":
		load = h.loadHouseholdScenario
	case "debt-payoff":
		load = h.loadDebtPayoffScenario
	case "empty":
		load = func(context.Context, time.Time) error { return nil }
	default:
		return finance.Invalid("scenario_id", "unknown scenario %q", id)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	if err := load(ctx, now); err != nil {
		return fmt.Errorf("loading scenario %s: %w", id, err)
	}
	if _, _, err := planAndStore(ctx, h.Store, now, h.horizon()); err != nil {
		return err
	}

	h.currentScenario = id
	h.Log.WithField("scenario", id).Info("scenario loaded")
	return nil
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO: HOUSEHOLD
// =============================================================================

func (h *Handler) loadHouseholdScenario(ctx context.Context, now time.Time) error {
	start := finance.StartOfMonth(now).AddDate(0, -6, 0).Format(finance.DateLayout)
	postponedTo := finance.StartOfDay(now).AddDate(0, 0, 10).Format(finance.DateLayout)

	obligations := []factory.ObligationJSON{
		{
			ID: "obl-rent", Name: "Arriendo departamento", Amount: "450000",
			Category: "Vivienda", StartDate: start, HouseholdMember: "ana",
			Tags: []string{"fijo"},
		},
		{
			ID: "obl-power", Name: "Cuenta de luz", Amount: "42000",
			Category: "Servicios básicos", DueDayType: "custom", CustomDueDay: intPtr(10),
			StartDate: start, AlertThresholdDays: intPtr(5),
		},
		{
			ID: "obl-card", Name: "Tarjeta de crédito", Amount: "180000.50",
			Category: "Deudas", DueDayType: "quincena", StartDate: start,
			Status: "overdue", HouseholdMember: "luis",
		},
		{
			ID: "obl-car", Name: "Crédito automotriz", Amount: "210000",
			Category: "Deudas", Frequency: "custom", DueDayType: "custom", CustomDueDay: intPtr(20),
			StartDate: start, TotalInstallments: intPtr(36), PaidInstallments: 12,
			HouseholdMember: "luis",
		},
		{
			ID: "obl-internet", Name: "Internet hogar", Amount: "29000",
			Category: "Servicios básicos", DueDayType: "custom", CustomDueDay: intPtr(5),
			StartDate: start, Status: "paid", Autopay: true,
		},
		{
			ID: "obl-gym", Name: "Gimnasio", Amount: "12500",
			Category: "Salud", Frequency: "biweekly", DueDayType: "quincena",
			StartDate: start, Status: "postponed", NextDueDate: &postponedTo,
			HouseholdMember: "ana",
		},
		{
			ID: "obl-insurance", Name: "Seguro complementario", Amount: "65000",
			StartDate: start, AlertThresholdDays: intPtr(3),
		},
	}
	if err := h.saveObligations(ctx, obligations, now); err != nil {
		return err
	}

	services, err := h.saveServices(ctx, utilities.DefaultServices(), now)
	if err != nil {
		return err
	}

	current := finance.MonthOf(now)
	prior := current.PreviousMonth()
	readings := []struct {
		service   string
		period    finance.Period
		units     string
		amount    finance.Amount
		confirmed bool
	}{
		{"svc-water", prior, "18", "", true},
		{"svc-water", current, "21", "", false},
		{"svc-electricity", prior, "210", "39900", true},
		{"svc-electricity", current, "240", "", false},
		{"svc-gas", prior, "35", "29750", true},
		{"svc-gas", current, "30", "25500", true},
		{"svc-internet", current, "600", "29000", true},
	}
	for _, rd := range readings {
		end := rd.period.End
		if rd.period.Key() == current.Key() {
			end = finance.StartOfDay(now)
		}
		mj := factory.MeasurementJSON{
			ServiceID:   rd.service,
			PeriodStart: rd.period.Start.Format(finance.DateLayout),
			PeriodEnd:   end.Format(finance.DateLayout),
			UnitsUsed:   decimal.RequireFromString(rd.units),
			Amount:      rd.amount,
		}
		if rd.confirmed {
			mj.Status = string(utilities.MeasurementConfirmed)
		}
		m, err := h.Factory.NewMeasurement(mj, services[rd.service])
		if err != nil {
			return fmt.Errorf("measurement for %s: %w", rd.service, err)
		}
		if err := h.Store.SaveMeasurement(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO: DEBT PAYOFF
// =============================================================================

func (h *Handler) loadDebtPayoffScenario(ctx context.Context, now time.Time) error {
	twoYearsAgo := finance.StartOfMonth(now).AddDate(-2, 0, 0).Format(finance.DateLayout)
	fiveYearsAgo := finance.StartOfMonth(now).AddDate(-5, 0, 0).Format(finance.DateLayout)
	lastYear := finance.StartOfMonth(now).AddDate(-1, 0, 0).Format(finance.DateLayout)

	obligations := []factory.ObligationJSON{
		{
			ID: "obl-consumer", Name: "Crédito de consumo", Amount: "95000",
			Category: "Deudas", Frequency: "custom", DueDayType: "custom", CustomDueDay: intPtr(8),
			StartDate: twoYearsAgo, TotalInstallments: intPtr(24), PaidInstallments: 20,
		},
		{
			ID: "obl-mortgage", Name: "Dividendo hipotecario", Amount: "620000",
			Category: "Vivienda", Frequency: "custom", DueDayType: "custom", CustomDueDay: intPtr(1),
			StartDate: fiveYearsAgo, TotalInstallments: intPtr(240), PaidInstallments: 61,
			AlertThresholdDays: intPtr(7),
		},
		{
			ID: "obl-store", Name: "Crédito casa comercial", Amount: "38000",
			Category: "Deudas", Frequency: "custom", DueDayType: "end_of_month",
			StartDate: lastYear, TotalInstallments: intPtr(12), PaidInstallments: 12,
			Status: "paid",
		},
		{
			ID: "obl-student", Name: "Crédito universitario", Amount: "54000",
			Category: "Educación", Frequency: "custom", DueDayType: "quincena",
			StartDate: twoYearsAgo, TotalInstallments: intPtr(120), PaidInstallments: 18,
			Status: "overdue",
		},
		{
			ID: "obl-old-card", Name: "Tarjeta cerrada", Amount: "0",
			Category: "Deudas", StartDate: fiveYearsAgo, Status: "archived",
		},
	}
	return h.saveObligations(ctx, obligations, now)
}

// =============================================================================
// HELPERS
// =============================================================================

// saveObligations validates and stores obligations in order. Creation times
// are spaced a minute apart so list order matches the slice order.
func (h *Handler) saveObligations(ctx context.Context, defs []factory.ObligationJSON, now time.Time) error {
	for i, oj := range defs {
		created := now.Add(time.Duration(i-len(defs)) * time.Minute)
		oj.CreatedAt = &created
		oj.UpdatedAt = &created

		o, err := h.Factory.FromJSON(oj)
		if err != nil {
			return fmt.Errorf("obligation %s: %w", oj.ID, err)
		}
		if err := h.Store.SaveObligation(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// saveServices stores services under "svc-<kind>" IDs and returns them by ID.
func (h *Handler) saveServices(ctx context.Context, services []utilities.Service, now time.Time) (map[string]utilities.Service, error) {
	out := make(map[string]utilities.Service, len(services))
	for _, s := range services {
		s.ID = "svc-" + string(s.Kind)
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := h.Store.SaveService(ctx, s); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, nil
}

// EnsureServices stores presets when the household has no services yet.
// With no presets the built-in defaults are used. It returns how many
// services were created.
func (h *Handler) EnsureServices(ctx context.Context, presets []factory.ServiceJSON) (int, error) {
	existing, err := h.Store.ListServices(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	if len(presets) == 0 {
		saved, err := h.saveServices(ctx, utilities.DefaultServices(), h.Clock())
		if err != nil {
			return 0, err
		}
		return len(saved), nil
	}
	for _, p := range presets {
		svc, err := h.Factory.NewService(p)
		if err != nil {
			return 0, fmt.Errorf("service preset %q: %w", p.Name, err)
		}
		if err := h.Store.SaveService(ctx, svc); err != nil {
			return 0, err
		}
	}
	return len(presets), nil
}

func intPtr(v int) *int { return &v }
