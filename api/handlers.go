/*
handlers.go - HTTP API handlers for the household engine

PURPOSE:
  Exposes the obligation and utility engine via REST API. Handlers load a
  snapshot from the store, hand it to the pure debts/utilities functions
  and serialize what comes back. The engine never sees HTTP or SQL.

ENDPOINTS:
  Dashboard:
    GET    /api/dashboard                 Summary, alerts, upcoming, trend

  Obligations:
    GET    /api/obligations               List (status, q, category, member, critical)
    POST   /api/obligations               Create
    GET    /api/obligations/{id}          Detail with health and payments
    DELETE /api/obligations/{id}          Delete with payment history
    POST   /api/obligations/{id}/pay      Mark the current installment paid
    POST   /api/obligations/{id}/postpone Move the due date
    POST   /api/obligations/{id}/status   Change status
    POST   /api/obligations/{id}/archive  Archive

  Reports:
    GET    /api/reports/categories        Totals per category
    GET    /api/reports/trend?months=N    Monthly trend

  Utilities:
    GET    /api/utilities/services        List services
    POST   /api/utilities/services        Create or update a service
    GET    /api/utilities/measurements    List (service, from, to, limit)
    POST   /api/utilities/measurements    Record a measurement
    GET    /api/utilities/insights        Month over month comparison

  Reminders:
    GET    /api/reminders                 Reminders firing within the horizon
    POST   /api/reminders/plan            Plan reminders now
    POST   /api/reminders/{id}/delivered  Acknowledge a reminder

REFERENCE INSTANT:
  Every handler reads the clock once per request. ?now=YYYY-MM-DD (or an
  RFC3339 instant) pins it, which makes the API reproducible for demos
  and tests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, disallowed transitions
  - 404: Resource not found
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The server is meant for a single household on a
  trusted network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo household loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/factory"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Settings tune the derived views.
type Settings struct {
	TrendMonths     int
	AlertLimit      int
	ReminderHorizon time.Duration
}

// DefaultSettings mirrors the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		TrendMonths:     debts.DefaultTrendMonths,
		AlertLimit:      debts.DefaultAlertLimit,
		ReminderHorizon: debts.DefaultReminderHorizon,
	}
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    store.Store
	Factory  *factory.Factory
	Log      logrus.FieldLogger
	Settings Settings

	// Clock is the fallback reference instant when ?now= is absent.
	Clock func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store, log logrus.FieldLogger, settings Settings) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    st,
		Factory:  factory.New(nil),
		Log:      log.WithField("component", "api"),
		Settings: settings,
		Clock:    utcNow,
	}
}

func utcNow() time.Time { return time.Now().UTC() }

// referenceTime returns the instant every derivation of this request uses.
func (h *Handler) referenceTime(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return h.Clock(), nil
	}
	t, err := finance.ParseDate(raw)
	if err != nil {
		return time.Time{}, finance.Invalid("now", "expected YYYY-MM-DD or RFC3339, got %q", raw)
	}
	return t, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns summary, alerts, upcoming payments, categories,
// trend and the utility comparison for the reference instant.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	var (
		obligations  []debts.Obligation
		services     []utilities.Service
		measurements []utilities.Measurement
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		obligations, err = h.Store.ListObligations(ctx, store.ObligationFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		services, err = h.Store.ListServices(ctx)
		return err
	})
	g.Go(func() error {
		from := finance.MonthOf(now).PreviousMonth().Start
		var err error
		measurements, err = h.Store.ListMeasurements(ctx, store.MeasurementFilter{From: &from})
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, "Failed to load dashboard", err)
		return
	}

	summary := debts.Summarize(obligations, now)
	if summary.MalformedAmounts > 0 {
		h.Log.WithField("count", summary.MalformedAmounts).Warn("obligations with malformed amounts counted as zero")
	}

	resp := DashboardResponse{
		Now:        now.Format(time.RFC3339),
		Summary:    summaryDTO(summary),
		Alerts:     alertDTOs(debts.RankAlerts(obligations, now, h.Settings.AlertLimit)),
		Upcoming:   alertDTOs(debts.Upcoming(obligations, now, h.Settings.ReminderHorizon)),
		Categories: categoryDTOs(debts.GroupByCategory(obligations)),
		Trend:      trendDTOs(debts.BuildTrend(obligations, now, h.Settings.TrendMonths)),
	}
	if len(services) > 0 {
		current, prior := utilities.SplitByMonth(measurements, now)
		resp.Utilities = insightsResponse(utilities.ComparePeriods(current, prior, services), now)
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

// ListObligations returns obligations matching the query filters.
// GET /api/obligations?status=pending,overdue&q=luz&category=Hogar&member=ana&critical=true
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	filter, err := parseObligationFilter(r)
	if err != nil {
		h.fail(w, "Invalid filter", err)
		return
	}

	obligations, err := h.Store.ListObligations(r.Context(), store.ObligationFilter{
		Statuses:        filter.Statuses,
		Category:        filter.Category,
		HouseholdMember: filter.HouseholdMember,
	})
	if err != nil {
		h.fail(w, "Failed to list obligations", err)
		return
	}

	obligations = filter.Apply(obligations, now)
	dtos := make([]ObligationDTO, len(obligations))
	for i, o := range obligations {
		dtos[i] = h.obligationDTO(o, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func parseObligationFilter(r *http.Request) (debts.Filter, error) {
	q := r.URL.Query()
	f := debts.Filter{
		Search:          q.Get("q"),
		Category:        q.Get("category"),
		HouseholdMember: q.Get("member"),
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := debts.Status(strings.TrimSpace(part))
			if !s.Valid() {
				return debts.Filter{}, finance.Invalid("status", "unknown status %q", s)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}
	if raw := q.Get("critical"); raw != "" {
		critical, err := strconv.ParseBool(raw)
		if err != nil {
			return debts.Filter{}, finance.Invalid("critical", "expected a boolean, got %q", raw)
		}
		f.OnlyCritical = critical
	}
	return f, nil
}

// CreateObligation validates and stores a new obligation.
// POST /api/obligations
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	o, err := h.Factory.ParseObligation(body)
	if err != nil {
		h.fail(w, "Invalid obligation", err)
		return
	}

	if err := h.Store.SaveObligation(r.Context(), o); err != nil {
		h.fail(w, "Failed to save obligation", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"obligation_id": o.ID, "name": o.Name}).Info("obligation created")
	writeJSON(w, http.StatusCreated, h.obligationDTO(o, now))
}

// GetObligation returns one obligation with its health and payments.
// GET /api/obligations/{id}
func (h *Handler) GetObligation(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}
	id := chi.URLParam(r, "id")

	o, err := h.Store.GetObligation(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get obligation", err)
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to list payments", err)
		return
	}

	dto := ObligationDetailDTO{
		ObligationDTO: h.obligationDTO(o, now),
		Payments:      make([]PaymentDTO, len(payments)),
	}
	for i, p := range payments {
		dto.Payments[i] = paymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeleteObligation removes an obligation and its payments.
// DELETE /api/obligations/{id}
func (h *Handler) DeleteObligation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteObligation(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete obligation", err)
		return
	}
	h.Log.WithField("obligation_id", id).Info("obligation deleted")
	w.WriteHeader(http.StatusNoContent)
}

// PayObligation records a payment for the current installment.
// POST /api/obligations/{id}/pay
func (h *Handler) PayObligation(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	var req PayRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	o, err := h.Store.GetObligation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get obligation", err)
		return
	}

	paid, err := debts.MarkPaid(o, now)
	if err != nil {
		h.fail(w, "Cannot pay obligation", err)
		return
	}
	payment := debts.PaymentFor(o, now)
	payment.Notes = strings.TrimSpace(req.Notes)

	if err := h.Store.RecordPayment(r.Context(), paid, payment); err != nil {
		h.fail(w, "Failed to record payment", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"obligation_id": o.ID,
		"amount":        payment.Amount,
		"installment":   paid.InstallmentsPaid,
	}).Info("payment recorded")
	writeJSON(w, http.StatusOK, h.obligationDTO(paid, now))
}

// PostponeObligation moves the due date of an open obligation.
// POST /api/obligations/{id}/postpone {"until": "2024-03-20"}
func (h *Handler) PostponeObligation(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	var req PostponeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	until, err := finance.ParseDate(req.Until)
	if err != nil {
		h.fail(w, "Invalid until date", finance.Invalid("until", "expected YYYY-MM-DD, got %q", req.Until))
		return
	}

	o, err := h.Store.GetObligation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get obligation", err)
		return
	}

	postponed, err := debts.Postpone(o, until, now)
	if err != nil {
		h.fail(w, "Cannot postpone obligation", err)
		return
	}
	if err := h.Store.Postpone(r.Context(), o.ID, until, now); err != nil {
		h.fail(w, "Failed to postpone obligation", err)
		return
	}

	writeJSON(w, http.StatusOK, h.obligationDTO(postponed, now))
}

// SetObligationStatus changes the status if the transition is allowed.
// POST /api/obligations/{id}/status {"status": "overdue"}
func (h *Handler) SetObligationStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.transition(w, r, debts.Status(req.Status))
}

// ArchiveObligation hides an obligation from the active views.
// POST /api/obligations/{id}/archive
func (h *Handler) ArchiveObligation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, debts.StatusArchived)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status debts.Status) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	o, err := h.Store.GetObligation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get obligation", err)
		return
	}

	updated, err := debts.SetStatus(o, status, now)
	if err != nil {
		h.fail(w, "Cannot change status", err)
		return
	}

	// Reactivation drops the stored due date, which a status-only update
	// would keep.
	if o.NextDueDate != nil && updated.NextDueDate == nil {
		err = h.Store.SaveObligation(r.Context(), updated)
	} else {
		err = h.Store.UpdateStatus(r.Context(), o.ID, updated.Status, now)
	}
	if err != nil {
		h.fail(w, "Failed to update status", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"obligation_id": o.ID,
		"from":          o.Status,
		"to":            updated.Status,
	}).Info("status changed")
	writeJSON(w, http.StatusOK, h.obligationDTO(updated, now))
}

// =============================================================================
// REPORTS
// =============================================================================

// GetCategories returns totals per category.
// GET /api/reports/categories
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	obligations, err := h.Store.ListObligations(r.Context(), store.ObligationFilter{})
	if err != nil {
		h.fail(w, "Failed to list obligations", err)
		return
	}
	writeJSON(w, http.StatusOK, categoryDTOs(debts.GroupByCategory(obligations)))
}

// GetTrend returns the monthly trend ending with the reference month.
// GET /api/reports/trend?months=6
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	months := h.Settings.TrendMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil || months < 1 {
			h.fail(w, "Invalid months", finance.Invalid("months", "expected a positive number, got %q", raw))
			return
		}
	}

	obligations, err := h.Store.ListObligations(r.Context(), store.ObligationFilter{})
	if err != nil {
		h.fail(w, "Failed to list obligations", err)
		return
	}
	writeJSON(w, http.StatusOK, trendDTOs(debts.BuildTrend(obligations, now, months)))
}

// =============================================================================
// UTILITIES
// =============================================================================

// ListServices returns all utility services.
// GET /api/utilities/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Store.ListServices(r.Context())
	if err != nil {
		h.fail(w, "Failed to list services", err)
		return
	}
	dtos := make([]ServiceDTO, len(services))
	for i, s := range services {
		dtos[i] = serviceDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveService creates a service, or updates it when the ID is known.
// POST /api/utilities/services
func (h *Handler) SaveService(w http.ResponseWriter, r *http.Request) {
	var req factory.ServiceJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	svc, err := h.Factory.NewService(req)
	if err != nil {
		h.fail(w, "Invalid service", err)
		return
	}
	if err := h.Store.SaveService(r.Context(), svc); err != nil {
		h.fail(w, "Failed to save service", err)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, serviceDTO(svc))
}

// ListMeasurements returns measurements, newest period first.
// GET /api/utilities/measurements?service=...&from=2024-01-01&to=2024-03-31&limit=12
func (h *Handler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MeasurementFilter{ServiceID: q.Get("service")}

	for _, p := range []struct {
		name   string
		target **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := finance.ParseDate(raw)
		if err != nil {
			h.fail(w, "Invalid filter", finance.Invalid(p.name, "expected YYYY-MM-DD, got %q", raw))
			return
		}
		*p.target = &t
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.fail(w, "Invalid filter", finance.Invalid("limit", "expected a non-negative number, got %q", raw))
			return
		}
		filter.Limit = limit
	}

	measurements, err := h.Store.ListMeasurements(r.Context(), filter)
	if err != nil {
		h.fail(w, "Failed to list measurements", err)
		return
	}
	dtos := make([]MeasurementDTO, len(measurements))
	for i, m := range measurements {
		dtos[i] = measurementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMeasurement records a measurement, estimating the amount from the
// service rate when none is given.
// POST /api/utilities/measurements
func (h *Handler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	var req factory.MeasurementJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	svc, err := h.Store.GetService(r.Context(), req.ServiceID)
	if err != nil {
		if finance.IsNotFound(err) {
			err = finance.Invalid("service_id", "unknown service %q", req.ServiceID)
		}
		h.fail(w, "Invalid measurement", err)
		return
	}

	m, err := h.Factory.NewMeasurement(req, svc)
	if err != nil {
		h.fail(w, "Invalid measurement", err)
		return
	}
	if err := h.Store.SaveMeasurement(r.Context(), m); err != nil {
		h.fail(w, "Failed to save measurement", err)
		return
	}

	writeJSON(w, http.StatusCreated, measurementDTO(m))
}

// GetInsights compares the reference month against the previous one.
// GET /api/utilities/insights
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}

	services, err := h.Store.ListServices(r.Context())
	if err != nil {
		h.fail(w, "Failed to list services", err)
		return
	}
	from := finance.MonthOf(now).PreviousMonth().Start
	measurements, err := h.Store.ListMeasurements(r.Context(), store.MeasurementFilter{From: &from})
	if err != nil {
		h.fail(w, "Failed to list measurements", err)
		return
	}

	current, prior := utilities.SplitByMonth(measurements, now)
	writeJSON(w, http.StatusOK, insightsResponse(utilities.ComparePeriods(current, prior, services), now))
}

// =============================================================================
// REMINDERS
// =============================================================================

// ListReminders returns planned reminders firing between the start of the
// reference day and the end of the horizon.
// GET /api/reminders
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}
	from := finance.StartOfDay(now)
	reminders, err := h.Store.ListReminders(r.Context(), from, from.Add(h.horizon()))
	if err != nil {
		h.fail(w, "Failed to list reminders", err)
		return
	}
	dtos := make([]ReminderDTO, len(reminders))
	for i, rem := range reminders {
		dtos[i] = reminderDTO(rem)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PlanReminders runs the reminder planner immediately.
// POST /api/reminders/plan
func (h *Handler) PlanReminders(w http.ResponseWriter, r *http.Request) {
	now, err := h.referenceTime(r)
	if err != nil {
		h.fail(w, "Invalid reference date", err)
		return
	}
	planned, added, err := planAndStore(r.Context(), h.Store, now, h.horizon())
	if err != nil {
		h.fail(w, "Failed to plan reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanRemindersResponse{Planned: planned, Added: added})
}

// MarkReminderDelivered acknowledges a reminder.
// POST /api/reminders/{id}/delivered
func (h *Handler) MarkReminderDelivered(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.MarkDelivered(r.Context(), chi.URLParam(r, "id"), h.Clock()); err != nil {
		h.fail(w, "Failed to mark reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) horizon() time.Duration {
	if h.Settings.ReminderHorizon > 0 {
		return h.Settings.ReminderHorizon
	}
	return debts.DefaultReminderHorizon
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status code and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decodeOptional decodes a JSON body if one was sent.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}
