/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine values
  (Summary, Health, Insight) carry no JSON tags; the API shapes them here
  so the engine packages stay free of wire concerns.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Obligations:
    ObligationDTO (wraps factory.ObligationJSON), HealthDTO, PaymentDTO,
    ObligationDetailDTO, PostponeRequest, StatusRequest, PayRequest

  Dashboard:
    DashboardResponse, SummaryDTO, AlertDTO, CategoryDTO, TrendPointDTO

  Utilities:
    ServiceDTO (factory.ServiceJSON), MeasurementDTO, InsightDTO,
    InsightsResponse

  Reminders:
    ReminderDTO, PlanRemindersResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  finance.Money marshals as an unquoted JSON number with exact decimal
  digits. Percentages are rounded to two places and sent as floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/obligation.go: ObligationJSON, ServiceJSON, MeasurementJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/factory"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// OBLIGATIONS
// =============================================================================

// HealthDTO is the derived urgency of an obligation at the reference instant.
type HealthDTO struct {
	Tier      string `json:"tier"`
	DaysToDue int    `json:"days_to_due"`
	DueDate   string `json:"due_date"`
}

// ObligationDTO is an obligation plus its health.
type ObligationDTO struct {
	factory.ObligationJSON
	Health HealthDTO `json:"health"`
}

type PaymentDTO struct {
	ID           string         `json:"id"`
	ObligationID string         `json:"obligation_id"`
	Amount       finance.Amount `json:"amount"`
	ScheduledFor string         `json:"scheduled_for"`
	PaidAt       *string        `json:"paid_at,omitempty"`
	Status       string         `json:"status"`
	Notes        string         `json:"notes,omitempty"`
}

type ObligationDetailDTO struct {
	ObligationDTO
	Payments []PaymentDTO `json:"payments"`
}

// PostponeRequest moves the due date of an obligation.
type PostponeRequest struct {
	Until string `json:"until"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// PayRequest is optional; an empty body records a plain payment.
type PayRequest struct {
	Notes string `json:"notes"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type SummaryDTO struct {
	TotalAmount        finance.Money  `json:"total_amount"`
	TotalPending       finance.Money  `json:"total_pending"`
	TotalOverdue       finance.Money  `json:"total_overdue"`
	TotalPaid          finance.Money  `json:"total_paid"`
	MonthlyProjection  finance.Money  `json:"monthly_projection"`
	BiweeklyProjection finance.Money  `json:"biweekly_projection"`
	NextDueDate        *string        `json:"next_due_date"`
	NextDueAmount      *finance.Money `json:"next_due_amount"`
	NextDueID          string         `json:"next_due_id,omitempty"`
	Installments       int            `json:"installments"`
	InstallmentsPaid   int            `json:"installments_paid"`
	Progress           float64        `json:"progress"`
	MalformedAmounts   int            `json:"malformed_amounts"`
}

type AlertDTO struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category,omitempty"`
	Amount    finance.Amount `json:"amount"`
	Status    string         `json:"status"`
	Tier      string         `json:"tier"`
	DaysToDue int            `json:"days_to_due"`
	DueDate   string         `json:"due_date"`
}

type CategoryDTO struct {
	Category string        `json:"category"`
	Amount   finance.Money `json:"amount"`
	Count    int           `json:"count"`
}

type TrendPointDTO struct {
	Key    string        `json:"key"`
	Label  string        `json:"label"`
	Amount finance.Money `json:"amount"`
}

// DashboardResponse is everything the home screen needs in one call.
type DashboardResponse struct {
	Now        string            `json:"now"`
	Summary    SummaryDTO        `json:"summary"`
	Alerts     []AlertDTO        `json:"alerts"`
	Upcoming   []AlertDTO        `json:"upcoming"`
	Categories []CategoryDTO     `json:"categories"`
	Trend      []TrendPointDTO   `json:"trend"`
	Utilities  *InsightsResponse `json:"utilities,omitempty"`
}

// =============================================================================
// UTILITIES
// =============================================================================

type ServiceDTO struct {
	factory.ServiceJSON
	CreatedAt string `json:"created_at,omitempty"`
}

type MeasurementDTO struct {
	ID          string          `json:"id"`
	ServiceID   string          `json:"service_id"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	UnitsUsed   decimal.Decimal `json:"units_used"`
	Amount      finance.Amount  `json:"amount"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
}

type InsightDTO struct {
	ServiceID       string         `json:"service_id"`
	ServiceName     string         `json:"service_name"`
	Kind            string         `json:"kind"`
	Unit            string         `json:"unit"`
	Color           string         `json:"color,omitempty"`
	CurrentAmount   finance.Money  `json:"current_amount"`
	PreviousAmount  finance.Money  `json:"previous_amount"`
	VariancePercent float64        `json:"variance_percent"`
	AverageUnits    float64        `json:"average_units"`
	BudgetGoal      *finance.Money `json:"budget_goal,omitempty"`
	OverBudget      bool           `json:"over_budget"`
}

type InsightsResponse struct {
	Period          string        `json:"period"`
	PreviousPeriod  string        `json:"previous_period"`
	Insights        []InsightDTO  `json:"insights"`
	TotalCurrent    finance.Money `json:"total_current"`
	TotalPrevious   finance.Money `json:"total_previous"`
	VariancePercent float64       `json:"variance_percent"`
}

// =============================================================================
// REMINDERS
// =============================================================================

type ReminderDTO struct {
	ID           string  `json:"id"`
	ObligationID string  `json:"obligation_id"`
	FireAt       string  `json:"fire_at"`
	Kind         string  `json:"kind"`
	Message      string  `json:"message"`
	DeliveredAt  *string `json:"delivered_at,omitempty"`
}

type PlanRemindersResponse struct {
	Planned int `json:"planned"`
	Added   int `json:"added"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func healthDTO(h debts.Health) HealthDTO {
	return HealthDTO{
		Tier:      string(h.Tier),
		DaysToDue: h.DaysToDue,
		DueDate:   h.DueDate.Format(finance.DateLayout),
	}
}

func (h *Handler) obligationDTO(o debts.Obligation, now time.Time) ObligationDTO {
	return ObligationDTO{
		ObligationJSON: h.Factory.ToJSON(o),
		Health:         healthDTO(debts.Evaluate(o, now)),
	}
}

func paymentDTO(p debts.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:           p.ID,
		ObligationID: p.ObligationID,
		Amount:       p.Amount,
		ScheduledFor: p.ScheduledFor.Format(finance.DateLayout),
		Status:       string(p.Status),
		Notes:        p.Notes,
	}
	if p.PaidAt != nil {
		s := p.PaidAt.Format(time.RFC3339)
		dto.PaidAt = &s
	}
	return dto
}

func summaryDTO(s debts.Summary) SummaryDTO {
	dto := SummaryDTO{
		TotalAmount:        s.TotalAmount,
		TotalPending:       s.TotalPending,
		TotalOverdue:       s.TotalOverdue,
		TotalPaid:          s.TotalPaid,
		MonthlyProjection:  s.MonthlyProjection,
		BiweeklyProjection: s.BiweeklyProjection,
		NextDueAmount:      s.NextDueAmount,
		NextDueID:          s.NextDueID,
		Installments:       s.Installments,
		InstallmentsPaid:   s.InstallmentsPaid,
		Progress:           s.Progress(),
		MalformedAmounts:   s.MalformedAmounts,
	}
	if s.NextDueDate != nil {
		d := s.NextDueDate.Format(finance.DateLayout)
		dto.NextDueDate = &d
	}
	return dto
}

func alertDTOs(alerts []debts.Alert) []AlertDTO {
	out := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		out[i] = AlertDTO{
			ID:        a.Obligation.ID,
			Name:      a.Obligation.Name,
			Category:  a.Obligation.Category,
			Amount:    a.Obligation.Amount,
			Status:    string(a.Obligation.Status),
			Tier:      string(a.Health.Tier),
			DaysToDue: a.Health.DaysToDue,
			DueDate:   a.Health.DueDate.Format(finance.DateLayout),
		}
	}
	return out
}

func categoryDTOs(groups []debts.CategoryTotal) []CategoryDTO {
	out := make([]CategoryDTO, len(groups))
	for i, g := range groups {
		out[i] = CategoryDTO{Category: g.Category, Amount: g.Amount, Count: g.Count}
	}
	return out
}

func trendDTOs(points []debts.TrendPoint) []TrendPointDTO {
	out := make([]TrendPointDTO, len(points))
	for i, p := range points {
		out[i] = TrendPointDTO{Key: p.Key, Label: p.Label, Amount: p.Amount}
	}
	return out
}

func serviceDTO(s utilities.Service) ServiceDTO {
	dto := ServiceDTO{
		ServiceJSON: factory.ServiceJSON{
			ID:                s.ID,
			Name:              s.Name,
			Kind:              string(s.Kind),
			Unit:              s.Unit,
			RatePerUnit:       s.RatePerUnit,
			GoalMonthlyBudget: s.MonthlyBudget,
			AlertThreshold:    s.AlertThreshold,
			AutoEstimate:      s.AutoEstimate,
			Color:             s.Color,
		},
	}
	if !s.CreatedAt.IsZero() {
		dto.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func measurementDTO(m utilities.Measurement) MeasurementDTO {
	return MeasurementDTO{
		ID:          m.ID,
		ServiceID:   m.ServiceID,
		PeriodStart: m.PeriodStart.Format(finance.DateLayout),
		PeriodEnd:   m.PeriodEnd.Format(finance.DateLayout),
		UnitsUsed:   m.UnitsUsed,
		Amount:      m.Amount,
		Status:      string(m.Status),
		Notes:       m.Notes,
	}
}

func insightsResponse(insights []utilities.Insight, now time.Time) *InsightsResponse {
	period := finance.MonthOf(now)
	overview := utilities.Summarize(insights)
	resp := &InsightsResponse{
		Period:          period.Key(),
		PreviousPeriod:  period.PreviousMonth().Key(),
		Insights:        make([]InsightDTO, len(insights)),
		TotalCurrent:    overview.TotalCurrent,
		TotalPrevious:   overview.TotalPrevious,
		VariancePercent: percent(overview.VariancePercent),
	}
	for i, in := range insights {
		resp.Insights[i] = InsightDTO{
			ServiceID:       in.Service.ID,
			ServiceName:     in.Service.Name,
			Kind:            string(in.Service.Kind),
			Unit:            in.Service.Unit,
			Color:           in.Service.Color,
			CurrentAmount:   in.CurrentAmount,
			PreviousAmount:  in.PreviousAmount,
			VariancePercent: percent(in.VariancePercent),
			AverageUnits:    in.AverageUnits.InexactFloat64(),
			BudgetGoal:      in.BudgetGoal,
			OverBudget:      in.OverBudget,
		}
	}
	return resp
}

func reminderDTO(r debts.Reminder) ReminderDTO {
	dto := ReminderDTO{
		ID:           r.ID,
		ObligationID: r.ObligationID,
		FireAt:       r.FireAt.Format(time.RFC3339),
		Kind:         string(r.Kind),
		Message:      r.Message,
	}
	if r.DeliveredAt != nil {
		s := r.DeliveredAt.Format(time.RFC3339)
		dto.DeliveredAt = &s
	}
	return dto
}

func percent(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
