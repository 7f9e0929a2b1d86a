/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON obligation, service and measurement definitions into
  validated debts and utilities records. The API decodes request bodies
  into the JSON types below and the factory applies defaults, assigns IDs
  and checks every invariant before anything reaches the store.

JSON SCHEMA (obligation):
  {
    "name": "Mortgage",
    "amount": "650000",              // number or numeric string
    "currency": "CLP",
    "category": "Housing",
    "frequency": "monthly",           // monthly, biweekly, custom
    "due_day_type": "custom",         // end_of_month, quincena, custom
    "custom_due_day": 5,
    "start_date": "2024-01-01",
    "end_date": "2043-12-31",
    "total_installments": 240,
    "alert_threshold_days": 5,
    "autopay": false,
    "tags": ["bank"],
    "household_member": "ana"
  }

DEFAULTS:
  currency CLP, frequency monthly, due_day_type end_of_month,
  alert_threshold_days 5, status pending, paid_installments 0.

USAGE:
  f := factory.New(time.Now)
  o, err := f.ParseObligation(body)

SEE ALSO:
  - debts/types.go: Obligation.Validate
  - utilities/types.go: Service and Measurement validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

const (
	DefaultCurrency       = "CLP"
	DefaultAlertThreshold = 5
	MaxAlertThreshold     = 30
	minNameLength         = 3
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ObligationJSON is the JSON representation of an obligation.
type ObligationJSON struct {
	ID                 string         `json:"id,omitempty"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Amount             finance.Amount `json:"amount"`
	Currency           string         `json:"currency,omitempty"`
	Category           string         `json:"category,omitempty"`
	Frequency          string         `json:"frequency,omitempty"`
	DueDayType         string         `json:"due_day_type,omitempty"`
	CustomDueDay       *int           `json:"custom_due_day,omitempty"`
	StartDate          string         `json:"start_date"`
	EndDate            string         `json:"end_date,omitempty"`
	TotalInstallments  *int           `json:"total_installments,omitempty"`
	PaidInstallments   int            `json:"paid_installments"`
	Status             string         `json:"status,omitempty"`
	NextDueDate        *string        `json:"next_due_date,omitempty"`
	AlertThresholdDays *int           `json:"alert_threshold_days,omitempty"`
	Autopay            bool           `json:"autopay"`
	Tags               []string       `json:"tags,omitempty"`
	HouseholdMember    string         `json:"household_member,omitempty"`
	CreatedAt          *time.Time     `json:"created_at,omitempty"`
	UpdatedAt          *time.Time     `json:"updated_at,omitempty"`
}

// ServiceJSON is the JSON representation of a utility service.
type ServiceJSON struct {
	ID                string          `json:"id,omitempty"`
	Name              string          `json:"name"`
	Kind              string          `json:"kind"`
	Unit              string          `json:"unit"`
	RatePerUnit       finance.Amount  `json:"rate_per_unit,omitempty"`
	GoalMonthlyBudget *finance.Amount `json:"goal_monthly_budget,omitempty"`
	AlertThreshold    int             `json:"alert_threshold,omitempty"`
	AutoEstimate      bool            `json:"auto_estimate"`
	Color             string          `json:"color,omitempty"`
}

// MeasurementJSON is the JSON representation of a utility measurement.
// Amount may be omitted; the service rate is then used to estimate it.
type MeasurementJSON struct {
	ID          string          `json:"id,omitempty"`
	ServiceID   string          `json:"service_id"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	UnitsUsed   decimal.Decimal `json:"units_used"`
	Amount      finance.Amount  `json:"amount,omitempty"`
	Status      string          `json:"status,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON records to validated domain records.
type Factory struct {
	now   func() time.Time
	newID func() string
}

// New creates a factory. clock stamps CreatedAt/UpdatedAt; nil means time.Now.
func New(clock func() time.Time) *Factory {
	if clock == nil {
		clock = time.Now
	}
	return &Factory{now: clock, newID: uuid.NewString}
}

// ParseObligation parses a JSON document into a new obligation.
func (f *Factory) ParseObligation(data []byte) (debts.Obligation, error) {
	var oj ObligationJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return debts.Obligation{}, fmt.Errorf("failed to parse obligation JSON: %w: %v", finance.ErrInvalidInput, err)
	}
	return f.NewObligation(oj)
}

// NewObligation builds a pending obligation from creation input. Fields that
// only the lifecycle may set (status, paid installments, next due) are
// ignored.
func (f *Factory) NewObligation(oj ObligationJSON) (debts.Obligation, error) {
	oj.Status = ""
	oj.PaidInstallments = 0
	oj.NextDueDate = nil
	oj.ID = ""

	if len(strings.TrimSpace(oj.Name)) < minNameLength {
		return debts.Obligation{}, finance.Invalid("name", "must be at least %d characters", minNameLength)
	}
	if !oj.Amount.Money().IsPositive() {
		return debts.Obligation{}, finance.Invalid("amount", "must be a positive number")
	}
	if oj.AlertThresholdDays != nil && *oj.AlertThresholdDays > MaxAlertThreshold {
		return debts.Obligation{}, finance.Invalid("alert_threshold_days", "must be at most %d", MaxAlertThreshold)
	}
	if debts.Frequency(oj.Frequency) == debts.FrequencyCustom && oj.TotalInstallments == nil {
		return debts.Obligation{}, finance.Invalid("total_installments", "required for custom frequency")
	}

	o, err := f.FromJSON(oj)
	if err != nil {
		return debts.Obligation{}, err
	}
	o.ID = f.newID()
	o.CreatedAt = f.now()
	o.UpdatedAt = o.CreatedAt
	return o, nil
}

// FromJSON converts ObligationJSON to a validated obligation, keeping
// whatever ID, status and timestamps it carries.
func (f *Factory) FromJSON(oj ObligationJSON) (debts.Obligation, error) {
	start, err := finance.ParseDate(oj.StartDate)
	if err != nil {
		return debts.Obligation{}, finance.Invalid("start_date", "expected YYYY-MM-DD, got %q", oj.StartDate)
	}
	end, err := optionalDate("end_date", oj.EndDate)
	if err != nil {
		return debts.Obligation{}, err
	}
	var next *time.Time
	if oj.NextDueDate != nil {
		if next, err = optionalDate("next_due_date", *oj.NextDueDate); err != nil {
			return debts.Obligation{}, err
		}
	}

	o := debts.Obligation{
		ID:                 oj.ID,
		Name:               strings.TrimSpace(oj.Name),
		Description:        strings.TrimSpace(oj.Description),
		Amount:             oj.Amount,
		Currency:           withDefault(oj.Currency, DefaultCurrency),
		Category:           strings.TrimSpace(oj.Category),
		Frequency:          debts.Frequency(withDefault(oj.Frequency, string(debts.FrequencyMonthly))),
		DueRule:            debts.DueRule(withDefault(oj.DueDayType, string(debts.DueEndOfMonth))),
		StartDate:          start,
		EndDate:            end,
		TotalInstallments:  oj.TotalInstallments,
		InstallmentsPaid:   oj.PaidInstallments,
		Status:             debts.Status(withDefault(oj.Status, string(debts.StatusPending))),
		NextDueDate:        next,
		AlertThresholdDays: DefaultAlertThreshold,
		Autopay:            oj.Autopay,
		Tags:               cleanTags(oj.Tags),
		HouseholdMember:    strings.TrimSpace(oj.HouseholdMember),
	}
	if oj.CustomDueDay != nil {
		o.CustomDueDay = *oj.CustomDueDay
	}
	if oj.AlertThresholdDays != nil {
		o.AlertThresholdDays = *oj.AlertThresholdDays
	}
	if oj.CreatedAt != nil {
		o.CreatedAt = *oj.CreatedAt
	}
	if oj.UpdatedAt != nil {
		o.UpdatedAt = *oj.UpdatedAt
	}

	if err := o.Validate(); err != nil {
		return debts.Obligation{}, err
	}
	return o, nil
}

// ToJSON converts an obligation to ObligationJSON.
func (f *Factory) ToJSON(o debts.Obligation) ObligationJSON {
	oj := ObligationJSON{
		ID:                o.ID,
		Name:              o.Name,
		Description:       o.Description,
		Amount:            o.Amount,
		Currency:          o.Currency,
		Category:          o.Category,
		Frequency:         string(o.Frequency),
		DueDayType:        string(o.DueRule),
		StartDate:         o.StartDate.Format(finance.DateLayout),
		TotalInstallments: o.TotalInstallments,
		PaidInstallments:  o.InstallmentsPaid,
		Status:            string(o.Status),
		Autopay:           o.Autopay,
		Tags:              o.Tags,
		HouseholdMember:   o.HouseholdMember,
	}
	if o.DueRule == debts.DueCustomDay {
		day := o.CustomDueDay
		oj.CustomDueDay = &day
	}
	if o.EndDate != nil {
		oj.EndDate = o.EndDate.Format(finance.DateLayout)
	}
	if o.NextDueDate != nil {
		s := o.NextDueDate.Format(finance.DateLayout)
		oj.NextDueDate = &s
	}
	threshold := o.AlertThresholdDays
	oj.AlertThresholdDays = &threshold
	if !o.CreatedAt.IsZero() {
		created := o.CreatedAt
		oj.CreatedAt = &created
	}
	if !o.UpdatedAt.IsZero() {
		updated := o.UpdatedAt
		oj.UpdatedAt = &updated
	}
	return oj
}

// =============================================================================
// UTILITIES
// =============================================================================

// NewService validates a service definition. An empty ID gets a fresh one
// so the same call serves create and upsert.
func (f *Factory) NewService(sj ServiceJSON) (utilities.Service, error) {
	s := utilities.Service{
		ID:             sj.ID,
		Name:           strings.TrimSpace(sj.Name),
		Kind:           utilities.Kind(withDefault(sj.Kind, string(utilities.KindOther))),
		Unit:           strings.TrimSpace(sj.Unit),
		RatePerUnit:    sj.RatePerUnit,
		MonthlyBudget:  sj.GoalMonthlyBudget,
		AlertThreshold: sj.AlertThreshold,
		AutoEstimate:   sj.AutoEstimate,
		Color:          sj.Color,
	}
	if err := s.Validate(); err != nil {
		return utilities.Service{}, err
	}
	if s.ID == "" {
		s.ID = f.newID()
		s.CreatedAt = f.now()
	}
	s.UpdatedAt = f.now()
	return s, nil
}

// NewMeasurement validates a measurement. When no amount is given and the
// service auto-estimates, the amount is priced from the service rate.
func (f *Factory) NewMeasurement(mj MeasurementJSON, svc utilities.Service) (utilities.Measurement, error) {
	start, err := finance.ParseDate(mj.PeriodStart)
	if err != nil {
		return utilities.Measurement{}, finance.Invalid("period_start", "expected YYYY-MM-DD, got %q", mj.PeriodStart)
	}
	end, err := finance.ParseDate(mj.PeriodEnd)
	if err != nil {
		return utilities.Measurement{}, finance.Invalid("period_end", "expected YYYY-MM-DD, got %q", mj.PeriodEnd)
	}
	if mj.ServiceID != svc.ID {
		return utilities.Measurement{}, finance.Invalid("service_id", "does not match service %q", svc.ID)
	}

	m := utilities.Measurement{
		ID:          f.newID(),
		ServiceID:   mj.ServiceID,
		PeriodStart: start,
		PeriodEnd:   end,
		UnitsUsed:   mj.UnitsUsed,
		Amount:      mj.Amount,
		Status:      utilities.MeasurementStatus(withDefault(mj.Status, string(utilities.MeasurementEstimated))),
		Notes:       strings.TrimSpace(mj.Notes),
		CreatedAt:   f.now(),
	}
	m.UpdatedAt = m.CreatedAt

	if !m.Amount.IsEmpty() && !m.Amount.Valid() {
		return utilities.Measurement{}, finance.Invalid("amount", "must be a number, got %q", string(m.Amount))
	}
	if m.Amount.IsEmpty() {
		if !svc.AutoEstimate {
			return utilities.Measurement{}, finance.Invalid("amount", "required when the service does not auto-estimate")
		}
		m, _ = utilities.Resolve(m, svc)
	}
	if err := m.Validate(); err != nil {
		return utilities.Measurement{}, err
	}
	return m, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func optionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := finance.ParseDate(s)
	if err != nil {
		return nil, finance.Invalid(field, "expected YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}

func withDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
