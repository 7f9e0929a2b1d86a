/*
Package utilities tracks household utility services and their billed
consumption.

PURPOSE:
  A service (water, electricity, gas, internet) has a reference rate per
  unit and an optional monthly budget. Measurements record the units used
  and the amount billed for one period. The engine compares the current
  billing month against the previous one per service.

KEY CONCEPTS:
  - Service:     A metered utility with a rate and a budget goal
  - Measurement: Units and amount for one billing window
  - Insight:     Current vs previous month for one service

SEE ALSO:
  - variance.go: Period comparison
  - estimate.go: Amount estimation from units and presets
*/
package utilities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// SERVICE
// =============================================================================

type Kind string

const (
	KindWater       Kind = "water"
	KindElectricity Kind = "electricity"
	KindGas         Kind = "gas"
	KindInternet    Kind = "internet"
	KindOther       Kind = "other"
)

func (k Kind) Valid() bool {
	switch k {
	case KindWater, KindElectricity, KindGas, KindInternet, KindOther:
		return true
	}
	return false
}

type Service struct {
	ID          string
	Name        string
	Kind        Kind
	Unit        string // m³, kWh, Mbps
	RatePerUnit finance.Amount

	// MonthlyBudget is the goal for one billing month. Nil means no goal.
	MonthlyBudget *finance.Amount

	AlertThreshold int
	AutoEstimate   bool
	Color          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return finance.Invalid("name", "cannot be empty")
	}
	if !s.Kind.Valid() {
		return finance.Invalid("kind", "unknown kind %q", s.Kind)
	}
	if !s.RatePerUnit.IsEmpty() && !s.RatePerUnit.Valid() {
		return finance.Invalid("rate_per_unit", "must be a number, got %q", string(s.RatePerUnit))
	}
	if s.MonthlyBudget != nil && !s.MonthlyBudget.IsEmpty() && !s.MonthlyBudget.Valid() {
		return finance.Invalid("goal_monthly_budget", "must be a number, got %q", string(*s.MonthlyBudget))
	}
	if s.AlertThreshold < 0 {
		return finance.Invalid("alert_threshold", "cannot be negative")
	}
	return nil
}

// =============================================================================
// MEASUREMENT
// =============================================================================

type MeasurementStatus string

const (
	MeasurementEstimated MeasurementStatus = "estimated"
	MeasurementConfirmed MeasurementStatus = "confirmed"
)

type Measurement struct {
	ID          string
	ServiceID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	UnitsUsed   decimal.Decimal
	Amount      finance.Amount
	Status      MeasurementStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m Measurement) Validate() error {
	if m.ServiceID == "" {
		return finance.Invalid("service_id", "is required")
	}
	if m.PeriodStart.IsZero() || m.PeriodEnd.IsZero() {
		return finance.Invalid("period", "start and end are required")
	}
	if m.PeriodEnd.Before(m.PeriodStart) {
		return finance.Invalid("period_end", "must not be before period_start")
	}
	if m.UnitsUsed.IsNegative() {
		return finance.Invalid("units_used", "cannot be negative")
	}
	switch m.Status {
	case MeasurementEstimated, MeasurementConfirmed:
	default:
		return finance.Invalid("status", "unknown status %q", m.Status)
	}
	return nil
}
