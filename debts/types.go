// Package debts implements the obligation side of the household engine:
// due dates, risk tiers, summaries, trends and reminders over snapshots
// of recurring bills and debts.
package debts

import (
	"strings"
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

type Frequency string

const (
	FrequencyMonthly  Frequency = "monthly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyCustom   Frequency = "custom"
)

// DueRule selects which day of a month an obligation falls due.
type DueRule string

const (
	DueEndOfMonth DueRule = "end_of_month"
	DueQuincena   DueRule = "quincena" // 15th or 30th, depending on the half of the month
	DueCustomDay  DueRule = "custom"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusPostponed Status = "postponed"
	StatusArchived  Status = "archived"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusPaid, StatusOverdue, StatusPostponed, StatusArchived}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Open reports whether the obligation still expects a payment.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusOverdue || s == StatusPostponed
}

// =============================================================================
// OBLIGATION
// =============================================================================

// Obligation is one tracked debt or bill as handed over by the storage
// collaborator. The engine treats it as an immutable snapshot.
type Obligation struct {
	ID          string
	Name        string
	Description string
	Amount      finance.Amount
	Currency    string
	Category    string

	Frequency    Frequency
	DueRule      DueRule
	CustomDueDay int // 1-31, only meaningful for DueCustomDay

	StartDate time.Time
	EndDate   *time.Time

	TotalInstallments *int
	InstallmentsPaid  int

	Status Status

	// NextDueDate, when stored, overrides the rule-based derivation.
	NextDueDate *time.Time

	AlertThresholdDays int
	Autopay            bool
	Tags               []string
	HouseholdMember    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the data-model invariants. The engine itself never
// calls it: aggregations accept whatever snapshot they are given.
func (o Obligation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return finance.Invalid("name", "cannot be empty")
	}
	if !o.Amount.Valid() {
		return finance.Invalid("amount", "must be a number, got %q", string(o.Amount))
	}
	if o.Amount.Money().IsNegative() {
		return finance.Invalid("amount", "cannot be negative")
	}
	switch o.Frequency {
	case FrequencyMonthly, FrequencyBiweekly, FrequencyCustom:
	default:
		return finance.Invalid("frequency", "unknown frequency %q", o.Frequency)
	}
	switch o.DueRule {
	case DueEndOfMonth, DueQuincena:
		if o.CustomDueDay != 0 {
			return finance.Invalid("custom_due_day", "only allowed with the custom due rule")
		}
	case DueCustomDay:
		if o.CustomDueDay < 1 || o.CustomDueDay > 31 {
			return finance.Invalid("custom_due_day", "must be between 1 and 31")
		}
	default:
		return finance.Invalid("due_day_type", "unknown due rule %q", o.DueRule)
	}
	if o.StartDate.IsZero() {
		return finance.Invalid("start_date", "is required")
	}
	if o.EndDate != nil && o.EndDate.Before(o.StartDate) {
		return finance.Invalid("end_date", "must not be before start_date")
	}
	if o.InstallmentsPaid < 0 {
		return finance.Invalid("paid_installments", "cannot be negative")
	}
	if o.TotalInstallments != nil {
		if *o.TotalInstallments < 1 {
			return finance.Invalid("total_installments", "must be at least 1")
		}
		if o.InstallmentsPaid > *o.TotalInstallments {
			return finance.Invalid("paid_installments", "exceeds total_installments")
		}
	}
	if !o.Status.Valid() {
		return finance.Invalid("status", "unknown status %q", o.Status)
	}
	if o.AlertThresholdDays < 1 {
		return finance.Invalid("alert_threshold_days", "must be at least 1")
	}
	return nil
}

// =============================================================================
// PAYMENT - Record of a settled or scheduled installment
// =============================================================================

type PaymentStatus string

const (
	PaymentScheduled PaymentStatus = "scheduled"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPostponed PaymentStatus = "postponed"
	PaymentSkipped   PaymentStatus = "skipped"
)

type Payment struct {
	ID           string
	ObligationID string
	Amount       finance.Amount
	ScheduledFor time.Time
	PaidAt       *time.Time
	Status       PaymentStatus
	Notes        string
	CreatedAt    time.Time
}

// =============================================================================
// REMINDER - A notification the household should receive
// =============================================================================

type ReminderKind string

const (
	ReminderUpcoming  ReminderKind = "upcoming"
	ReminderOverdue   ReminderKind = "overdue"
	ReminderPostponed ReminderKind = "postponed"
	ReminderSummary   ReminderKind = "summary"
)

type Reminder struct {
	ID           string
	ObligationID string
	FireAt       time.Time
	Kind         ReminderKind
	Message      string
	CreatedAt    time.Time
	DeliveredAt  *time.Time
}

func timePtr(t time.Time) *time.Time { return &t }
