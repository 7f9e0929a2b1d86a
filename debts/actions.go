package debts

import (
	"fmt"
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// LIFECYCLE ACTIONS
// =============================================================================
//
// Every action takes an obligation by value and returns the updated copy.
// Persisting the result is the caller's job.
//
// Allowed transitions:
//
//	pending, overdue, postponed -> any status
//	paid                        -> pending, archived
//	archived                    -> pending (reactivation)
//
// Setting the current status again is always allowed.

// CanTransition reports whether an obligation may move from one status to another.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case StatusPaid:
		return to == StatusPending || to == StatusArchived
	case StatusArchived:
		return to == StatusPending
	default:
		return true
	}
}

// SetStatus moves o to status. Moving to pending clears any stored due
// date so the rule takes over again.
func SetStatus(o Obligation, status Status, now time.Time) (Obligation, error) {
	if !status.Valid() {
		return o, finance.Invalid("status", "unknown status %q", status)
	}
	if !CanTransition(o.Status, status) {
		return o, fmt.Errorf("%w: %s -> %s", finance.ErrInvalidTransition, o.Status, status)
	}
	if status == StatusPending && o.Status != StatusPending {
		o.NextDueDate = nil
	}
	o.Status = status
	o.UpdatedAt = now
	return o, nil
}

// MarkPaid settles the current installment.
func MarkPaid(o Obligation, now time.Time) (Obligation, error) {
	if !o.Status.Open() {
		return o, fmt.Errorf("%w: cannot pay a %s obligation", finance.ErrInvalidTransition, o.Status)
	}
	if o.TotalInstallments != nil && o.InstallmentsPaid+1 > *o.TotalInstallments {
		return o, finance.ErrInstallmentsExceeded
	}
	o.InstallmentsPaid++
	o.Status = StatusPaid
	o.NextDueDate = nil
	o.UpdatedAt = now
	return o, nil
}

// Postpone pushes the due date to until, which must lie after now.
func Postpone(o Obligation, until, now time.Time) (Obligation, error) {
	if !o.Status.Open() {
		return o, fmt.Errorf("%w: cannot postpone a %s obligation", finance.ErrInvalidTransition, o.Status)
	}
	if !until.After(now) {
		return o, finance.Invalid("until", "must be after %s", now.Format(finance.DateLayout))
	}
	o.Status = StatusPostponed
	o.NextDueDate = timePtr(until)
	o.UpdatedAt = now
	return o, nil
}

func Archive(o Obligation, now time.Time) Obligation {
	o.Status = StatusArchived
	o.UpdatedAt = now
	return o
}

// PaymentFor builds the payment record that accompanies MarkPaid. The ID is
// left for the store to assign.
func PaymentFor(o Obligation, now time.Time) Payment {
	return Payment{
		ObligationID: o.ID,
		Amount:       finance.AmountFromMoney(o.Amount.Money()),
		ScheduledFor: Resolve(o, now),
		PaidAt:       timePtr(now),
		Status:       PaymentPaid,
		CreatedAt:    now,
	}
}
