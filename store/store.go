/*
store.go - Persistence interface for obligations, payments and utilities

PURPOSE:
  Defines the interface between the engine's callers and the database.
  The engine never touches storage: handlers and the reminder scheduler
  load snapshots through a Store, run the pure debts/utilities functions
  and persist what the lifecycle actions return.

KEY INTERFACES:
  ObligationStore: Obligations and their payment history
  UtilityStore:    Services and measurements
  ReminderStore:   Planned reminders (idempotent by ID)
  Store:           All of the above plus Reset

ORDERING:
  ListObligations returns obligations by creation time, then ID. Summary
  tie-breaks depend on input order, so every implementation must agree.

ATOMIC PAYMENTS:
  RecordPayment writes the payment and the updated obligation together.
  Either both are stored or neither is.

AMOUNTS:
  Amounts are persisted in their textual decimal form. Nothing is
  converted to float on the way in or out.

IMPLEMENTATIONS:
  - store/sqlite: SQLite, used by the server
  - store/memory: In-memory, used by tests and the demo CLI

SEE ALSO:
  - finance/errors.go: ErrNotFound returned by Get* and updates
*/
package store

import (
	"context"
	"time"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// FILTERS
// =============================================================================

// ObligationFilter narrows ListObligations. Zero-valued fields do not filter.
// Text search and risk filtering happen in debts.Filter on the snapshot.
type ObligationFilter struct {
	Statuses        []debts.Status
	Category        string
	HouseholdMember string
}

// MeasurementFilter narrows ListMeasurements. From bounds the period start,
// To bounds the period end, both inclusive.
type MeasurementFilter struct {
	ServiceID string
	From      *time.Time
	To        *time.Time
	Limit     int
}

// Matches reports whether m passes the filter, ignoring Limit.
func (f MeasurementFilter) Matches(m utilities.Measurement) bool {
	if f.ServiceID != "" && m.ServiceID != f.ServiceID {
		return false
	}
	if f.From != nil && m.PeriodStart.Before(*f.From) {
		return false
	}
	if f.To != nil && m.PeriodEnd.After(*f.To) {
		return false
	}
	return true
}

// Matches reports whether o passes the filter.
func (f ObligationFilter) Matches(o debts.Obligation) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if s == o.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && o.Category != f.Category {
		return false
	}
	if f.HouseholdMember != "" && o.HouseholdMember != f.HouseholdMember {
		return false
	}
	return true
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type ObligationStore interface {
	// SaveObligation inserts or replaces an obligation by ID.
	SaveObligation(ctx context.Context, o debts.Obligation) error

	GetObligation(ctx context.Context, id string) (debts.Obligation, error)

	ListObligations(ctx context.Context, filter ObligationFilter) ([]debts.Obligation, error)

	// UpdateStatus changes only the status column.
	UpdateStatus(ctx context.Context, id string, status debts.Status, at time.Time) error

	// Postpone stores the new due date and marks the obligation postponed.
	Postpone(ctx context.Context, id string, until, at time.Time) error

	// DeleteObligation removes the obligation and its payments.
	DeleteObligation(ctx context.Context, id string) error

	// RecordPayment appends p and stores the paid obligation atomically.
	RecordPayment(ctx context.Context, paid debts.Obligation, p debts.Payment) error

	// ListPayments returns payments of one obligation, oldest first.
	ListPayments(ctx context.Context, obligationID string) ([]debts.Payment, error)
}

type UtilityStore interface {
	// SaveService inserts or replaces a service by ID.
	SaveService(ctx context.Context, s utilities.Service) error

	GetService(ctx context.Context, id string) (utilities.Service, error)

	// ListServices returns services by name.
	ListServices(ctx context.Context) ([]utilities.Service, error)

	SaveMeasurement(ctx context.Context, m utilities.Measurement) error

	// ListMeasurements returns measurements newest period first.
	ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]utilities.Measurement, error)
}

type ReminderStore interface {
	// SaveReminders stores reminders whose ID is not yet known and returns
	// how many were new.
	SaveReminders(ctx context.Context, reminders []debts.Reminder) (int, error)

	// ListReminders returns reminders firing in [from, to], earliest first.
	ListReminders(ctx context.Context, from, to time.Time) ([]debts.Reminder, error)

	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// Store is everything the API and the scheduler need.
type Store interface {
	ObligationStore
	UtilityStore
	ReminderStore

	// Reset clears all data (for demo scenarios).
	Reset(ctx context.Context) error
	Close() error
}
