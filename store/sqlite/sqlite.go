/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists obligations, payments, utility services, measurements and
  planned reminders. The engine packages stay storage-agnostic: they
  receive the snapshots this store returns.

KEY TABLES:
  obligations:          Tracked debts and bills
  payments:             Payment history, one row per settled installment
  utility_services:     Metered services with rate and budget
  utility_measurements: Units and amount per billing window
  reminders:            Planned reminders, keyed by a deterministic ID

AMOUNTS:
  Every monetary column is TEXT holding the exact decimal string. Values
  written by older clients as numbers are read back through finance.Amount,
  so a malformed cell normalizes to zero in the engine instead of failing
  the whole query.

ATOMIC PAYMENTS:
  RecordPayment inserts the payment and updates the obligation in a single
  database transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to
  one connection so every query sees the same data.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  s, err := sqlite.New("./data/gastos.db")
  if err != nil {
      log.Fatal(err)
  }
  defer s.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'CLP',
		category TEXT,
		frequency TEXT NOT NULL,
		due_rule TEXT NOT NULL,
		custom_due_day INTEGER,
		start_date TEXT NOT NULL,
		end_date TEXT,
		total_installments INTEGER,
		installments_paid INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		next_due_date TEXT,
		alert_threshold_days INTEGER NOT NULL,
		autopay INTEGER NOT NULL DEFAULT 0,
		tags_json TEXT,
		household_member TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_obligations_status
		ON obligations(status);
	CREATE INDEX IF NOT EXISTS idx_obligations_created
		ON obligations(created_at, id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		obligation_id TEXT NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		scheduled_for TEXT NOT NULL,
		paid_at TEXT,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_obligation
		ON payments(obligation_id, created_at);

	CREATE TABLE IF NOT EXISTS utility_services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		unit TEXT,
		rate_per_unit TEXT,
		monthly_budget TEXT,
		alert_threshold INTEGER NOT NULL DEFAULT 0,
		auto_estimate INTEGER NOT NULL DEFAULT 0,
		color TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS utility_measurements (
		id TEXT PRIMARY KEY,
		service_id TEXT NOT NULL REFERENCES utility_services(id) ON DELETE CASCADE,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		units_used TEXT NOT NULL,
		amount TEXT,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_measurements_service_period
		ON utility_measurements(service_id, period_start);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		obligation_id TEXT NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
		fire_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL,
		delivered_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_fire_at
		ON reminders(fire_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

const obligationColumns = `id, name, description, amount, currency, category, frequency, due_rule,
	custom_due_day, start_date, end_date, total_installments, installments_paid, status,
	next_due_date, alert_threshold_days, autopay, tags_json, household_member, created_at, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveObligation inserts or replaces an obligation.
func (s *Store) SaveObligation(ctx context.Context, o debts.Obligation) error {
	if o.ID == "" {
		return finance.Invalid("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveObligation(ctx, s.db, o)
}

func (s *Store) saveObligation(ctx context.Context, db execer, o debts.Obligation) error {
	tagsJSON, _ := json.Marshal(o.Tags)

	query := `
		INSERT INTO obligations (` + obligationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			amount = excluded.amount,
			currency = excluded.currency,
			category = excluded.category,
			frequency = excluded.frequency,
			due_rule = excluded.due_rule,
			custom_due_day = excluded.custom_due_day,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			total_installments = excluded.total_installments,
			installments_paid = excluded.installments_paid,
			status = excluded.status,
			next_due_date = excluded.next_due_date,
			alert_threshold_days = excluded.alert_threshold_days,
			autopay = excluded.autopay,
			tags_json = excluded.tags_json,
			household_member = excluded.household_member,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		o.ID,
		o.Name,
		nullString(o.Description),
		string(o.Amount),
		o.Currency,
		nullString(o.Category),
		o.Frequency,
		o.DueRule,
		nullInt(o.CustomDueDay),
		formatTime(o.StartDate),
		nullTime(o.EndDate),
		o.TotalInstallments,
		o.InstallmentsPaid,
		o.Status,
		nullTime(o.NextDueDate),
		o.AlertThresholdDays,
		o.Autopay,
		string(tagsJSON),
		nullString(o.HouseholdMember),
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}

// GetObligation returns one obligation or finance.ErrNotFound.
func (s *Store) GetObligation(ctx context.Context, id string) (debts.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return debts.Obligation{}, finance.ErrNotFound
	}
	return o, err
}

// ListObligations returns obligations in creation order.
func (s *Store) ListObligations(ctx context.Context, filter store.ObligationFilter) ([]debts.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, st)
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.HouseholdMember != "" {
		where = append(where, "household_member = ?")
		args = append(args, filter.HouseholdMember)
	}

	query := `SELECT ` + obligationColumns + ` FROM obligations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var out []debts.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus changes the status of one obligation.
func (s *Store) UpdateStatus(ctx context.Context, id string, status debts.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE obligations SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireAffected(res)
}

// Postpone stores the new due date and marks the obligation postponed.
func (s *Store) Postpone(ctx context.Context, id string, until, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE obligations SET status = ?, next_due_date = ?, updated_at = ? WHERE id = ?`,
		debts.StatusPostponed, formatTime(until), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to postpone obligation: %w", err)
	}
	return requireAffected(res)
}

// DeleteObligation removes an obligation; payments and reminders cascade.
func (s *Store) DeleteObligation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete obligation: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObligation(row scanner) (debts.Obligation, error) {
	var (
		o                 debts.Obligation
		description       sql.NullString
		amount            string
		category          sql.NullString
		customDueDay      sql.NullInt64
		startDate         string
		endDate           sql.NullString
		totalInstallments sql.NullInt64
		nextDueDate       sql.NullString
		tagsJSON          sql.NullString
		householdMember   sql.NullString
		createdAt         string
		updatedAt         string
	)

	err := row.Scan(
		&o.ID, &o.Name, &description, &amount, &o.Currency, &category, &o.Frequency, &o.DueRule,
		&customDueDay, &startDate, &endDate, &totalInstallments, &o.InstallmentsPaid, &o.Status,
		&nextDueDate, &o.AlertThresholdDays, &o.Autopay, &tagsJSON, &householdMember, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return o, err
		}
		return o, fmt.Errorf("failed to scan obligation: %w", err)
	}

	o.Description = description.String
	o.Amount = finance.Amount(amount)
	o.Category = category.String
	o.CustomDueDay = int(customDueDay.Int64)
	o.StartDate = parseTime(startDate)
	o.EndDate = parseNullTime(endDate)
	if totalInstallments.Valid {
		v := int(totalInstallments.Int64)
		o.TotalInstallments = &v
	}
	o.NextDueDate = parseNullTime(nextDueDate)
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &o.Tags)
	}
	o.HouseholdMember = householdMember.String
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return o, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment inserts the payment and stores the paid obligation atomically.
func (s *Store) RecordPayment(ctx context.Context, paid debts.Obligation, p debts.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var exists int
	if err := sqlTx.QueryRowContext(ctx, `SELECT COUNT(*) FROM obligations WHERE id = ?`, paid.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check obligation: %w", err)
	}
	if exists == 0 {
		return finance.ErrNotFound
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO payments (id, obligation_id, amount, scheduled_for, paid_at, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		paid.ID,
		string(p.Amount),
		formatTime(p.ScheduledFor),
		nullTime(p.PaidAt),
		p.Status,
		nullString(p.Notes),
		formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return finance.Invalid("id", "payment %s already recorded", p.ID)
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := s.saveObligation(ctx, sqlTx, paid); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// ListPayments returns payments of one obligation, oldest first.
func (s *Store) ListPayments(ctx context.Context, obligationID string) ([]debts.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, obligation_id, amount, scheduled_for, paid_at, status, notes, created_at
		FROM payments
		WHERE obligation_id = ?
		ORDER BY created_at ASC, id ASC`, obligationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []debts.Payment
	for rows.Next() {
		var (
			p            debts.Payment
			amount       string
			scheduledFor string
			paidAt       sql.NullString
			notes        sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&p.ID, &p.ObligationID, &amount, &scheduledFor, &paidAt, &p.Status, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = finance.Amount(amount)
		p.ScheduledFor = parseTime(scheduledFor)
		p.PaidAt = parseNullTime(paidAt)
		p.Notes = notes.String
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITY SERVICES
// =============================================================================

const serviceColumns = `id, name, kind, unit, rate_per_unit, monthly_budget, alert_threshold,
	auto_estimate, color, created_at, updated_at`

// SaveService inserts or replaces a service. created_at survives updates.
func (s *Store) SaveService(ctx context.Context, svc utilities.Service) error {
	if svc.ID == "" {
		return finance.Invalid("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var budget sql.NullString
	if svc.MonthlyBudget != nil {
		budget = nullString(string(*svc.MonthlyBudget))
	}
	created := svc.CreatedAt
	if created.IsZero() {
		created = svc.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO utility_services (`+serviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			unit = excluded.unit,
			rate_per_unit = excluded.rate_per_unit,
			monthly_budget = excluded.monthly_budget,
			alert_threshold = excluded.alert_threshold,
			auto_estimate = excluded.auto_estimate,
			color = excluded.color,
			updated_at = excluded.updated_at`,
		svc.ID,
		svc.Name,
		svc.Kind,
		nullString(svc.Unit),
		nullString(string(svc.RatePerUnit)),
		budget,
		svc.AlertThreshold,
		svc.AutoEstimate,
		nullString(svc.Color),
		formatTime(created),
		formatTime(svc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}
	return nil
}

// GetService returns one service or finance.ErrNotFound.
func (s *Store) GetService(ctx context.Context, id string) (utilities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM utility_services WHERE id = ?`, id)
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return utilities.Service{}, finance.ErrNotFound
	}
	return svc, err
}

// ListServices returns services ordered by name.
func (s *Store) ListServices(ctx context.Context) ([]utilities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM utility_services ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var out []utilities.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func scanService(row scanner) (utilities.Service, error) {
	var (
		svc       utilities.Service
		unit      sql.NullString
		rate      sql.NullString
		budget    sql.NullString
		color     sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&svc.ID, &svc.Name, &svc.Kind, &unit, &rate, &budget,
		&svc.AlertThreshold, &svc.AutoEstimate, &color, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return svc, err
		}
		return svc, fmt.Errorf("failed to scan service: %w", err)
	}
	svc.Unit = unit.String
	svc.RatePerUnit = finance.Amount(rate.String)
	if budget.Valid {
		b := finance.Amount(budget.String)
		svc.MonthlyBudget = &b
	}
	svc.Color = color.String
	svc.CreatedAt = parseTime(createdAt)
	svc.UpdatedAt = parseTime(updatedAt)
	return svc, nil
}

// =============================================================================
// UTILITY MEASUREMENTS
// =============================================================================

// SaveMeasurement inserts or replaces a measurement.
func (s *Store) SaveMeasurement(ctx context.Context, m utilities.Measurement) error {
	if m.ID == "" {
		return finance.Invalid("id", "is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO utility_measurements
		(id, service_id, period_start, period_end, units_used, amount, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			units_used = excluded.units_used,
			amount = excluded.amount,
			status = excluded.status,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		m.ID,
		m.ServiceID,
		formatTime(m.PeriodStart),
		formatTime(m.PeriodEnd),
		m.UnitsUsed.String(),
		nullString(string(m.Amount)),
		m.Status,
		nullString(m.Notes),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return finance.Invalid("service_id", "unknown service %q", m.ServiceID)
		}
		return fmt.Errorf("failed to save measurement: %w", err)
	}
	return nil
}

// ListMeasurements returns measurements newest period first.
func (s *Store) ListMeasurements(ctx context.Context, filter store.MeasurementFilter) ([]utilities.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.ServiceID != "" {
		where = append(where, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.From != nil {
		where = append(where, "period_start >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "period_end <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := `SELECT id, service_id, period_start, period_end, units_used, amount, status, notes, created_at, updated_at
		FROM utility_measurements`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY period_start DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var out []utilities.Measurement
	for rows.Next() {
		var (
			m           utilities.Measurement
			periodStart string
			periodEnd   string
			units       string
			amount      sql.NullString
			notes       sql.NullString
			createdAt   string
			updatedAt   string
		)
		if err := rows.Scan(&m.ID, &m.ServiceID, &periodStart, &periodEnd, &units, &amount,
			&m.Status, &notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.PeriodStart = parseTime(periodStart)
		m.PeriodEnd = parseTime(periodEnd)
		m.UnitsUsed, _ = decimal.NewFromString(units)
		m.Amount = finance.Amount(amount.String)
		m.Notes = notes.String
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// REMINDERS
// =============================================================================

// SaveReminders inserts reminders with unknown IDs and returns how many were new.
func (s *Store) SaveReminders(ctx context.Context, reminders []debts.Reminder) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	added := 0
	for _, r := range reminders {
		res, err := sqlTx.ExecContext(ctx, `
			INSERT OR IGNORE INTO reminders (id, obligation_id, fire_at, kind, message, created_at, delivered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.ObligationID, formatTime(r.FireAt), r.Kind, r.Message, formatTime(r.CreatedAt), nullTime(r.DeliveredAt))
		if err != nil {
			return 0, fmt.Errorf("failed to save reminder %s: %w", r.ID, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// ListReminders returns reminders firing in [from, to], earliest first.
func (s *Store) ListReminders(ctx context.Context, from, to time.Time) ([]debts.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, obligation_id, fire_at, kind, message, created_at, delivered_at
		FROM reminders
		WHERE fire_at >= ? AND fire_at <= ?
		ORDER BY fire_at ASC, id ASC`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var out []debts.Reminder
	for rows.Next() {
		var (
			r           debts.Reminder
			fireAt      string
			createdAt   string
			deliveredAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ObligationID, &fireAt, &r.Kind, &r.Message, &createdAt, &deliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.FireAt = parseTime(fireAt)
		r.CreatedAt = parseTime(createdAt)
		r.DeliveredAt = parseNullTime(deliveredAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkDelivered stamps the delivery time of a reminder.
func (s *Store) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET delivered_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder delivered: %w", err)
	}
	return requireAffected(res)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"reminders", "payments", "utility_measurements", "utility_services", "obligations"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// Times are stored as fixed-width UTC text so string comparison in SQL
// orders them correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return finance.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
