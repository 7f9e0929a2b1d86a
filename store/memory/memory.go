// Package memory provides an in-memory store.Store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	obligations  map[string]debts.Obligation
	payments     map[string][]debts.Payment
	services     map[string]utilities.Service
	measurements []utilities.Measurement
	reminders    map[string]debts.Reminder
}

var _ store.Store = (*Memory)(nil)

func New() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.obligations = make(map[string]debts.Obligation)
	m.payments = make(map[string][]debts.Payment)
	m.services = make(map[string]utilities.Service)
	m.measurements = nil
	m.reminders = make(map[string]debts.Reminder)
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// OBLIGATIONS
// =============================================================================

func (m *Memory) SaveObligation(_ context.Context, o debts.Obligation) error {
	if o.ID == "" {
		return finance.Invalid("id", "is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obligations[o.ID] = cloneObligation(o)
	return nil
}

func (m *Memory) GetObligation(_ context.Context, id string) (debts.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.obligations[id]
	if !ok {
		return debts.Obligation{}, finance.ErrNotFound
	}
	return cloneObligation(o), nil
}

func (m *Memory) ListObligations(_ context.Context, filter store.ObligationFilter) ([]debts.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []debts.Obligation
	for _, o := range m.obligations {
		if filter.Matches(o) {
			out = append(out, cloneObligation(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status debts.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[id]
	if !ok {
		return finance.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	m.obligations[id] = o
	return nil
}

func (m *Memory) Postpone(_ context.Context, id string, until, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.obligations[id]
	if !ok {
		return finance.ErrNotFound
	}
	o.Status = debts.StatusPostponed
	o.NextDueDate = &until
	o.UpdatedAt = at
	m.obligations[id] = o
	return nil
}

func (m *Memory) DeleteObligation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.obligations[id]; !ok {
		return finance.ErrNotFound
	}
	delete(m.obligations, id)
	delete(m.payments, id)
	return nil
}

// RecordPayment appends the payment and replaces the obligation under one lock.
func (m *Memory) RecordPayment(_ context.Context, paid debts.Obligation, p debts.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.obligations[paid.ID]; !ok {
		return finance.ErrNotFound
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.ObligationID = paid.ID
	m.payments[paid.ID] = append(m.payments[paid.ID], p)
	m.obligations[paid.ID] = cloneObligation(paid)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, obligationID string) ([]debts.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]debts.Payment(nil), m.payments[obligationID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

func (m *Memory) SaveService(_ context.Context, s utilities.Service) error {
	if s.ID == "" {
		return finance.Invalid("id", "is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.services[s.ID]; ok && s.CreatedAt.IsZero() {
		s.CreatedAt = prev.CreatedAt
	}
	m.services[s.ID] = s
	return nil
}

func (m *Memory) GetService(_ context.Context, id string) (utilities.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return utilities.Service{}, finance.ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListServices(_ context.Context) ([]utilities.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]utilities.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SaveMeasurement(_ context.Context, meas utilities.Measurement) error {
	if meas.ID == "" {
		return finance.Invalid("id", "is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[meas.ServiceID]; !ok {
		return finance.Invalid("service_id", "unknown service %q", meas.ServiceID)
	}
	for i, existing := range m.measurements {
		if existing.ID == meas.ID {
			m.measurements[i] = meas
			return nil
		}
	}
	m.measurements = append(m.measurements, meas)
	return nil
}

func (m *Memory) ListMeasurements(_ context.Context, filter store.MeasurementFilter) ([]utilities.Measurement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []utilities.Measurement
	for _, meas := range m.measurements {
		if filter.Matches(meas) {
			out = append(out, meas)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// =============================================================================
// REMINDERS
// =============================================================================

func (m *Memory) SaveReminders(_ context.Context, reminders []debts.Reminder) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, r := range reminders {
		if _, ok := m.reminders[r.ID]; ok {
			continue
		}
		m.reminders[r.ID] = r
		added++
	}
	return added, nil
}

func (m *Memory) ListReminders(_ context.Context, from, to time.Time) ([]debts.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []debts.Reminder
	for _, r := range m.reminders {
		if !r.FireAt.Before(from) && !r.FireAt.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) MarkDelivered(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return finance.ErrNotFound
	}
	r.DeliveredAt = &at
	m.reminders[id] = r
	return nil
}

// cloneObligation detaches the pointer and slice fields from the caller's copy.
func cloneObligation(o debts.Obligation) debts.Obligation {
	if o.EndDate != nil {
		v := *o.EndDate
		o.EndDate = &v
	}
	if o.NextDueDate != nil {
		v := *o.NextDueDate
		o.NextDueDate = &v
	}
	if o.TotalInstallments != nil {
		v := *o.TotalInstallments
		o.TotalInstallments = &v
	}
	if o.Tags != nil {
		o.Tags = append([]string(nil), o.Tags...)
	}
	return o
}
