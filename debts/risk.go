package debts

import (
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// =============================================================================
// RISK TIERS
// =============================================================================

type RiskTier string

const (
	RiskOK        RiskTier = "ok"
	RiskAttention RiskTier = "attention"
	RiskWarning   RiskTier = "warning"
	RiskCritical  RiskTier = "critical"
)

// Severity orders tiers: ok < attention < warning < critical.
func (t RiskTier) Severity() int {
	switch t {
	case RiskAttention:
		return 1
	case RiskWarning:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Health is the derived urgency of one obligation. The stored status is
// never rewritten; only this value changes with time.
type Health struct {
	Tier      RiskTier
	DaysToDue int
	DueDate   time.Time
}

// Classify picks the risk tier of o for a resolved due date.
//
// DaysToDue is the calendar-day difference between now and due
// (finance.DaysBetween), not a count of elapsed 24-hour spans: a bill due
// at midnight tomorrow is one day away at any hour today.
//
// Priority: stored overdue status wins regardless of dates, then due today
// or earlier, then within the alert threshold.
func Classify(o Obligation, due, now time.Time) Health {
	days := finance.DaysBetween(now, due)
	h := Health{DaysToDue: days, DueDate: due}

	switch {
	case o.Status == StatusOverdue:
		h.Tier = RiskCritical
	case days <= 0:
		h.Tier = RiskWarning
	case days <= o.AlertThresholdDays:
		h.Tier = RiskAttention
	default:
		h.Tier = RiskOK
	}
	return h
}

// Evaluate resolves the due date of o and classifies it.
func Evaluate(o Obligation, now time.Time) Health {
	return Classify(o, Resolve(o, now), now)
}
