package debts

import (
	"fmt"
	"sort"
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// DefaultAlertLimit is how many alerts the dashboard shows.
const DefaultAlertLimit = 4

// DefaultReminderHorizon is how far ahead reminders are planned.
const DefaultReminderHorizon = 7 * 24 * time.Hour

// Alert pairs an obligation with its derived health.
type Alert struct {
	Obligation Obligation
	Health     Health
}

// RankAlerts returns the obligations that need attention (tier above ok),
// most urgent first by days to due. Equal days keep input order. A limit
// <= 0 returns every alert.
func RankAlerts(obligations []Obligation, now time.Time, limit int) []Alert {
	var alerts []Alert
	for _, o := range obligations {
		h := Evaluate(o, now)
		if h.Tier == RiskOK {
			continue
		}
		alerts = append(alerts, Alert{Obligation: o, Health: h})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Health.DaysToDue < alerts[j].Health.DaysToDue
	})

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}

// Upcoming returns open obligations due between today and today+within,
// earliest first.
func Upcoming(obligations []Obligation, now time.Time, within time.Duration) []Alert {
	horizon := finance.DaysBetween(now, now.Add(within))

	var out []Alert
	for _, o := range obligations {
		if !o.Status.Open() {
			continue
		}
		h := Evaluate(o, now)
		if h.DaysToDue < 0 || h.DaysToDue > horizon {
			continue
		}
		out = append(out, Alert{Obligation: o, Health: h})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Health.DueDate.Before(out[j].Health.DueDate)
	})
	return out
}

// =============================================================================
// REMINDERS
// =============================================================================

// PlanReminders derives the reminders for open obligations that are either
// flagged by their risk tier or due within the horizon.
//
// IDs are derived from obligation and due date, so planning twice for the
// same due date yields the same reminders.
func PlanReminders(obligations []Obligation, now time.Time, horizon time.Duration) []Reminder {
	if horizon <= 0 {
		horizon = DefaultReminderHorizon
	}
	horizonDays := finance.DaysBetween(now, now.Add(horizon))

	var reminders []Reminder
	for _, o := range obligations {
		if !o.Status.Open() {
			continue
		}
		h := Evaluate(o, now)
		if h.Tier == RiskOK && h.DaysToDue > horizonDays {
			continue
		}

		kind := reminderKind(o, h)
		fireAt := finance.StartOfDay(now)
		if kind != ReminderOverdue && h.DaysToDue > 0 {
			// Remind threshold days ahead of the due date, never in the past.
			lead := h.DueDate.AddDate(0, 0, -o.AlertThresholdDays)
			fireAt = finance.MaxTime(fireAt, finance.StartOfDay(lead))
		}

		reminders = append(reminders, Reminder{
			ID:           fmt.Sprintf("%s:%s:%s", o.ID, kind, h.DueDate.Format(finance.DateLayout)),
			ObligationID: o.ID,
			FireAt:       fireAt,
			Kind:         kind,
			Message:      reminderMessage(o, h, kind),
			CreatedAt:    now,
		})
	}
	return reminders
}

func reminderKind(o Obligation, h Health) ReminderKind {
	switch {
	case o.Status == StatusOverdue || h.DaysToDue < 0:
		return ReminderOverdue
	case o.Status == StatusPostponed:
		return ReminderPostponed
	default:
		return ReminderUpcoming
	}
}

func reminderMessage(o Obligation, h Health, kind ReminderKind) string {
	amount := o.Amount.Money().Cents()
	due := h.DueDate.Format(finance.DateLayout)
	switch kind {
	case ReminderOverdue:
		return fmt.Sprintf("%s (%s) is overdue since %s", o.Name, amount, due)
	case ReminderPostponed:
		return fmt.Sprintf("%s (%s) was postponed to %s", o.Name, amount, due)
	}
	if h.DaysToDue == 0 {
		return fmt.Sprintf("%s (%s) is due today", o.Name, amount)
	}
	return fmt.Sprintf("%s (%s) is due in %d days, on %s", o.Name, amount, h.DaysToDue, due)
}
