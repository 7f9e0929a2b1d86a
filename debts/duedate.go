/*
duedate.go - Next due date derivation

PURPOSE:
  Turns an obligation's due-day rule into a concrete due instant relative
  to a reference time. Each rule is a strategy registered by DueRule so new
  rules can be added without touching Resolve.

REFERENCE POINT:
  The month is chosen from max(start date, now). An obligation that starts
  in the future is never due before it starts.

RULES:
  end_of_month: last calendar day of the reference month.
  quincena:     the 15th when the reference day is <= 15, otherwise day 30.
                Day 30 is NOT clamped to short months: in February it
                overflows into early March exactly like time.Date does.
                Kept as-is until product decides otherwise.
  custom:       midnight of the obligation's day in the reference month,
                rolled one month forward when that instant precedes the
                reference point. Past midnight on the due day the next
                month is returned. Day numbers past the month's end overflow.

STORED OVERRIDE:
  A stored NextDueDate is authoritative and returned untouched.

UNKNOWN RULES:
  Resolve returns the reference point itself. There is no error path.
*/
package debts

import (
	"time"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// QuincenaSecondAnchor is the fixed day used for the second half of the month.
const QuincenaSecondAnchor = 30

// DueRuleStrategy computes the due instant for one rule from the reference point.
type DueRuleStrategy interface {
	NextDue(o Obligation, reference time.Time) time.Time
}

// EndOfMonthRule implements DueRuleStrategy for DueEndOfMonth.
type EndOfMonthRule struct{}

func (EndOfMonthRule) NextDue(_ Obligation, reference time.Time) time.Time {
	return finance.EndOfMonth(reference)
}

// QuincenaRule implements DueRuleStrategy for DueQuincena.
type QuincenaRule struct{}

func (QuincenaRule) NextDue(_ Obligation, reference time.Time) time.Time {
	day := 15
	if reference.Day() > 15 {
		day = QuincenaSecondAnchor
	}
	return finance.DateIn(reference.Year(), reference.Month(), day, reference.Location())
}

// CustomDayRule implements DueRuleStrategy for DueCustomDay.
type CustomDayRule struct{}

func (CustomDayRule) NextDue(o Obligation, reference time.Time) time.Time {
	day := o.CustomDueDay
	if day < 1 || day > 31 {
		// Missing day: fall back to the reference day itself.
		day = reference.Day()
	}
	candidate := finance.DateIn(reference.Year(), reference.Month(), day, reference.Location())
	if candidate.Before(reference) {
		return finance.DateIn(reference.Year(), reference.Month()+1, day, reference.Location())
	}
	return candidate
}

var dueRuleStrategies = map[DueRule]DueRuleStrategy{
	DueEndOfMonth: EndOfMonthRule{},
	DueQuincena:   QuincenaRule{},
	DueCustomDay:  CustomDayRule{},
}

// RegisterDueRule adds or replaces the strategy for a rule. Not safe to call
// concurrently with Resolve; register at init time.
func RegisterDueRule(rule DueRule, strategy DueRuleStrategy) {
	dueRuleStrategies[rule] = strategy
}

// ReferencePoint returns max(start date, now).
func ReferencePoint(o Obligation, now time.Time) time.Time {
	if o.StartDate.IsZero() {
		return now
	}
	return finance.MaxTime(o.StartDate, now)
}

// Resolve returns the next due instant of o as seen from now.
func Resolve(o Obligation, now time.Time) time.Time {
	if o.NextDueDate != nil {
		return *o.NextDueDate
	}
	reference := ReferencePoint(o, now)
	strategy, ok := dueRuleStrategies[o.DueRule]
	if !ok {
		return reference
	}
	return strategy.NextDue(o, reference)
}
