/*
summary.go - Portfolio summary over a snapshot of obligations

PURPOSE:
  Reduces a list of obligations to the numbers the dashboard shows: totals
  by status bucket, the monthly and biweekly spend projection, the nearest
  upcoming due item, and installment progress.

BUCKETS:
  Every obligation adds to TotalAmount. Then exactly one of:
    paid                 -> TotalPaid
    pending, postponed   -> TotalPending
    overdue              -> TotalOverdue
  Archived (and unknown) statuses contribute to TotalAmount only.

PROJECTION:
  monthly frequency:  monthly += amount,   biweekly += round(amount / 2)
  biweekly frequency: monthly += amount/2, biweekly += amount
  Any other frequency is projected as monthly.

NEXT DUE:
  The earliest resolved due instant among obligations that are not paid.
  Ties keep the first obligation in input order.

INSTALLMENTS:
  TotalInstallments when set, otherwise the whole months between start and
  end date (or now), floored at 1.

Amounts are normalized once per obligation through finance.Amount.Money();
malformed values count as zero and are tallied in MalformedAmounts.
*/
package debts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iag-lol/gastosanuales-app/finance"
)

// Summary is the derived dashboard aggregate. It holds no references to
// the input obligations.
type Summary struct {
	TotalAmount        finance.Money
	TotalPending       finance.Money
	TotalOverdue       finance.Money
	TotalPaid          finance.Money
	MonthlyProjection  finance.Money
	BiweeklyProjection finance.Money

	// Set only when at least one unpaid obligation exists.
	NextDueDate   *time.Time
	NextDueAmount *finance.Money
	NextDueID     string

	Installments     int
	InstallmentsPaid int

	MalformedAmounts int
}

// Summarize aggregates obligations as of now. Deterministic for a given
// input order; never mutates its input.
func Summarize(obligations []Obligation, now time.Time) Summary {
	s := Summary{
		TotalAmount:        finance.Zero(),
		TotalPending:       finance.Zero(),
		TotalOverdue:       finance.Zero(),
		TotalPaid:          finance.Zero(),
		MonthlyProjection:  finance.Zero(),
		BiweeklyProjection: finance.Zero(),
	}

	for _, o := range obligations {
		if !o.Amount.Valid() {
			s.MalformedAmounts++
		}
		amount := o.Amount.Money()

		s.TotalAmount = s.TotalAmount.Add(amount)
		switch o.Status {
		case StatusPaid:
			s.TotalPaid = s.TotalPaid.Add(amount)
		case StatusPending, StatusPostponed:
			s.TotalPending = s.TotalPending.Add(amount)
		case StatusOverdue:
			s.TotalOverdue = s.TotalOverdue.Add(amount)
		}

		if o.Status != StatusPaid {
			due := Resolve(o, now)
			if s.NextDueDate == nil || due.Before(*s.NextDueDate) {
				dueAmount := amount
				s.NextDueDate = &due
				s.NextDueAmount = &dueAmount
				s.NextDueID = o.ID
			}
		}

		monthly, biweekly := projection(o.Frequency, amount)
		s.MonthlyProjection = s.MonthlyProjection.Add(monthly)
		s.BiweeklyProjection = s.BiweeklyProjection.Add(biweekly)

		s.Installments += installmentCount(o, now)
		s.InstallmentsPaid += o.InstallmentsPaid
	}

	return s
}

// projection returns the monthly- and biweekly-equivalent contributions.
func projection(f Frequency, amount finance.Money) (monthly, biweekly finance.Money) {
	if f == FrequencyBiweekly {
		return amount.Half(), amount
	}
	return amount, amount.Half().Round(0)
}

func installmentCount(o Obligation, now time.Time) int {
	if o.TotalInstallments != nil {
		return *o.TotalInstallments
	}
	end := now
	if o.EndDate != nil {
		end = *o.EndDate
	}
	start := o.StartDate
	if start.IsZero() {
		start = now
	}
	months := finance.MonthsBetween(start, end)
	if months < 1 {
		return 1
	}
	return months
}

// Progress returns paid/total installments as a 0-100 percentage, rounded
// to one decimal. Zero when there is nothing to pay.
func (s Summary) Progress() float64 {
	if s.Installments <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(s.InstallmentsPaid)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.Installments))).
		Round(1)
	return pct.InexactFloat64()
}
