/*
Package finance provides the shared core used by the obligation and utility
engines.

PURPOSE:
  Money, dates and periods are needed by every aggregation in the system.
  This package keeps them in one place so the domain packages (debts,
  utilities) only describe their own rules.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money:  An exact monetary value backed by decimal.Decimal
  - Amount: A monetary value as it arrives from storage or the wire,
            either a JSON number or a numeric string

NORMALIZATION:
  Rows coming from the storage layer may carry amounts as "1500", "1500.50",
  1500 or 1500.5. Amount keeps the raw text and Money() is the one explicit
  parse-and-default step: anything that is not a finite decimal becomes
  zero. Aggregators call it once per record before accumulating.

USAGE:
  raw := finance.AmountFromString("1200.50")
  total := finance.Zero().Add(raw.Money())

SEE ALSO:
  - time.go: Calendar helpers
  - period.go: Month windows
  - errors.go: Sentinel errors for collaborators
*/
package finance

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact monetary value
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

func Zero() Money                     { return Money{Value: decimal.Zero} }
func NewMoney(d decimal.Decimal) Money { return Money{Value: d} }
func MoneyFromInt(v int64) Money       { return Money{Value: decimal.NewFromInt(v)} }

// MustParseMoney parses a decimal string, returning zero on failure.
func MustParseMoney(s string) Money {
	return AmountFromString(s).Money()
}

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(d decimal.Decimal) Money    { return Money{Value: m.Value.Mul(d)} }
func (m Money) Div(d decimal.Decimal) Money    { return Money{Value: m.Value.Div(d)} }
func (m Money) Half() Money                    { return Money{Value: m.Value.Div(two)} }
func (m Money) Round(places int32) Money       { return Money{Value: m.Value.Round(places)} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }
func (m Money) Float64() float64               { return m.Value.InexactFloat64() }
func (m Money) String() string                 { return m.Value.String() }

// Cents rounds to two decimal places.
func (m Money) Cents() Money { return m.Round(2) }

// MarshalJSON emits the value as an unquoted JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Value.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var a Amount
	if err := a.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = a.Money()
	return nil
}

// PercentChange returns (current - base) / base * 100. The caller guards
// against a zero base.
func PercentChange(current, base Money) decimal.Decimal {
	return current.Value.Sub(base.Value).Mul(hundred).Div(base.Value)
}

// =============================================================================
// AMOUNT - Raw monetary input
// =============================================================================

// Amount is the textual form of a monetary value as supplied by a
// collaborator. The zero value is an absent amount and normalizes to zero.
type Amount string

func AmountOf(d decimal.Decimal) Amount  { return Amount(d.String()) }
func AmountFromInt(v int64) Amount       { return AmountOf(decimal.NewFromInt(v)) }
func AmountFromString(s string) Amount   { return Amount(s) }
func AmountFromMoney(m Money) Amount     { return AmountOf(m.Value) }

// Money normalizes the raw amount. Empty, non-numeric and non-finite inputs
// ("abc", "NaN", "Infinity") yield zero.
func (a Amount) Money() Money {
	d, ok := a.parse()
	if !ok {
		return Zero()
	}
	return Money{Value: d}
}

// Valid reports whether the raw amount is a finite decimal.
func (a Amount) Valid() bool {
	_, ok := a.parse()
	return ok
}

func (a Amount) IsEmpty() bool { return strings.TrimSpace(string(a)) == "" }

func (a Amount) parse() (decimal.Decimal, bool) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// UnmarshalJSON accepts a JSON number, a JSON string, or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// MarshalJSON writes valid amounts as numbers and keeps anything else as
// the input string so a round trip does not lose information.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.IsEmpty() {
		return []byte("null"), nil
	}
	if d, ok := a.parse(); ok {
		return []byte(d.String()), nil
	}
	return json.Marshal(string(a))
}
