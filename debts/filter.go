package debts

import (
	"strings"
	"time"
)

// Filter narrows an obligation snapshot the way the debts list does.
// Zero-valued fields do not filter.
type Filter struct {
	Statuses        []Status
	Search          string // case-insensitive, over name and description
	Category        string
	HouseholdMember string
	OnlyCritical    bool // keep obligations whose tier is not ok
}

func (f Filter) IsZero() bool {
	return len(f.Statuses) == 0 && f.Search == "" && f.Category == "" &&
		f.HouseholdMember == "" && !f.OnlyCritical
}

// Matches reports whether o passes every criterion of f.
func (f Filter) Matches(o Obligation, now time.Time) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if f.Category != "" && o.Category != f.Category {
		return false
	}
	if f.HouseholdMember != "" && o.HouseholdMember != f.HouseholdMember {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(o.Name), q) &&
			!strings.Contains(strings.ToLower(o.Description), q) {
			return false
		}
	}
	if f.OnlyCritical && Evaluate(o, now).Tier == RiskOK {
		return false
	}
	return true
}

// Apply returns the obligations matching f, in input order.
func (f Filter) Apply(obligations []Obligation, now time.Time) []Obligation {
	if f.IsZero() {
		return obligations
	}
	out := make([]Obligation, 0, len(obligations))
	for _, o := range obligations {
		if f.Matches(o, now) {
			out = append(out, o)
		}
	}
	return out
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
