package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

var now = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixture() Report {
	obligations := []debts.Obligation{
		{
			ID: "rent", Name: "Rent", Amount: "450000",
			Frequency: debts.FrequencyMonthly, DueRule: debts.DueEndOfMonth,
			StartDate: day(2024, 1, 1), Status: debts.StatusPending, AlertThresholdDays: 5,
		},
		{
			ID: "card", Name: "Card", Amount: "180000.50",
			Frequency: debts.FrequencyMonthly, DueRule: debts.DueCustomDay, CustomDueDay: 15,
			StartDate: day(2024, 1, 1), Status: debts.StatusOverdue, AlertThresholdDays: 5,
		},
	}

	budget := finance.Amount("20000")
	services := []utilities.Service{
		{ID: "svc-water", Name: "Water", Kind: utilities.KindWater, Unit: "m3", MonthlyBudget: &budget},
	}
	measurements := []utilities.Measurement{
		{ID: "m1", ServiceID: "svc-water", PeriodStart: day(2024, 2, 1), PeriodEnd: day(2024, 2, 28), UnitsUsed: decimal.NewFromInt(18), Amount: "20000"},
		{ID: "m2", ServiceID: "svc-water", PeriodStart: day(2024, 3, 1), PeriodEnd: day(2024, 3, 10), UnitsUsed: decimal.NewFromInt(21), Amount: "25000"},
	}

	return Build("Casa Soto", obligations, services, measurements, now, 4)
}

func TestBuild(t *testing.T) {
	// GIVEN: Two obligations and one metered service
	// WHEN: Building the report
	r := fixture()

	// THEN: The engine aggregates are carried through
	assert.True(t, r.Summary.TotalAmount.Equal(finance.MustParseMoney("630000.50")))
	assert.Equal(t, "card", r.Summary.NextDueID)

	// AND: Only the overdue card raises an alert
	require.Len(t, r.Alerts, 1)
	assert.Equal(t, debts.RiskCritical, r.Alerts[0].Health.Tier)

	// AND: Water went up by a quarter and broke its budget
	require.Len(t, r.Insights, 1)
	assert.True(t, r.Insights[0].OverBudget)
	assert.True(t, r.Overview.VariancePercent.Equal(decimal.NewFromInt(25)))
}

func TestRender(t *testing.T) {
	out := Render(fixture())

	for _, want := range []string{
		"Casa Soto · 2024-03-10",
		"$630,000.50",
		"$450,000",
		"$180,000.50",
		"2024-03-15",
		"in 5 days",
		"critical",
		"Water",
		"+25.0%",
		"21 m3",
		"over",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Rent", "rent is not due soon enough to alert")
}

func TestRender_NoServicesNoAlerts(t *testing.T) {
	r := Build("", nil, nil, nil, now, 4)

	out := Render(r)

	assert.Contains(t, out, "Household overview")
	assert.Contains(t, out, "nothing due")
	assert.Contains(t, out, "Nothing needs attention.")
	assert.NotContains(t, out, "Utilities")
}

func TestRenderSummary_MalformedAmounts(t *testing.T) {
	s := debts.Summarize([]debts.Obligation{{Name: "Broken", Amount: "abc", Status: debts.StatusPending, StartDate: now}}, now)

	assert.Contains(t, RenderSummary(s), "Unreadable amounts")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Name", "Amount"},
		Rows:    [][]string{{"Crédito", "$1"}, {"---"}, {"Total", "$10,000"}},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)

	// Every line has the same display width, accents included
	for _, l := range lines[1:] {
		assert.Equal(t, len([]rune(lines[0])), len([]rune(l)), l)
	}
	assert.Contains(t, lines[3], "Crédito")
	assert.Contains(t, lines[3], "     $1 ")

	assert.Empty(t, RenderTable(Table{}))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"999", "$999"},
		{"450000", "$450,000"},
		{"180000.5", "$180,000.50"},
		{"12.345", "$12.35"},
		{"-42000", "$-42,000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(finance.MustParseMoney(tt.in)))
		})
	}
}

func TestFormatDays(t *testing.T) {
	assert.Equal(t, "today", FormatDays(0))
	assert.Equal(t, "tomorrow", FormatDays(1))
	assert.Equal(t, "in 12 days", FormatDays(12))
	assert.Equal(t, "3 days late", FormatDays(-3))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+37.3%", FormatPercent(37.32))
	assert.Equal(t, "-14.3%", FormatPercent(-14.29))
	assert.Equal(t, "+0.0%", FormatPercent(0))
}
