/*
render.go - Terminal rendering of the household overview

PURPOSE:
  Turns the engine's derived views (debts.Summary, ranked alerts, utility
  insights) into bordered terminal tables for the `server summary` command.
  Nothing here computes money; it only formats what the engine returns.

LAYOUT:
  ╭ Title ─────────────────────────╮
  Summary   totals, projections, next due, installment progress
  Alerts    most urgent first, tier colored
  Utilities per-service variance with budget flags

STYLING:
  Colors come from lipgloss. When stdout is not a terminal lipgloss falls
  back to plain text, so the output is also safe to pipe or test.

SEE ALSO:
  - debts/summary.go: Summarize
  - debts/alerts.go: RankAlerts
  - utilities/variance.go: ComparePeriods
  - cmd/server/main.go: summary command
*/
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

// Theme colors
var (
	ColorBorder = lipgloss.Color("#575653")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
	ColorYellow = lipgloss.Color("#D0A215")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().Foreground(ColorText)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorBorder)
)

var tierColors = map[debts.RiskTier]lipgloss.Color{
	debts.RiskCritical:  ColorRed,
	debts.RiskWarning:   ColorOrange,
	debts.RiskAttention: ColorYellow,
	debts.RiskOK:        ColorGreen,
}

// =============================================================================
// REPORT
// =============================================================================

// Report is everything the summary command prints.
type Report struct {
	Household string
	Now       time.Time

	Summary  debts.Summary
	Alerts   []debts.Alert
	Insights []utilities.Insight
	Overview utilities.Overview
}

// Build derives a report from raw snapshots. Measurements are compared
// month over month around now; alertLimit <= 0 keeps every alert.
func Build(household string, obligations []debts.Obligation, services []utilities.Service, measurements []utilities.Measurement, now time.Time, alertLimit int) Report {
	current, prior := utilities.SplitByMonth(measurements, now)
	insights := utilities.ComparePeriods(current, prior, services)

	return Report{
		Household: household,
		Now:       now,
		Summary:   debts.Summarize(obligations, now),
		Alerts:    debts.RankAlerts(obligations, now, alertLimit),
		Insights:  insights,
		Overview:  utilities.Summarize(insights),
	}
}

// Render renders the full report. The utilities block is omitted when no
// service is configured.
func Render(r Report) string {
	title := "Household overview"
	if r.Household != "" {
		title = r.Household
	}

	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("%s · %s", title, r.Now.Format(finance.DateLayout))))
	b.WriteString("\n\n")
	b.WriteString(RenderSummary(r.Summary))
	b.WriteString("\n")
	b.WriteString(RenderAlerts(r.Alerts))
	if len(r.Insights) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderInsights(r.Insights, r.Overview))
	}
	return b.String()
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderSummary renders the dashboard totals.
func RenderSummary(s debts.Summary) string {
	rows := [][]string{
		{"Total", FormatMoney(s.TotalAmount)},
		{"Pending", FormatMoney(s.TotalPending)},
		{"Overdue", FormatMoney(s.TotalOverdue)},
		{"Paid", FormatMoney(s.TotalPaid)},
		{"Monthly projection", FormatMoney(s.MonthlyProjection)},
		{"Biweekly projection", FormatMoney(s.BiweeklyProjection)},
	}

	next := "nothing due"
	if s.NextDueDate != nil {
		next = s.NextDueDate.Format(finance.DateLayout)
		if s.NextDueAmount != nil {
			next += "  " + FormatMoney(*s.NextDueAmount)
		}
	}
	rows = append(rows,
		[]string{"Next due", next},
		[]string{"Installments", fmt.Sprintf("%d / %d (%.1f%%)", s.InstallmentsPaid, s.Installments, s.Progress())},
	)
	if s.MalformedAmounts > 0 {
		rows = append(rows, []string{"Unreadable amounts", humanize.Comma(int64(s.MalformedAmounts))})
	}

	return RenderTable(Table{Title: "Summary", Rows: rows})
}

// RenderAlerts renders ranked alerts, or a single line when there are none.
func RenderAlerts(alerts []debts.Alert) string {
	if len(alerts) == 0 {
		return "  " + headerStyle.Render("Alerts") + "\n  " + valueStyle.Render("Nothing needs attention.") + "\n"
	}

	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			a.Obligation.Name,
			FormatMoney(a.Obligation.Amount.Money()),
			a.Health.DueDate.Format(finance.DateLayout),
			FormatDays(a.Health.DaysToDue),
			tierLabel(a.Health.Tier),
		})
	}
	return RenderTable(Table{
		Title:   "Alerts",
		Headers: []string{"Obligation", "Amount", "Due", "When", "Risk"},
		Rows:    rows,
	})
}

// RenderInsights renders the per-service comparison and its total row.
func RenderInsights(insights []utilities.Insight, overview utilities.Overview) string {
	rows := make([][]string, 0, len(insights)+2)
	for _, in := range insights {
		budget := "-"
		if in.BudgetGoal != nil {
			budget = FormatMoney(*in.BudgetGoal)
			if in.OverBudget {
				budget += " " + lipgloss.NewStyle().Foreground(ColorRed).Render("over")
			}
		}
		rows = append(rows, []string{
			in.Service.Name,
			FormatMoney(in.PreviousAmount),
			FormatMoney(in.CurrentAmount),
			FormatPercent(in.VariancePercent.InexactFloat64()),
			in.AverageUnits.String() + " " + in.Service.Unit,
			budget,
		})
	}
	rows = append(rows, []string{"---"}, []string{
		"Total",
		FormatMoney(overview.TotalPrevious),
		FormatMoney(overview.TotalCurrent),
		FormatPercent(overview.VariancePercent.InexactFloat64()),
		"",
		"",
	})

	return RenderTable(Table{
		Title:   "Utilities",
		Headers: []string{"Service", "Previous", "Current", "Change", "Avg use", "Budget"},
		Rows:    rows,
	})
}

func tierLabel(t debts.RiskTier) string {
	color, ok := tierColors[t]
	if !ok {
		color = ColorText
	}
	return lipgloss.NewStyle().Foreground(color).Bold(t == debts.RiskCritical).Render(string(t))
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatMoney formats an amount with thousands separators. Whole amounts
// print without decimals, anything else with two.
// e.g., 450000 -> "$450,000", 180000.5 -> "$180,000.50"
func FormatMoney(m finance.Money) string {
	v := m.Value
	if v.Equal(v.Truncate(0)) {
		return "$" + humanize.Comma(v.IntPart())
	}
	return "$" + humanize.FormatFloat("#,###.##", v.Round(2).InexactFloat64())
}

// FormatPercent formats a signed percentage with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

// FormatDays describes a distance in days relative to today.
func FormatDays(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days < 0:
		return fmt.Sprintf("%d days late", -days)
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// =============================================================================
// TABLE
// =============================================================================

// Table is a bordered text table. A row holding the single cell "---"
// renders as a separator.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders t with rounded borders. The first column is left
// aligned, the rest right aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	b.WriteString(rule("╭", "┬", "╮", widths))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, widths, headerStyle))
		b.WriteString(rule("├", "┼", "┤", widths))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule("├", "┼", "┤", widths))
			continue
		}
		b.WriteString(line(row, widths, valueStyle))
	}
	b.WriteString(rule("╰", "┴", "╯", widths))
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}

func rule(left, mid, right string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
}

func line(cells []string, widths []int, style lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("│"))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", w-lipgloss.Width(cell))
		if i == 0 {
			b.WriteString(style.Render(" " + cell + pad + " "))
		} else {
			b.WriteString(style.Render(" " + pad + cell + " "))
		}
		b.WriteString(dimStyle.Render("│"))
	}
	b.WriteString("\n")
	return b.String()
}
