package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/sheets"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// DefaultAccountLabel is shown for the unnamed single account.
const DefaultAccountLabel = "(default)"

// AccountLabel returns a display name for an account ID.
func AccountLabel(accountID string) string {
	if accountID == "" {
		return DefaultAccountLabel
	}
	return accountID
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(BorderColor)).
		Headers(headers...)
}

// RenderProjection writes a projection report as a table followed by a summary.
func RenderProjection(w io.Writer, report *sheets.ProjectionReport) error {
	title := fmt.Sprintf("%s Cash flow forecast %s to %s (%s buckets)",
		ChartIcon, report.Start, report.End, report.Bucket)
	if _, err := fmt.Fprintln(w, TitleStyle.Render(title)); err != nil {
		return err
	}

	if len(report.Rows) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No transactions fall within the forecast window"))
		return err
	}

	headers := []string{"Date", "Inflow", "Outflow", "Balance"}
	for _, acct := range report.Accounts {
		headers = append(headers, AccountLabel(acct))
	}
	headers = append(headers, "")

	lowDates := make(map[civil.Date]bool, len(report.Warnings))
	for _, warning := range report.Warnings {
		lowDates[warning.Date] = true
	}

	t := newTable(headers...)
	for _, row := range report.Rows {
		cells := []string{
			row.BucketDate.String(),
			FormatMoney(row.Inflow),
			FormatMoney(row.Outflow),
			FormatMoney(row.Balance),
		}
		for _, balance := range row.AccountBalances {
			cells = append(cells, formatNullMoney(balance))
		}
		cells = append(cells, rowNote(row.IsProjected, lowDates[row.BucketDate]))
		t.Row(cells...)
	}

	rows := report.Rows
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return TableHeaderStyle
		case row < 0 || row >= len(rows):
			return TableCellStyle
		case lowDates[rows[row].BucketDate]:
			return LowBalanceCellStyle
		case rows[row].IsProjected:
			return ProjectedCellStyle
		default:
			return TableCellStyle
		}
	})

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	return renderSummary(w, report)
}

func rowNote(projected, low bool) string {
	var notes []string
	if projected {
		notes = append(notes, "projected")
	}
	if low {
		notes = append(notes, "low")
	}
	return strings.Join(notes, ", ")
}

func formatNullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return FormatMoney(d.Decimal)
}

func renderSummary(w io.Writer, report *sheets.ProjectionReport) error {
	final := report.Rows[len(report.Rows)-1]
	lowest := report.Rows[0]
	for _, row := range report.Rows[1:] {
		if row.Balance.LessThan(lowest.Balance) {
			lowest = row
		}
	}

	lines := []string{
		fmt.Sprintf("Final balance:   %s", FormatMoney(final.Balance)),
		fmt.Sprintf("Lowest balance:  %s on %s", FormatMoney(lowest.Balance), lowest.BucketDate),
	}
	if _, err := fmt.Fprintln(w, SubtitleStyle.Render(strings.Join(lines, "\n"))); err != nil {
		return err
	}
	return RenderWarnings(w, report.Warnings)
}

// RenderWarnings lists low-balance warnings, or says there are none.
func RenderWarnings(w io.Writer, warnings []model.ProjectionWarning) error {
	if len(warnings) == 0 {
		_, err := fmt.Fprintln(w, FormatSuccess("Balance stays above the warning threshold"))
		return err
	}

	for _, warning := range warnings {
		msg := fmt.Sprintf("%s  %s balance %s is below %s",
			warning.Date,
			AccountLabel(warning.AccountID),
			FormatMoney(warning.Balance),
			FormatMoney(warning.Threshold))
		if _, err := fmt.Fprintln(w, FormatWarning(msg)); err != nil {
			return err
		}
	}
	return nil
}

// RenderSeries writes detected recurring series as a numbered table.
func RenderSeries(w io.Writer, series []model.RecurringSeries) error {
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No recurring series detected"))
		return err
	}

	t := newTable("#", "Description", "Amount", "Every", "Seen", "Last", "Account")
	for i, s := range series {
		t.Row(
			strconv.Itoa(i+1),
			s.Description,
			FormatSignedMoney(s.Amount),
			fmt.Sprintf("%d days", s.AverageIntervalDays),
			strconv.Itoa(len(s.ObservedDates)),
			s.LastObserved().String(),
			AccountLabel(s.AccountID),
		)
	}
	t.StyleFunc(headerStyleFunc)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderRecurring writes stored recurring transactions as a table.
func RenderRecurring(w io.Writer, rules []model.RecurringTransaction) error {
	if len(rules) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No recurring transactions. Add one with 'spice recurring add' or 'spice detect'"))
		return err
	}

	t := newTable("ID", "Description", "Amount", "Schedule", "Starts", "Account", "Enabled")
	for _, rt := range rules {
		enabled := SuccessIcon
		if !rt.Enabled {
			enabled = ErrorIcon
		}
		t.Row(
			strconv.FormatInt(rt.ID, 10),
			rt.Description,
			FormatSignedMoney(rt.Amount),
			rt.Rule.Describe(),
			rt.StartDate.String(),
			AccountLabel(rt.AccountID),
			enabled,
		)
	}
	disabled := make(map[int]bool, len(rules))
	for i, rt := range rules {
		disabled[i] = !rt.Enabled
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row >= 0 && disabled[row] {
			return TableCellStyle.Foreground(SubtleColor)
		}
		return headerStyleFunc(row, col)
	})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderCheckpoints writes balance checkpoints as a table.
func RenderCheckpoints(w io.Writer, checkpoints []model.Checkpoint) error {
	if len(checkpoints) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No balance checkpoints recorded"))
		return err
	}

	t := newTable("Account", "Date", "Balance", "Source")
	for _, cp := range checkpoints {
		t.Row(AccountLabel(cp.AccountID), cp.Date.String(), FormatMoney(cp.Balance), string(cp.Source))
	}
	t.StyleFunc(headerStyleFunc)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderThresholds writes warning thresholds keyed by account, default first.
func RenderThresholds(w io.Writer, thresholds map[string]decimal.Decimal) error {
	if len(thresholds) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No warning thresholds set. Low-balance warnings are off"))
		return err
	}

	accounts := make([]string, 0, len(thresholds))
	for acct := range thresholds {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)

	t := newTable("Account", "Warn below")
	for _, acct := range accounts {
		t.Row(AccountLabel(acct), FormatMoney(thresholds[acct]))
	}
	t.StyleFunc(headerStyleFunc)

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func headerStyleFunc(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return TableHeaderStyle
	}
	return TableCellStyle
}
