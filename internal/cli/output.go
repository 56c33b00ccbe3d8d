package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/sheets"
)

// Format selects how a projection is printed.
type Format string

// Supported output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
}

// WriteProjection prints a report in the requested format.
func WriteProjection(w io.Writer, report *sheets.ProjectionReport, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	default:
		return RenderProjection(w, report)
	}
}

type jsonRow struct {
	Date      civil.Date        `json:"date"`
	Inflow    string            `json:"inflow"`
	Outflow   string            `json:"outflow"`
	Balance   string            `json:"balance"`
	Accounts  map[string]string `json:"accounts,omitempty"`
	Projected bool              `json:"projected"`
}

type jsonWarning struct {
	Date      civil.Date `json:"date"`
	AccountID string     `json:"account_id"`
	Balance   string     `json:"balance"`
	Threshold string     `json:"threshold"`
}

type jsonReport struct {
	Start    civil.Date        `json:"start"`
	End      civil.Date        `json:"end"`
	Bucket   model.BucketWidth `json:"bucket"`
	Accounts []string          `json:"accounts,omitempty"`
	Rows     []jsonRow         `json:"rows"`
	Warnings []jsonWarning     `json:"warnings"`
}

// WriteJSON prints a report as indented JSON. Amounts are fixed two-decimal strings.
func WriteJSON(w io.Writer, report *sheets.ProjectionReport) error {
	out := jsonReport{
		Start:    report.Start,
		End:      report.End,
		Bucket:   report.Bucket,
		Accounts: report.Accounts,
		Rows:     make([]jsonRow, 0, len(report.Rows)),
		Warnings: make([]jsonWarning, 0, len(report.Warnings)),
	}

	for _, row := range report.Rows {
		jr := jsonRow{
			Date:      row.BucketDate,
			Inflow:    row.Inflow.StringFixed(2),
			Outflow:   row.Outflow.StringFixed(2),
			Balance:   row.Balance.StringFixed(2),
			Projected: row.IsProjected,
		}
		if len(report.Accounts) > 0 {
			jr.Accounts = make(map[string]string, len(report.Accounts))
			for i, balance := range row.AccountBalances {
				if balance.Valid && i < len(report.Accounts) {
					jr.Accounts[report.Accounts[i]] = balance.Decimal.StringFixed(2)
				}
			}
		}
		out.Rows = append(out.Rows, jr)
	}

	for _, warning := range report.Warnings {
		out.Warnings = append(out.Warnings, jsonWarning{
			Date:      warning.Date,
			AccountID: warning.AccountID,
			Balance:   warning.Balance.StringFixed(2),
			Threshold: warning.Threshold.StringFixed(2),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV prints one line per bucket with a header row.
func WriteCSV(w io.Writer, report *sheets.ProjectionReport) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "inflow", "outflow", "balance"}
	for _, acct := range report.Accounts {
		header = append(header, "balance:"+acct)
	}
	header = append(header, "projected")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Rows {
		record := []string{
			row.BucketDate.String(),
			row.Inflow.StringFixed(2),
			row.Outflow.StringFixed(2),
			row.Balance.StringFixed(2),
		}
		for _, balance := range row.AccountBalances {
			if balance.Valid {
				record = append(record, balance.Decimal.StringFixed(2))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, strconv.FormatBool(row.IsProjected))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
