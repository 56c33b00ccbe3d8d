package sheets

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

// ProjectionWriter publishes a projection report somewhere outside the database.
type ProjectionWriter interface {
	WriteProjection(ctx context.Context, report *ProjectionReport) error
}

// ProjectionRow is one bucket of the report.
type ProjectionRow struct {
	BucketDate civil.Date
	Inflow     decimal.Decimal
	Outflow    decimal.Decimal
	Balance    decimal.Decimal
	// Per-account balances aligned with ProjectionReport.Accounts. Invalid
	// entries mean the account had no balance yet on that date.
	AccountBalances []decimal.NullDecimal
	IsProjected     bool
}

// ProjectionReport is everything written to the forecast sheet.
type ProjectionReport struct {
	Start    civil.Date
	End      civil.Date
	Bucket   model.BucketWidth
	Accounts []string // Empty for a single-account projection
	Rows     []ProjectionRow
	Warnings []model.ProjectionWarning
}

// NewReport builds a report from a single-account projection.
func NewReport(params model.ProjectionParams, result model.ProjectionResult) *ProjectionReport {
	rows := make([]ProjectionRow, 0, len(result.DataPoints))
	for _, p := range result.DataPoints {
		rows = append(rows, ProjectionRow{
			BucketDate:  p.BucketDate,
			Inflow:      p.Inflow,
			Outflow:     p.Outflow,
			Balance:     p.Balance,
			IsProjected: p.IsProjected,
		})
	}

	return &ProjectionReport{
		Start:    params.StartDate,
		End:      params.EndDate,
		Bucket:   params.BucketWidth,
		Rows:     rows,
		Warnings: result.Warnings,
	}
}

// NewMultiReport builds a report from a multi-account projection. Each row is
// a bucket of the total curve with every account's carried-forward balance.
func NewMultiReport(params model.ProjectionParams, result model.MultiProjectionResult) *ProjectionReport {
	accounts := make([]string, len(result.Accounts))
	for i, acct := range result.Accounts {
		accounts[i] = acct.AccountID
	}

	cursors := make([]int, len(result.Accounts))
	current := make([]decimal.NullDecimal, len(result.Accounts))
	rows := make([]ProjectionRow, 0, len(result.Total))

	for _, total := range result.Total {
		for i, acct := range result.Accounts {
			for cursors[i] < len(acct.DataPoints) && !acct.DataPoints[cursors[i]].BucketDate.After(total.BucketDate) {
				current[i] = decimal.NewNullDecimal(acct.DataPoints[cursors[i]].Balance)
				cursors[i]++
			}
		}

		balances := make([]decimal.NullDecimal, len(current))
		copy(balances, current)

		rows = append(rows, ProjectionRow{
			BucketDate:      total.BucketDate,
			Inflow:          total.Inflow,
			Outflow:         total.Outflow,
			Balance:         total.Balance,
			AccountBalances: balances,
			IsProjected:     total.IsProjected,
		})
	}

	return &ProjectionReport{
		Start:    params.StartDate,
		End:      params.EndDate,
		Bucket:   params.BucketWidth,
		Accounts: accounts,
		Rows:     rows,
		Warnings: result.Warnings,
	}
}
