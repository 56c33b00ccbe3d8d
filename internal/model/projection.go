package model

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ErrInvalidBucketWidth is returned for unknown bucket widths.
var ErrInvalidBucketWidth = errors.New("invalid bucket width")

// BucketWidth is the size of the time buckets a projection aggregates into.
type BucketWidth string

const (
	// BucketDay aggregates per calendar day.
	BucketDay BucketWidth = "1d"
	// BucketThreeDays aggregates into epoch-aligned 3-day windows.
	BucketThreeDays BucketWidth = "3d"
	// BucketWeek aggregates into epoch-aligned 7-day windows.
	BucketWeek BucketWidth = "1w"
	// BucketTwoWeeks aggregates into epoch-aligned 14-day windows.
	BucketTwoWeeks BucketWidth = "2w"
	// BucketMonth aggregates per calendar month.
	BucketMonth BucketWidth = "1m"
)

// ParseBucketWidth converts user input into a BucketWidth.
func ParseBucketWidth(s string) (BucketWidth, error) {
	w := BucketWidth(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case BucketDay, BucketThreeDays, BucketWeek, BucketTwoWeeks, BucketMonth:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q (want 1d, 3d, 1w, 2w or 1m)", ErrInvalidBucketWidth, s)
}

// Days returns the fixed width in days, or 0 for calendar-month buckets.
func (w BucketWidth) Days() int {
	switch w {
	case BucketDay:
		return 1
	case BucketThreeDays:
		return 3
	case BucketWeek:
		return 7
	case BucketTwoWeeks:
		return 14
	default:
		return 0
	}
}

// Checkpoint is a known-good actual balance of an account on a date.
type Checkpoint struct {
	Date      civil.Date
	Balance   decimal.Decimal
	AccountID string
	Source    TransactionSource
	ID        int64
}

// ProjectionParams drives a projection run.
type ProjectionParams struct {
	StartDate        civil.Date
	EndDate          civil.Date
	StartingBalance  decimal.Decimal
	WarningThreshold decimal.NullDecimal // Invalid means no warnings
	BucketWidth      BucketWidth
	Sensitivity      Sensitivity
	AccountID        string // Labels warnings of single-account projections

	// Multi-account overrides, keyed by account ID.
	AccountBalances   map[string]decimal.Decimal
	AccountThresholds map[string]decimal.Decimal
}

// CashPoint is the running balance at the end of one bucket.
type CashPoint struct {
	BucketDate  civil.Date      `json:"bucket_date"`
	Balance     decimal.Decimal `json:"balance"`
	Inflow      decimal.Decimal `json:"inflow"`
	Outflow     decimal.Decimal `json:"outflow"`
	IsProjected bool            `json:"is_projected"`
}

// ProjectionWarning flags a bucket whose balance fell below the threshold.
type ProjectionWarning struct {
	Date      civil.Date      `json:"date"`
	Balance   decimal.Decimal `json:"balance"`
	Threshold decimal.Decimal `json:"threshold"`
	AccountID string          `json:"account_id"`
}

// ProjectionResult is the output of a single-series projection.
type ProjectionResult struct {
	DataPoints []CashPoint         `json:"data_points"`
	Warnings   []ProjectionWarning `json:"warnings"`
}

// FinalBalance returns the balance of the last data point.
func (r ProjectionResult) FinalBalance() (decimal.Decimal, bool) {
	if len(r.DataPoints) == 0 {
		return decimal.Zero, false
	}
	return r.DataPoints[len(r.DataPoints)-1].Balance, true
}

// AccountProjection is one account's curve within a multi-account projection.
type AccountProjection struct {
	AccountID  string      `json:"account_id"`
	DataPoints []CashPoint `json:"data_points"`
}

// MultiProjectionResult holds per-account curves plus their total.
type MultiProjectionResult struct {
	Accounts []AccountProjection `json:"accounts"`
	Total    []CashPoint         `json:"total"`
	Warnings []ProjectionWarning `json:"warnings"`
}
