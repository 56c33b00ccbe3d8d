package forecast

import (
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

var halfCent = decimal.New(5, -3)

// roundCents rounds to two decimals, sending ties toward positive infinity.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Add(halfCent).RoundFloor(2)
}

type bucket struct {
	date      civil.Date
	inflow    decimal.Decimal
	outflow   decimal.Decimal
	projected bool
}

// LatestCheckpoint returns the most recent checkpoint for the account dated on or
// before asOf, or nil. Among checkpoints sharing a date the highest ID wins.
func LatestCheckpoint(checkpoints []model.Checkpoint, accountID string, asOf civil.Date) *model.Checkpoint {
	var best *model.Checkpoint
	for i := range checkpoints {
		cp := &checkpoints[i]
		if cp.AccountID != accountID || cp.Date.After(asOf) {
			continue
		}
		if best == nil || cp.Date.After(best.Date) || (cp.Date == best.Date && cp.ID > best.ID) {
			best = cp
		}
	}
	return best
}

// Project aggregates transactions within [StartDate, EndDate] into buckets and
// walks them in date order, accumulating a running balance. The balance starts at
// params.StartingBalance, or at the checkpoint's balance when one is given and
// dated on or before StartDate. Every bucket whose balance ends strictly below
// params.WarningThreshold produces a warning.
func Project(transactions []model.Transaction, params model.ProjectionParams, checkpoint *model.Checkpoint) model.ProjectionResult {
	buckets := aggregate(inRange(transactions, params.StartDate, params.EndDate), params.BucketWidth)
	opening := openingBalance(params.StartingBalance, checkpoint, params.StartDate)

	points, warnings := walk(buckets, opening, params.WarningThreshold, params.AccountID)
	return model.ProjectionResult{DataPoints: points, Warnings: warnings}
}

// ProjectAccounts runs Project independently for every account and adds a total
// curve over the union of all accounts' bucket dates.
//
// Accounts are discovered from transactions, checkpoints and
// params.AccountBalances. Each account opens at its AccountBalances entry (zero
// when absent) unless a checkpoint anchors it, and warns against its
// AccountThresholds entry, falling back to WarningThreshold.
func ProjectAccounts(transactions []model.Transaction, params model.ProjectionParams, checkpoints []model.Checkpoint) model.MultiProjectionResult {
	filtered := inRange(transactions, params.StartDate, params.EndDate)

	byAccount := make(map[string][]model.Transaction)
	for _, txn := range filtered {
		byAccount[txn.AccountID] = append(byAccount[txn.AccountID], txn)
	}

	accountSet := make(map[string]struct{})
	for id := range byAccount {
		accountSet[id] = struct{}{}
	}
	for _, cp := range checkpoints {
		accountSet[cp.AccountID] = struct{}{}
	}
	for id := range params.AccountBalances {
		accountSet[id] = struct{}{}
	}
	accounts := make([]string, 0, len(accountSet))
	for id := range accountSet {
		accounts = append(accounts, id)
	}
	slices.Sort(accounts)

	result := model.MultiProjectionResult{
		Accounts: make([]model.AccountProjection, 0, len(accounts)),
		Total:    make([]model.CashPoint, 0),
		Warnings: make([]model.ProjectionWarning, 0),
	}
	openings := make([]decimal.Decimal, 0, len(accounts))

	for _, id := range accounts {
		opening := openingBalance(
			params.AccountBalances[id],
			LatestCheckpoint(checkpoints, id, params.StartDate),
			params.StartDate,
		)

		threshold := params.WarningThreshold
		if t, ok := params.AccountThresholds[id]; ok {
			threshold = decimal.NewNullDecimal(t)
		}

		points, warnings := walk(aggregate(byAccount[id], params.BucketWidth), opening, threshold, id)
		result.Accounts = append(result.Accounts, model.AccountProjection{AccountID: id, DataPoints: points})
		result.Warnings = append(result.Warnings, warnings...)
		openings = append(openings, opening)
	}

	result.Total = totalCurve(result.Accounts, openings)

	slices.SortStableFunc(result.Warnings, func(a, b model.ProjectionWarning) int {
		if c := compareDates(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.AccountID, b.AccountID)
	})

	return result
}

// inRange keeps transactions dated within [start, end] and sorts them by date, then ID.
func inRange(transactions []model.Transaction, start, end civil.Date) []model.Transaction {
	out := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		out = append(out, txn)
	}
	sortTransactions(out)
	return out
}

// aggregate sums sorted transactions into buckets, returned in ascending order.
func aggregate(sorted []model.Transaction, width model.BucketWidth) []bucket {
	var buckets []bucket
	for _, txn := range sorted {
		key := BucketStart(txn.Date, width)
		if len(buckets) == 0 || buckets[len(buckets)-1].date != key {
			buckets = append(buckets, bucket{date: key})
		}

		b := &buckets[len(buckets)-1]
		if txn.Amount.IsNegative() {
			b.outflow = b.outflow.Add(txn.Amount)
		} else {
			b.inflow = b.inflow.Add(txn.Amount)
		}
		b.projected = b.projected || txn.IsProjected
	}
	return buckets
}

func openingBalance(starting decimal.Decimal, checkpoint *model.Checkpoint, start civil.Date) decimal.Decimal {
	if checkpoint != nil && !checkpoint.Date.After(start) {
		return checkpoint.Balance
	}
	return starting
}

func walk(buckets []bucket, opening decimal.Decimal, threshold decimal.NullDecimal, accountID string) ([]model.CashPoint, []model.ProjectionWarning) {
	points := make([]model.CashPoint, 0, len(buckets))
	warnings := make([]model.ProjectionWarning, 0)

	balance := opening
	for _, b := range buckets {
		balance = roundCents(balance.Add(b.inflow).Add(b.outflow))
		points = append(points, model.CashPoint{
			BucketDate:  b.date,
			Balance:     balance,
			Inflow:      b.inflow,
			Outflow:     b.outflow,
			IsProjected: b.projected,
		})

		if threshold.Valid && balance.LessThan(threshold.Decimal) {
			warnings = append(warnings, model.ProjectionWarning{
				Date:      b.date,
				AccountID: accountID,
				Balance:   balance,
				Threshold: threshold.Decimal,
			})
		}
	}
	return points, warnings
}

// totalCurve sums every account's carried-forward balance at each bucket date
// present in any account. Accounts without activity yet contribute their opening balance.
func totalCurve(accounts []model.AccountProjection, openings []decimal.Decimal) []model.CashPoint {
	dateSet := make(map[civil.Date]struct{})
	for _, acct := range accounts {
		for _, p := range acct.DataPoints {
			dateSet[p.BucketDate] = struct{}{}
		}
	}
	dates := make([]civil.Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, compareDates)

	cursors := make([]int, len(accounts))
	current := slices.Clone(openings)
	total := make([]model.CashPoint, 0, len(dates))

	for _, d := range dates {
		point := model.CashPoint{BucketDate: d}
		sum := decimal.Zero

		for i, acct := range accounts {
			if c := cursors[i]; c < len(acct.DataPoints) && acct.DataPoints[c].BucketDate == d {
				p := acct.DataPoints[c]
				current[i] = p.Balance
				point.Inflow = point.Inflow.Add(p.Inflow)
				point.Outflow = point.Outflow.Add(p.Outflow)
				point.IsProjected = point.IsProjected || p.IsProjected
				cursors[i]++
			}
			sum = sum.Add(current[i])
		}

		point.Balance = roundCents(sum)
		total = append(total, point)
	}
	return total
}
