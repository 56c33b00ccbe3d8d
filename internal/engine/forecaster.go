// Package engine orchestrates forecasts: it loads history, rules, checkpoints
// and thresholds from storage and drives the projection engine over them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/forecast"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/Veraticus/spice-forecast/internal/storage"
	"github.com/shopspring/decimal"
)

// Forecaster runs projections against stored data.
type Forecaster struct {
	storage        service.Storage
	logger         *slog.Logger
	minOccurrences int
}

// Config holds configuration options for the forecaster.
type Config struct {
	Logger         *slog.Logger
	MinOccurrences int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MinOccurrences: forecast.DefaultMinOccurrences,
	}
}

// New creates a forecaster with the default configuration.
func New(store service.Storage) *Forecaster {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a forecaster with custom configuration.
func NewWithConfig(store service.Storage, config Config) *Forecaster {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		storage:        store,
		logger:         logger.With("component", "forecaster"),
		minOccurrences: config.MinOccurrences,
	}
}

// Options selects what a forecast covers.
type Options struct {
	Start           civil.Date
	End             civil.Date
	StartingBalance decimal.Decimal
	// Overrides the stored warning threshold when valid.
	Threshold   decimal.NullDecimal
	Bucket      model.BucketWidth
	Sensitivity model.Sensitivity
	// Restricts the forecast to one account. Ignored with AllAccounts.
	AccountID   string
	AllAccounts bool
	// Projects detected series that were never accepted as recurring transactions.
	IncludeDetected bool
}

// Forecast is the outcome of a Run.
type Forecast struct {
	Params    model.ProjectionParams
	Single    *model.ProjectionResult      // Set unless AllAccounts
	Multi     *model.MultiProjectionResult // Set with AllAccounts
	Detected  []model.RecurringSeries      // Series projected because of IncludeDetected
	Projected int                          // Number of synthesized occurrences
}

// Warnings returns the low-balance warnings of whichever result is set.
func (f *Forecast) Warnings() []model.ProjectionWarning {
	if f.Multi != nil {
		return f.Multi.Warnings
	}
	if f.Single != nil {
		return f.Single.Warnings
	}
	return nil
}

// Run loads everything the projection needs and projects it.
func (f *Forecaster) Run(ctx context.Context, opts Options) (*Forecast, error) {
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", storage.ErrInvalidDateRange, opts.End, opts.Start)
	}
	if _, err := model.ParseBucketWidth(string(opts.Bucket)); err != nil {
		return nil, err
	}

	accountID := opts.AccountID
	if opts.AllAccounts {
		accountID = ""
	}

	history, err := f.storage.GetTransactions(ctx, service.TransactionFilter{
		EndDate:   &opts.End,
		AccountID: accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	rules, err := f.storage.ListRecurringTransactions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring transactions: %w", err)
	}
	if accountID != "" {
		rules = slices.DeleteFunc(rules, func(rt model.RecurringTransaction) bool {
			return rt.AccountID != accountID
		})
	}

	var detected []model.RecurringSeries
	if opts.IncludeDetected {
		detected = f.unaccepted(f.detector().Detect(history, opts.Sensitivity), rules)
	}

	projected := expandByAccount(detected, rules, newCutoffs(history, opts.Start), opts.End)
	all := append(slices.Clip(history), projected...)

	checkpoints, err := f.storage.ListCheckpoints(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoints: %w", err)
	}

	thresholds, err := f.storage.GetWarningThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load warning thresholds: %w", err)
	}

	params := model.ProjectionParams{
		StartDate:        opts.Start,
		EndDate:          opts.End,
		StartingBalance:  opts.StartingBalance,
		WarningThreshold: resolveThreshold(opts.Threshold, thresholds, accountID),
		BucketWidth:      opts.Bucket,
		Sensitivity:      opts.Sensitivity,
		AccountID:        accountID,
	}

	f.logger.Debug("Running projection",
		"start", opts.Start.String(),
		"end", opts.End.String(),
		"history", len(history),
		"rules", len(rules),
		"detected", len(detected),
		"projected", len(projected),
		"checkpoints", len(checkpoints))

	result := &Forecast{
		Params:    params,
		Detected:  detected,
		Projected: len(projected),
	}

	if opts.AllAccounts {
		params.AccountThresholds = make(map[string]decimal.Decimal)
		for id, t := range thresholds {
			if id != storage.DefaultThresholdAccount {
				params.AccountThresholds[id] = t
			}
		}
		multi := forecast.ProjectAccounts(all, params, checkpoints)
		result.Params = params
		result.Multi = &multi
		return result, nil
	}

	single := forecast.Project(all, params, forecast.LatestCheckpoint(checkpoints, accountID, opts.Start))
	result.Single = &single
	return result, nil
}

// cutoffs holds the date after which rules fill in occurrences. Rules only
// project past the last recorded transaction of their own account, so
// occurrences already imported are not counted twice.
type cutoffs struct {
	floor     civil.Date
	latest    civil.Date
	byAccount map[string]civil.Date
}

func newCutoffs(history []model.Transaction, start civil.Date) cutoffs {
	c := cutoffs{
		floor:     start.AddDays(-1),
		latest:    start.AddDays(-1),
		byAccount: make(map[string]civil.Date),
	}
	for _, txn := range history {
		if txn.Date.After(c.latest) {
			c.latest = txn.Date
		}
		if txn.AccountID == "" {
			continue
		}
		if d, ok := c.byAccount[txn.AccountID]; !ok || txn.Date.After(d) {
			c.byAccount[txn.AccountID] = txn.Date
		}
	}
	return c
}

// of returns the cutoff for an account. Rules without an account use the
// latest transaction of any account.
func (c cutoffs) of(accountID string) civil.Date {
	if accountID == "" {
		return c.latest
	}
	if d, ok := c.byAccount[accountID]; ok && d.After(c.floor) {
		return d
	}
	return c.floor
}

// expandByAccount expands series and rules account by account, each against
// its own cutoff.
func expandByAccount(series []model.RecurringSeries, rules []model.RecurringTransaction, cut cutoffs, horizon civil.Date) []model.Transaction {
	type group struct {
		series []model.RecurringSeries
		rules  []model.RecurringTransaction
	}
	groups := make(map[string]*group)
	groupOf := func(accountID string) *group {
		g, ok := groups[accountID]
		if !ok {
			g = &group{}
			groups[accountID] = g
		}
		return g
	}
	for _, s := range series {
		g := groupOf(s.AccountID)
		g.series = append(g.series, s)
	}
	for _, rt := range rules {
		g := groupOf(rt.AccountID)
		g.rules = append(g.rules, rt)
	}

	out := make([]model.Transaction, 0)
	for _, id := range slices.Sorted(maps.Keys(groups)) {
		g := groups[id]
		out = append(out, forecast.ExpandAll(g.series, g.rules, cut.of(id), horizon)...)
	}
	return out
}

// DetectOptions selects the history examined by Detect.
type DetectOptions struct {
	Since       *civil.Date
	Sensitivity model.Sensitivity
	AccountID   string
	// Keeps series whose signature already backs a recurring transaction.
	IncludeAccepted bool
}

// Detect finds recurring series in stored history.
func (f *Forecaster) Detect(ctx context.Context, opts DetectOptions) ([]model.RecurringSeries, error) {
	history, err := f.storage.GetTransactions(ctx, service.TransactionFilter{
		StartDate: opts.Since,
		AccountID: opts.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(history) == 0 {
		return nil, common.ErrNoTransactions
	}

	series := f.detector().Detect(history, opts.Sensitivity)
	if opts.IncludeAccepted {
		return series, nil
	}

	rules, err := f.storage.ListRecurringTransactions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring transactions: %w", err)
	}
	return f.unaccepted(series, rules), nil
}

// Accept promotes every enabled series into a stored recurring transaction
// and returns the saved templates.
func (f *Forecaster) Accept(ctx context.Context, series []model.RecurringSeries) ([]model.RecurringTransaction, error) {
	saved := make([]model.RecurringTransaction, 0, len(series))
	for _, s := range series {
		if !s.Enabled {
			continue
		}

		rt, err := RuleFromSeries(s)
		if err != nil {
			f.logger.Warn("Skipping series", "signature", s.SignatureKey, "error", err)
			continue
		}
		if err := f.storage.SaveRecurringTransaction(ctx, &rt); err != nil {
			return saved, fmt.Errorf("failed to save recurring transaction for %q: %w", s.Description, err)
		}
		saved = append(saved, rt)
	}

	f.logger.Info("Accepted recurring series", "offered", len(series), "saved", len(saved))
	return saved, nil
}

func (f *Forecaster) detector() *forecast.Detector {
	return forecast.NewDetector(
		forecast.WithMinOccurrences(f.minOccurrences),
		forecast.WithLogger(f.logger),
	)
}

// unaccepted drops series whose signature already backs a recurring transaction.
func (f *Forecaster) unaccepted(series []model.RecurringSeries, rules []model.RecurringTransaction) []model.RecurringSeries {
	accepted := make(map[string]bool, len(rules))
	for _, rt := range rules {
		if rt.SignatureKey != "" {
			accepted[rt.SignatureKey] = true
		}
	}
	return slices.DeleteFunc(series, func(s model.RecurringSeries) bool {
		return accepted[s.SignatureKey]
	})
}

// resolveThreshold picks the explicit threshold, then the account's stored
// one, then the stored default.
func resolveThreshold(explicit decimal.NullDecimal, stored map[string]decimal.Decimal, accountID string) decimal.NullDecimal {
	if explicit.Valid {
		return explicit
	}
	if t, ok := stored[accountID]; ok {
		return decimal.NewNullDecimal(t)
	}
	if t, ok := stored[storage.DefaultThresholdAccount]; ok {
		return decimal.NewNullDecimal(t)
	}
	return decimal.NullDecimal{}
}

// ErrUnsupportedInterval is returned for series that no rule can express.
var ErrUnsupportedInterval = errors.New("unsupported interval")

// RuleFromSeries converts a detected series into a recurring transaction
// anchored on its last observed date. Intervals of about a month become
// monthly rules on the same day, or on the last day when every observation
// fell on a month end. Intervals of about a quarter become
// three-monthly rules, about a year become yearly rules, and anything else a
// daily rule stepping by the observed interval.
func RuleFromSeries(s model.RecurringSeries) (model.RecurringTransaction, error) {
	if s.AverageIntervalDays < 1 || len(s.ObservedDates) == 0 {
		return model.RecurringTransaction{}, fmt.Errorf("%w: %d days", ErrUnsupportedInterval, s.AverageIntervalDays)
	}

	last := s.LastObserved()
	rule := model.RecurrenceRule{Interval: 1}

	monthly := func(months int) {
		rule.Frequency = model.FrequencyMonthly
		rule.Interval = months
		if slices.IndexFunc(s.ObservedDates, func(d civil.Date) bool { return !isMonthEnd(d) }) < 0 {
			rule.LastDayOfMonth = true
		} else {
			rule.DaysOfMonth = []int{last.Day}
		}
	}

	switch days := s.AverageIntervalDays; {
	case days == 7:
		rule.Frequency = model.FrequencyWeekly
	case days == 14:
		rule.Frequency = model.FrequencyBiweekly
	case days >= 28 && days <= 31:
		monthly(1)
	case days >= 89 && days <= 92:
		monthly(3)
	case days >= 365 && days <= 366:
		rule.Frequency = model.FrequencyYearly
	default:
		rule.Frequency = model.FrequencyDaily
		rule.Interval = days
	}

	return model.RecurringTransaction{
		StartDate:    last,
		Amount:       s.Amount,
		Description:  s.Description,
		AccountID:    s.AccountID,
		SignatureKey: s.SignatureKey,
		Rule:         rule,
		Enabled:      true,
	}, nil
}

func isMonthEnd(d civil.Date) bool {
	return d.AddDays(1).Month != d.Month
}
