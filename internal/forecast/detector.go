// Package forecast implements the cash-flow projection engine: recurring series
// detection, recurrence expansion, bucketing and running-balance projection.
//
// Every function is a pure transformation of its inputs and is safe to call
// concurrently with disjoint arguments.
package forecast

import (
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultMinOccurrences is the smallest group the detector considers recurring.
const DefaultMinOccurrences = 3

// minimumOccurrences is the floor for WithMinOccurrences; one gap is needed for statistics.
const minimumOccurrences = 2

var nonAlphanumeric = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeDescription lowercases a description and collapses every run of
// non-alphanumeric characters into a single space.
func NormalizeDescription(description string) string {
	lowered := strings.ToLower(description)
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(lowered, " "))
}

// signature is the grouping key of a candidate series.
type signature struct {
	description string
	flow        model.Flow
	amount      string // Absolute amount with two decimals
}

func signatureOf(txn model.Transaction) signature {
	return signature{
		description: NormalizeDescription(txn.Description),
		flow:        model.FlowOf(txn.Amount),
		amount:      txn.Amount.Abs().StringFixed(2),
	}
}

func (s signature) key() string {
	return s.description + "|" + string(s.flow) + "|" + s.amount
}

// Detector finds recurring series in transaction history.
type Detector struct {
	logger         *slog.Logger
	minOccurrences int
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithMinOccurrences sets how many members a group needs. Values below 2 are raised to 2.
func WithMinOccurrences(n int) DetectorOption {
	return func(d *Detector) {
		if n < minimumOccurrences {
			n = minimumOccurrences
		}
		d.minOccurrences = n
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a detector with the default minimum of three occurrences.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		minOccurrences: DefaultMinOccurrences,
		logger:         slog.Default().With("component", "detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectRecurring runs a default detector over the transactions. The default
// needs three occurrences per series; a two-month history only yields series
// from NewDetector(WithMinOccurrences(2)).
func DetectRecurring(transactions []model.Transaction, sensitivity model.Sensitivity) []model.RecurringSeries {
	return NewDetector().Detect(transactions, sensitivity)
}

// Detect groups transactions by signature and returns the groups whose timing is
// regular enough under the given sensitivity. Projected transactions are ignored.
func (d *Detector) Detect(transactions []model.Transaction, sensitivity model.Sensitivity) []model.RecurringSeries {
	groups := make(map[signature][]model.Transaction)
	for _, txn := range transactions {
		if txn.IsProjected {
			continue
		}
		sig := signatureOf(txn)
		groups[sig] = append(groups[sig], txn)
	}

	threshold := sensitivity.Threshold()
	series := make([]model.RecurringSeries, 0)

	for sig, members := range groups {
		if len(members) < d.minOccurrences {
			continue
		}

		slices.SortStableFunc(members, func(a, b model.Transaction) int {
			return compareDates(a.Date, b.Date)
		})

		dates := make([]civil.Date, len(members))
		for i, m := range members {
			dates[i] = m.Date
		}

		mean, stddev := intervalStats(dates)
		if stddev > threshold {
			d.logger.Debug("Rejected irregular group",
				"signature", sig.key(),
				"members", len(members),
				"stddev", stddev,
				"threshold", threshold)
			continue
		}

		series = append(series, model.RecurringSeries{
			SignatureKey:          sig.key(),
			NormalizedDescription: sig.description,
			Description:           members[0].Description,
			AccountID:             members[0].AccountID,
			Amount:                signedAmount(members[0].Amount, sig.flow),
			ObservedDates:         dates,
			AverageIntervalDays:   int(math.Round(mean)),
			IntervalStdDev:        stddev,
			Enabled:               true,
		})
	}

	slices.SortFunc(series, func(a, b model.RecurringSeries) int {
		if c := compareDates(a.ObservedDates[0], b.ObservedDates[0]); c != 0 {
			return c
		}
		return strings.Compare(a.SignatureKey, b.SignatureKey)
	})

	d.logger.Debug("Detected recurring series",
		"transactions", len(transactions),
		"groups", len(groups),
		"series", len(series))

	return series
}

// intervalStats returns the mean and population standard deviation of the day
// gaps between consecutive dates. dates must be sorted and hold at least two entries.
func intervalStats(dates []civil.Date) (float64, float64) {
	gaps := make([]float64, 0, len(dates)-1)
	var sum float64
	for i := 1; i < len(dates); i++ {
		gap := float64(dates[i].DaysSince(dates[i-1]))
		gaps = append(gaps, gap)
		sum += gap
	}
	mean := sum / float64(len(gaps))

	var sq float64
	for _, g := range gaps {
		sq += (g - mean) * (g - mean)
	}
	return mean, math.Sqrt(sq / float64(len(gaps)))
}

// signedAmount applies the group's flow to a member amount's magnitude.
func signedAmount(abs decimal.Decimal, flow model.Flow) decimal.Decimal {
	if flow == model.FlowOutflow {
		return abs.Abs().Neg()
	}
	return abs.Abs()
}
