package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Rule validation errors.
var (
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidRule        = errors.New("invalid recurrence rule")
	ErrInvalidSensitivity = errors.New("invalid sensitivity")
)

// Frequency is the base period of a recurrence rule.
type Frequency string

const (
	// FrequencyDaily repeats every Interval days.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly repeats every Interval weeks.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyBiweekly repeats every two weeks.
	FrequencyBiweekly Frequency = "biweekly"
	// FrequencyMonthly repeats on calendar days of every Interval months.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyYearly repeats on the same calendar day every Interval years.
	FrequencyYearly Frequency = "yearly"
)

// ParseFrequency converts user input into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// MonthlyKind identifies which monthly expansion a rule uses.
type MonthlyKind int

const (
	// MonthlyUnset means no monthly discriminant is set.
	MonthlyUnset MonthlyKind = iota
	// MonthlyDaysOfMonth expands each listed day of the month.
	MonthlyDaysOfMonth
	// MonthlyLastDay expands the final day of each month.
	MonthlyLastDay
	// MonthlyNthWeekday expands the Nth (or last) weekday of each month.
	MonthlyNthWeekday
)

// LastWeek is the WeekOfMonth value meaning "last occurrence in the month".
const LastWeek = -1

// RecurrenceRule describes when a recurring transaction occurs.
type RecurrenceRule struct {
	Weekday        *time.Weekday `json:"weekday,omitempty"`
	WeekOfMonth    *int          `json:"week_of_month,omitempty"`
	EndDate        *civil.Date   `json:"end_date,omitempty"`
	Frequency      Frequency     `json:"frequency"`
	DaysOfMonth    []int         `json:"days_of_month,omitempty"`
	Interval       int           `json:"interval"`
	LastDayOfMonth bool          `json:"last_day_of_month,omitempty"`
}

// EffectiveInterval returns the interval with the default of 1 applied.
func (r RecurrenceRule) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// Kind returns the monthly discriminant of the rule.
// It returns MonthlyUnset for non-monthly rules.
func (r RecurrenceRule) Kind() MonthlyKind {
	if r.Frequency != FrequencyMonthly {
		return MonthlyUnset
	}
	switch {
	case len(r.DaysOfMonth) > 0:
		return MonthlyDaysOfMonth
	case r.LastDayOfMonth:
		return MonthlyLastDay
	case r.Weekday != nil && r.WeekOfMonth != nil:
		return MonthlyNthWeekday
	}
	return MonthlyUnset
}

// Validate checks the rule's field ranges and the monthly discriminant invariant.
func (r RecurrenceRule) Validate() error {
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidRule)
	}
	if r.EndDate != nil && !r.EndDate.IsValid() {
		return fmt.Errorf("%w: end date %s is not a valid date", ErrInvalidRule, r.EndDate)
	}

	hasDays := len(r.DaysOfMonth) > 0
	hasWeekday := r.Weekday != nil || r.WeekOfMonth != nil

	if r.Frequency != FrequencyMonthly {
		if hasDays || r.LastDayOfMonth || hasWeekday {
			return fmt.Errorf("%w: day-of-month options require a monthly frequency", ErrInvalidRule)
		}
		return nil
	}

	set := 0
	if hasDays {
		set++
	}
	if r.LastDayOfMonth {
		set++
	}
	if hasWeekday {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: monthly rules need exactly one of days of month, last day, or weekday", ErrInvalidRule)
	}

	for _, d := range r.DaysOfMonth {
		if d < 1 || d > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, d)
		}
	}

	if hasWeekday {
		if r.Weekday == nil || r.WeekOfMonth == nil {
			return fmt.Errorf("%w: weekday and week of month must be set together", ErrInvalidRule)
		}
		if *r.Weekday < time.Sunday || *r.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, *r.Weekday)
		}
		w := *r.WeekOfMonth
		if w != LastWeek && (w < 1 || w > 4) {
			return fmt.Errorf("%w: week of month %d out of range", ErrInvalidRule, w)
		}
	}

	return nil
}

// Describe renders the rule the way it is shown in listings.
func (r RecurrenceRule) Describe() string {
	interval := r.EffectiveInterval()
	var b strings.Builder

	switch r.Frequency {
	case FrequencyDaily:
		b.WriteString(plural(interval, "day"))
	case FrequencyWeekly:
		b.WriteString(plural(interval, "week"))
	case FrequencyBiweekly:
		b.WriteString(plural(2, "week"))
	case FrequencyYearly:
		b.WriteString(plural(interval, "year"))
	case FrequencyMonthly:
		b.WriteString(plural(interval, "month"))
		switch r.Kind() {
		case MonthlyDaysOfMonth:
			days := make([]string, 0, len(r.DaysOfMonth))
			for _, d := range r.DaysOfMonth {
				days = append(days, ordinal(d))
			}
			b.WriteString(" on the " + strings.Join(days, ", "))
		case MonthlyLastDay:
			b.WriteString(" on the last day")
		case MonthlyNthWeekday:
			week := "last"
			if *r.WeekOfMonth != LastWeek {
				week = ordinal(*r.WeekOfMonth)
			}
			b.WriteString(fmt.Sprintf(" on the %s %s", week, r.Weekday.String()))
		case MonthlyUnset:
		}
	default:
		return string(r.Frequency)
	}

	if r.EndDate != nil {
		b.WriteString(" until " + r.EndDate.String())
	}
	return "every " + b.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// RecurringTransaction is a user-authored (or promoted) template that an explicit
// rule expands into projected transactions.
type RecurringTransaction struct {
	StartDate    civil.Date
	CreatedAt    time.Time
	Amount       decimal.Decimal
	Description  string
	AccountID    string
	SignatureKey string // Set when promoted from a detected series
	Rule         RecurrenceRule
	ID           int64
	Enabled      bool
}

// Flow classifies the sign of an amount.
type Flow string

const (
	// FlowInflow covers amounts greater than or equal to zero.
	FlowInflow Flow = "inflow"
	// FlowOutflow covers negative amounts.
	FlowOutflow Flow = "outflow"
)

// FlowOf returns the flow classification of an amount.
func FlowOf(amount decimal.Decimal) Flow {
	if amount.IsNegative() {
		return FlowOutflow
	}
	return FlowInflow
}

// RecurringSeries is a group of historical transactions detected as regular.
type RecurringSeries struct {
	Amount                decimal.Decimal
	SignatureKey          string
	NormalizedDescription string
	Description           string // Original description of the first member
	AccountID             string
	ObservedDates         []civil.Date // Ascending
	AverageIntervalDays   int
	IntervalStdDev        float64
	Enabled               bool
}

// LastObserved returns the latest observed date of the series.
func (s RecurringSeries) LastObserved() civil.Date {
	if len(s.ObservedDates) == 0 {
		return civil.Date{}
	}
	return s.ObservedDates[len(s.ObservedDates)-1]
}

// Sensitivity controls how much timing jitter the detector tolerates.
type Sensitivity string

const (
	// SensitivityStrict tolerates 4 days of standard deviation.
	SensitivityStrict Sensitivity = "strict"
	// SensitivityNormal tolerates 8 days of standard deviation.
	SensitivityNormal Sensitivity = "normal"
	// SensitivityLoose tolerates 12 days of standard deviation.
	SensitivityLoose Sensitivity = "loose"
)

// ParseSensitivity converts user input into a Sensitivity.
func ParseSensitivity(s string) (Sensitivity, error) {
	v := Sensitivity(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case SensitivityStrict, SensitivityNormal, SensitivityLoose:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSensitivity, s)
}

// Threshold returns the maximum interval standard deviation, in days.
// Unknown values fall back to the normal threshold.
func (s Sensitivity) Threshold() float64 {
	switch s {
	case SensitivityStrict:
		return 4
	case SensitivityLoose:
		return 12
	default:
		return 8
	}
}
