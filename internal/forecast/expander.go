package forecast

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/google/uuid"
)

// MaxExpansionSteps bounds the work of a single expansion.
const MaxExpansionSteps = 1000

// ExpandSeries projects a detected series forward from its latest observed date,
// stepping by its average interval, up to and including the horizon.
// A series with an interval below one day yields no occurrences.
func ExpandSeries(series model.RecurringSeries, horizon civil.Date) []model.Transaction {
	out := make([]model.Transaction, 0)
	if series.AverageIntervalDays < 1 || len(series.ObservedDates) == 0 {
		return out
	}

	next := series.LastObserved().AddDays(series.AverageIntervalDays)
	for i := 0; i < MaxExpansionSteps && !next.After(horizon); i++ {
		out = append(out, model.Transaction{
			ID:          projectedID("series:"+series.SignatureKey, next),
			Date:        next,
			Description: series.Description,
			Amount:      series.Amount,
			AccountID:   series.AccountID,
			Source:      model.SourceProjected,
			IsProjected: true,
		})
		next = next.AddDays(series.AverageIntervalDays)
	}
	return out
}

// ExpandRule projects a recurring transaction's calendar rule. Occurrences are
// strictly after the given date, never before the template's start date, and no
// later than the horizon or the rule's end date, whichever is earlier.
func ExpandRule(rt model.RecurringTransaction, after, horizon civil.Date) []model.Transaction {
	limit := horizon
	if rt.Rule.EndDate != nil {
		limit = minDate(limit, *rt.Rule.EndDate)
	}

	var dates []civil.Date
	switch rt.Rule.Frequency {
	case model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyBiweekly:
		dates = fixedStepDates(rt.StartDate, stepDays(rt.Rule), after, limit)
	case model.FrequencyMonthly, model.FrequencyYearly:
		dates = calendarDates(rt.StartDate, rt.Rule, after, limit)
	}

	out := make([]model.Transaction, 0, len(dates))
	key := fmt.Sprintf("rule:%d", rt.ID)
	for _, d := range dates {
		out = append(out, model.Transaction{
			ID:          projectedID(key, d),
			Date:        d,
			Description: rt.Description,
			Amount:      rt.Amount,
			AccountID:   rt.AccountID,
			Source:      model.SourceProjected,
			IsProjected: true,
		})
	}
	return out
}

// ExpandAll expands every enabled series and recurring transaction and returns
// the occurrences sorted by date, then ID.
func ExpandAll(series []model.RecurringSeries, rules []model.RecurringTransaction, after, horizon civil.Date) []model.Transaction {
	out := make([]model.Transaction, 0)
	for _, s := range series {
		if s.Enabled {
			out = append(out, ExpandSeries(s, horizon)...)
		}
	}
	for _, rt := range rules {
		if rt.Enabled {
			out = append(out, ExpandRule(rt, after, horizon)...)
		}
	}
	sortTransactions(out)
	return out
}

func stepDays(rule model.RecurrenceRule) int {
	interval := rule.EffectiveInterval()
	switch rule.Frequency {
	case model.FrequencyWeekly:
		return interval * 7
	case model.FrequencyBiweekly:
		return 14
	default:
		return interval
	}
}

// fixedStepDates returns start + k*step for k >= 0 within (after, limit].
func fixedStepDates(start civil.Date, step int, after, limit civil.Date) []civil.Date {
	next := start
	if !after.Before(start) {
		k := floorDiv(after.DaysSince(start), step) + 1
		next = start.AddDays(k * step)
	}

	var out []civil.Date
	for i := 0; i < MaxExpansionSteps && !next.After(limit); i++ {
		out = append(out, next)
		next = next.AddDays(step)
	}
	return out
}

// calendarDates walks month-based periods from the start month and collects the
// rule's days in each period that fall within [start, limit] and after `after`.
func calendarDates(start civil.Date, rule model.RecurrenceRule, after, limit civil.Date) []civil.Date {
	stepMonths := rule.EffectiveInterval()
	if rule.Frequency == model.FrequencyYearly {
		stepMonths *= 12
	}

	period := 0
	if after.After(start) {
		period = monthsBetween(start, after) / stepMonths
	}

	var out []civil.Date
	for i := 0; i < MaxExpansionSteps; i, period = i+1, period+1 {
		year, month := addMonths(start.Year, start.Month, period*stepMonths)
		if (civil.Date{Year: year, Month: month, Day: 1}).After(limit) {
			break
		}
		for _, d := range periodDates(year, month, start, rule) {
			if d.Before(start) || !d.After(after) || d.After(limit) {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}

// periodDates returns the rule's occurrences within one calendar month, ascending.
func periodDates(year int, month time.Month, start civil.Date, rule model.RecurrenceRule) []civil.Date {
	if rule.Frequency == model.FrequencyYearly {
		// Feb 29 anchors fall back to Feb 28 in common years.
		return []civil.Date{clampedDay(year, month, start.Day)}
	}

	switch rule.Kind() {
	case model.MonthlyDaysOfMonth:
		days := slices.Clone(rule.DaysOfMonth)
		slices.Sort(days)
		days = slices.Compact(days)

		out := make([]civil.Date, 0, len(days))
		for _, day := range days {
			if d, ok := dayInMonth(year, month, day); ok {
				out = append(out, d)
			}
		}
		return out
	case model.MonthlyLastDay:
		return []civil.Date{lastDayOfMonth(year, month)}
	case model.MonthlyNthWeekday:
		if d, ok := nthWeekday(year, month, *rule.Weekday, *rule.WeekOfMonth); ok {
			return []civil.Date{d}
		}
		return nil
	default:
		if d, ok := dayInMonth(year, month, start.Day); ok {
			return []civil.Date{d}
		}
		return nil
	}
}

// projectedID derives a stable ID so repeated runs produce identical output.
func projectedID(key string, date civil.Date) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key+"|"+date.String())).String()
}

// sortTransactions orders transactions by date, then ID.
func sortTransactions(txns []model.Transaction) {
	slices.SortStableFunc(txns, func(a, b model.Transaction) int {
		if c := compareDates(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
