package model

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func weekdayPtr(w time.Weekday) *time.Weekday { return &w }
func intPtr(i int) *int                       { return &i }

func TestRecurrenceRule_Validate(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		rule    RecurrenceRule
	}{
		{
			name: "daily",
			rule: RecurrenceRule{Frequency: FrequencyDaily},
		},
		{
			name: "monthly days of month",
			rule: RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{1, 15}},
		},
		{
			name: "monthly last day",
			rule: RecurrenceRule{Frequency: FrequencyMonthly, LastDayOfMonth: true, Interval: 3},
		},
		{
			name: "monthly last weekday",
			rule: RecurrenceRule{Frequency: FrequencyMonthly, Weekday: weekdayPtr(time.Friday), WeekOfMonth: intPtr(LastWeek)},
		},
		{
			name:    "unknown frequency",
			rule:    RecurrenceRule{Frequency: "hourly"},
			wantErr: ErrInvalidFrequency,
		},
		{
			name:    "negative interval",
			rule:    RecurrenceRule{Frequency: FrequencyDaily, Interval: -1},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "monthly without discriminant",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "monthly with two discriminants",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{1}, LastDayOfMonth: true},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "day of month out of range",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{32}},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "weekday without week",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly, Weekday: weekdayPtr(time.Monday)},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "fifth week",
			rule:    RecurrenceRule{Frequency: FrequencyMonthly, Weekday: weekdayPtr(time.Monday), WeekOfMonth: intPtr(5)},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "weekly with days of month",
			rule:    RecurrenceRule{Frequency: FrequencyWeekly, DaysOfMonth: []int{3}},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "invalid end date",
			rule:    RecurrenceRule{Frequency: FrequencyDaily, EndDate: &civil.Date{Year: 2025, Month: time.February, Day: 30}},
			wantErr: ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurrenceRule_Kind(t *testing.T) {
	if got := (RecurrenceRule{Frequency: FrequencyWeekly, LastDayOfMonth: true}).Kind(); got != MonthlyUnset {
		t.Errorf("weekly rule kind = %v, want MonthlyUnset", got)
	}
	if got := (RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{2}}).Kind(); got != MonthlyDaysOfMonth {
		t.Errorf("days of month kind = %v", got)
	}
	if got := (RecurrenceRule{Frequency: FrequencyMonthly, Weekday: weekdayPtr(time.Sunday), WeekOfMonth: intPtr(1)}).Kind(); got != MonthlyNthWeekday {
		t.Errorf("nth weekday kind = %v", got)
	}
}

func TestRecurrenceRule_Describe(t *testing.T) {
	end := civil.Date{Year: 2026, Month: time.June, Day: 30}
	tests := []struct {
		want string
		rule RecurrenceRule
	}{
		{"every day", RecurrenceRule{Frequency: FrequencyDaily}},
		{"every 3 days", RecurrenceRule{Frequency: FrequencyDaily, Interval: 3}},
		{"every 2 weeks", RecurrenceRule{Frequency: FrequencyBiweekly}},
		{"every 2 weeks", RecurrenceRule{Frequency: FrequencyBiweekly, Interval: 3}},
		{"every month on the 1st, 15th", RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{1, 15}}},
		{"every month on the last day", RecurrenceRule{Frequency: FrequencyMonthly, LastDayOfMonth: true}},
		{"every 2 months on the 2nd Tuesday", RecurrenceRule{Frequency: FrequencyMonthly, Interval: 2, Weekday: weekdayPtr(time.Tuesday), WeekOfMonth: intPtr(2)}},
		{"every month on the last Friday", RecurrenceRule{Frequency: FrequencyMonthly, Weekday: weekdayPtr(time.Friday), WeekOfMonth: intPtr(LastWeek)}},
		{"every year until 2026-06-30", RecurrenceRule{Frequency: FrequencyYearly, EndDate: &end}},
		{"every month on the 11th, 22nd, 23rd", RecurrenceRule{Frequency: FrequencyMonthly, DaysOfMonth: []int{11, 22, 23}}},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.rule.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsers(t *testing.T) {
	if f, err := ParseFrequency(" Monthly "); err != nil || f != FrequencyMonthly {
		t.Errorf("ParseFrequency() = %v, %v", f, err)
	}
	if _, err := ParseFrequency("fortnightly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("ParseFrequency() error = %v", err)
	}
	if s, err := ParseSensitivity("LOOSE"); err != nil || s != SensitivityLoose {
		t.Errorf("ParseSensitivity() = %v, %v", s, err)
	}
	if _, err := ParseSensitivity("paranoid"); !errors.Is(err, ErrInvalidSensitivity) {
		t.Errorf("ParseSensitivity() error = %v", err)
	}
	if w, err := ParseBucketWidth("2W"); err != nil || w != BucketTwoWeeks {
		t.Errorf("ParseBucketWidth() = %v, %v", w, err)
	}
	if _, err := ParseBucketWidth("1y"); !errors.Is(err, ErrInvalidBucketWidth) {
		t.Errorf("ParseBucketWidth() error = %v", err)
	}
}

func TestSensitivity_Threshold(t *testing.T) {
	for s, want := range map[Sensitivity]float64{
		SensitivityStrict: 4,
		SensitivityNormal: 8,
		SensitivityLoose:  12,
		"":                8,
	} {
		if got := s.Threshold(); got != want {
			t.Errorf("%q.Threshold() = %v, want %v", s, got, want)
		}
	}
}

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		Date:        civil.Date{Year: 2025, Month: time.January, Day: 1},
		Amount:      decimal.RequireFromString("-5.25"),
		Description: "STARBUCKS",
		AccountID:   "acc1",
	}

	same := base
	same.Amount = decimal.RequireFromString("-5.250")
	same.ID = "other"
	if base.GenerateHash() != same.GenerateHash() {
		t.Error("equal amounts with different scale should hash equally")
	}

	different := base
	different.Date = civil.Date{Year: 2025, Month: time.January, Day: 2}
	if base.GenerateHash() == different.GenerateHash() {
		t.Error("different dates should produce different hashes")
	}

	if !(Transaction{Amount: decimal.Zero}).IsInflow() {
		t.Error("zero amount should count as inflow")
	}
}
