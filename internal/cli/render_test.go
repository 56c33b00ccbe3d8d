package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/sheets"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func singleReport() *sheets.ProjectionReport {
	return &sheets.ProjectionReport{
		Start:  date(2024, 1, 1),
		End:    date(2024, 1, 31),
		Bucket: model.BucketWeek,
		Rows: []sheets.ProjectionRow{
			{
				BucketDate: date(2024, 1, 7),
				Inflow:     decimal.NewFromInt(3000),
				Outflow:    decimal.NewFromInt(-1500),
				Balance:    decimal.NewFromInt(1500),
			},
			{
				BucketDate:  date(2024, 1, 14),
				Inflow:      decimal.Zero,
				Outflow:     decimal.NewFromInt(-1450),
				Balance:     decimal.NewFromInt(50),
				IsProjected: true,
			},
		},
		Warnings: []model.ProjectionWarning{
			{Date: date(2024, 1, 14), Balance: decimal.NewFromInt(50), Threshold: decimal.NewFromInt(100)},
		},
	}
}

func multiReport() *sheets.ProjectionReport {
	return &sheets.ProjectionReport{
		Start:    date(2024, 1, 1),
		End:      date(2024, 1, 31),
		Bucket:   model.BucketDay,
		Accounts: []string{"checking", "savings"},
		Rows: []sheets.ProjectionRow{
			{
				BucketDate: date(2024, 1, 1),
				Inflow:     decimal.NewFromInt(1000),
				Outflow:    decimal.Zero,
				Balance:    decimal.NewFromInt(1000),
				AccountBalances: []decimal.NullDecimal{
					decimal.NewNullDecimal(decimal.NewFromInt(1000)),
					{},
				},
			},
			{
				BucketDate: date(2024, 1, 2),
				Inflow:     decimal.NewFromInt(50),
				Outflow:    decimal.Zero,
				Balance:    decimal.NewFromInt(1050),
				AccountBalances: []decimal.NullDecimal{
					decimal.NewNullDecimal(decimal.NewFromInt(1000)),
					decimal.NewNullDecimal(decimal.NewFromInt(50)),
				},
			},
		},
		Warnings: []model.ProjectionWarning{},
	}
}

func TestRenderProjection_Single(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProjection(&buf, singleReport()))

	out := buf.String()
	assert.Contains(t, out, "2024-01-01 to 2024-01-31 (1w buckets)")
	assert.Contains(t, out, "$3,000.00")
	assert.Contains(t, out, "-$1,500.00")
	assert.Contains(t, out, "projected, low")
	assert.Contains(t, out, "Final balance:   $50.00")
	assert.Contains(t, out, "Lowest balance:  $50.00 on 2024-01-14")
	assert.Contains(t, out, "(default) balance $50.00 is below $100.00")
}

func TestRenderProjection_MultiAccount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProjection(&buf, multiReport()))

	out := buf.String()
	assert.Contains(t, out, "checking")
	assert.Contains(t, out, "savings")
	assert.Contains(t, out, "$1,050.00")
	assert.Contains(t, out, "Balance stays above the warning threshold")
}

func TestRenderProjection_Empty(t *testing.T) {
	report := singleReport()
	report.Rows = nil
	report.Warnings = nil

	var buf bytes.Buffer
	require.NoError(t, RenderProjection(&buf, report))
	assert.Contains(t, buf.String(), "No transactions fall within the forecast window")
}

func TestRenderSeries(t *testing.T) {
	series := []model.RecurringSeries{
		{
			Description:         "NETFLIX.COM",
			Amount:              decimal.RequireFromString("-15.99"),
			AccountID:           "checking",
			ObservedDates:       []civil.Date{date(2024, 1, 5), date(2024, 2, 5), date(2024, 3, 5)},
			AverageIntervalDays: 30,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderSeries(&buf, series))

	out := buf.String()
	assert.Contains(t, out, "NETFLIX.COM")
	assert.Contains(t, out, "-$15.99")
	assert.Contains(t, out, "30 days")
	assert.Contains(t, out, "2024-03-05")

	buf.Reset()
	require.NoError(t, RenderSeries(&buf, nil))
	assert.Contains(t, buf.String(), "No recurring series detected")
}

func TestRenderRecurring(t *testing.T) {
	rules := []model.RecurringTransaction{
		{
			ID:          7,
			Description: "Rent",
			Amount:      decimal.NewFromInt(-1500),
			StartDate:   date(2024, 1, 1),
			Rule:        model.RecurrenceRule{Frequency: model.FrequencyMonthly, Interval: 1, DaysOfMonth: []int{1}},
			Enabled:     true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderRecurring(&buf, rules))

	out := buf.String()
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "-$1,500.00")
	assert.Contains(t, out, rules[0].Rule.Describe())
	assert.Contains(t, out, DefaultAccountLabel)

	buf.Reset()
	require.NoError(t, RenderRecurring(&buf, nil))
	assert.Contains(t, buf.String(), "No recurring transactions")
}

func TestRenderCheckpoints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCheckpoints(&buf, []model.Checkpoint{
		{AccountID: "savings", Date: date(2024, 1, 1), Balance: decimal.NewFromInt(2000), Source: model.SourceManual},
	}))
	assert.Contains(t, buf.String(), "savings")
	assert.Contains(t, buf.String(), "$2,000.00")
	assert.Contains(t, buf.String(), "manual")
}

func TestRenderThresholds(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderThresholds(&buf, map[string]decimal.Decimal{
		"savings": decimal.NewFromInt(2000),
		"":        decimal.NewFromInt(250),
	}))

	out := buf.String()
	assert.Less(t, strings.Index(out, DefaultAccountLabel), strings.Index(out, "savings"))
	assert.Contains(t, out, "$250.00")
	assert.Contains(t, out, "$2,000.00")

	buf.Reset()
	require.NoError(t, RenderThresholds(&buf, nil))
	assert.Contains(t, buf.String(), "warnings are off")
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"table", "json", "csv"} {
		f, err := ParseFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, Format(valid), f)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, multiReport()))

	var decoded struct {
		Start    string   `json:"start"`
		Bucket   string   `json:"bucket"`
		Accounts []string `json:"accounts"`
		Rows     []struct {
			Date     string            `json:"date"`
			Balance  string            `json:"balance"`
			Accounts map[string]string `json:"accounts"`
		} `json:"rows"`
		Warnings []any `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "2024-01-01", decoded.Start)
	assert.Equal(t, "1d", decoded.Bucket)
	assert.Equal(t, []string{"checking", "savings"}, decoded.Accounts)
	require.Len(t, decoded.Rows, 2)
	assert.Equal(t, "1000.00", decoded.Rows[0].Balance)
	assert.Equal(t, map[string]string{"checking": "1000.00"}, decoded.Rows[0].Accounts)
	assert.Equal(t, "50.00", decoded.Rows[1].Accounts["savings"])
	assert.NotNil(t, decoded.Warnings)
	assert.Empty(t, decoded.Warnings)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, multiReport()))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"date", "inflow", "outflow", "balance", "balance:checking", "balance:savings", "projected"}, records[0])
	assert.Equal(t, []string{"2024-01-01", "1000.00", "0.00", "1000.00", "1000.00", "", "false"}, records[1])
	assert.Equal(t, []string{"2024-01-02", "50.00", "0.00", "1050.00", "1000.00", "50.00", "false"}, records[2])
}

func TestWriteProjection_DispatchesOnFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProjection(&buf, singleReport(), FormatCSV))
	assert.True(t, strings.HasPrefix(buf.String(), "date,inflow,outflow,balance,projected"))

	buf.Reset()
	require.NoError(t, WriteProjection(&buf, singleReport(), FormatJSON))
	assert.True(t, json.Valid(buf.Bytes()))
}
