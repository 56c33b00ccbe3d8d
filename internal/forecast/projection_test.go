package forecast

import (
	"slices"
	"testing"
	"time"

	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func literalParams() model.ProjectionParams {
	return model.ProjectionParams{
		StartDate:       date(2025, time.January, 1),
		EndDate:         date(2025, time.March, 1),
		StartingBalance: dec("1000"),
		BucketWidth:     model.BucketWeek,
		Sensitivity:     model.SensitivityNormal,
	}
}

func TestProject_LiteralHistory(t *testing.T) {
	result := Project(literalHistory(), literalParams(), nil)

	assert.Equal(t, []string{
		"2024-12-26 4000.00",
		"2025-01-02 2500.00",
		"2025-01-09 2440.00",
		"2025-01-30 3940.00",
		"2025-02-13 3880.00",
	}, pointStrings(result.DataPoints))

	final, ok := result.FinalBalance()
	require.True(t, ok)
	assertDecimal(t, "3880", final)

	assert.NotNil(t, result.Warnings)
	assert.Empty(t, result.Warnings)
}

func TestProject_SortedWithoutDuplicates(t *testing.T) {
	for _, width := range []model.BucketWidth{model.BucketDay, model.BucketThreeDays, model.BucketWeek, model.BucketTwoWeeks, model.BucketMonth} {
		params := literalParams()
		params.BucketWidth = width
		result := Project(literalHistory(), params, nil)

		require.NotEmpty(t, result.DataPoints, width)
		for i := 1; i < len(result.DataPoints); i++ {
			assert.True(t, result.DataPoints[i].BucketDate.After(result.DataPoints[i-1].BucketDate), width)
		}

		final, _ := result.FinalBalance()
		assertDecimal(t, "3880", final)
	}
}

func TestProject_Idempotent(t *testing.T) {
	history := literalHistory()
	first := Project(history, literalParams(), nil)
	second := Project(history, literalParams(), nil)
	assert.Equal(t, first, second)

	reversed := slices.Clone(history)
	slices.Reverse(reversed)
	assert.Equal(t, pointStrings(first.DataPoints), pointStrings(Project(reversed, literalParams(), nil).DataPoints))
}

func TestProject_Warnings(t *testing.T) {
	tests := []struct {
		name      string
		threshold decimal.NullDecimal
		want      []string
	}{
		{
			name:      "no threshold",
			threshold: decimal.NullDecimal{},
			want:      []string{},
		},
		{
			name:      "balance equal to threshold does not warn",
			threshold: decimal.NewNullDecimal(dec("2440")),
			want:      []string{},
		},
		{
			name:      "balance one cent below threshold warns",
			threshold: decimal.NewNullDecimal(dec("2440.01")),
			want:      []string{"2025-01-09"},
		},
		{
			name:      "every qualifying bucket warns",
			threshold: decimal.NewNullDecimal(dec("5000")),
			want:      []string{"2024-12-26", "2025-01-02", "2025-01-09", "2025-01-30", "2025-02-13"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := literalParams()
			params.WarningThreshold = tt.threshold
			params.AccountID = "checking"

			result := Project(literalHistory(), params, nil)

			got := make([]string, 0, len(result.Warnings))
			for _, w := range result.Warnings {
				got = append(got, w.Date.String())
				assert.Equal(t, "checking", w.AccountID)
				assert.True(t, w.Threshold.Equal(tt.threshold.Decimal))
				assert.True(t, w.Balance.LessThan(w.Threshold))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_Checkpoint(t *testing.T) {
	t.Run("checkpoint at or before start overrides starting balance", func(t *testing.T) {
		cp := &model.Checkpoint{Date: date(2024, time.December, 31), Balance: dec("500")}
		final, _ := Project(literalHistory(), literalParams(), cp).FinalBalance()
		assertDecimal(t, "3380", final)
	})

	t.Run("checkpoint on start date applies", func(t *testing.T) {
		cp := &model.Checkpoint{Date: date(2025, time.January, 1), Balance: dec("0")}
		final, _ := Project(literalHistory(), literalParams(), cp).FinalBalance()
		assertDecimal(t, "2880", final)
	})

	t.Run("checkpoint after start is ignored", func(t *testing.T) {
		cp := &model.Checkpoint{Date: date(2025, time.January, 2), Balance: dec("0")}
		final, _ := Project(literalHistory(), literalParams(), cp).FinalBalance()
		assertDecimal(t, "3880", final)
	})
}

func TestProject_Aggregation(t *testing.T) {
	params := model.ProjectionParams{
		StartDate:       date(2025, time.January, 1),
		EndDate:         date(2025, time.January, 31),
		StartingBalance: dec("100"),
		BucketWidth:     model.BucketMonth,
	}
	projected := txn("p1", date(2025, time.January, 20), "Rent", "-50.25")
	projected.IsProjected = true

	result := Project([]model.Transaction{
		txn("a", date(2024, time.December, 31), "Outside", "-1000"),
		txn("b", date(2025, time.January, 3), "Paycheck", "200.10"),
		txn("c", date(2025, time.January, 9), "Groceries", "-20.05"),
		projected,
		txn("d", date(2025, time.February, 1), "Outside", "1000"),
	}, params, nil)

	require.Len(t, result.DataPoints, 1)
	p := result.DataPoints[0]
	assert.Equal(t, date(2025, time.January, 1), p.BucketDate)
	assertDecimal(t, "200.10", p.Inflow)
	assertDecimal(t, "-70.30", p.Outflow)
	assertDecimal(t, "229.80", p.Balance)
	assert.True(t, p.IsProjected)
}

func TestProject_Empty(t *testing.T) {
	result := Project(nil, literalParams(), nil)
	assert.NotNil(t, result.DataPoints)
	assert.Empty(t, result.DataPoints)
	assert.Empty(t, result.Warnings)

	_, ok := result.FinalBalance()
	assert.False(t, ok)
}

func TestRoundCents(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.004", "1.00"},
		{"1.005", "1.01"},
		{"1.0049999", "1.00"},
		{"-1.005", "-1.00"},
		{"-1.006", "-1.01"},
		{"42", "42.00"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, roundCents(dec(tt.input)).StringFixed(2))
		})
	}
}

func TestLatestCheckpoint(t *testing.T) {
	checkpoints := []model.Checkpoint{
		{ID: 1, AccountID: "checking", Date: date(2025, time.January, 1), Balance: dec("100")},
		{ID: 2, AccountID: "checking", Date: date(2025, time.January, 10), Balance: dec("200")},
		{ID: 3, AccountID: "checking", Date: date(2025, time.January, 10), Balance: dec("250")},
		{ID: 4, AccountID: "checking", Date: date(2025, time.February, 1), Balance: dec("300")},
		{ID: 5, AccountID: "savings", Date: date(2025, time.January, 5), Balance: dec("900")},
	}

	cp := LatestCheckpoint(checkpoints, "checking", date(2025, time.January, 15))
	require.NotNil(t, cp)
	assert.Equal(t, int64(3), cp.ID)

	cp = LatestCheckpoint(checkpoints, "savings", date(2025, time.March, 1))
	require.NotNil(t, cp)
	assert.Equal(t, int64(5), cp.ID)

	assert.Nil(t, LatestCheckpoint(checkpoints, "checking", date(2024, time.December, 31)))
	assert.Nil(t, LatestCheckpoint(checkpoints, "brokerage", date(2025, time.March, 1)))
}

func TestProjectAccounts(t *testing.T) {
	checking := func(id string, day int, amount string) model.Transaction {
		tx := txn(id, date(2025, time.January, day), "x", amount)
		tx.AccountID = "checking"
		return tx
	}
	savings := func(id string, day int, amount string) model.Transaction {
		tx := txn(id, date(2025, time.January, day), "x", amount)
		tx.AccountID = "savings"
		return tx
	}

	params := model.ProjectionParams{
		StartDate:         date(2025, time.January, 1),
		EndDate:           date(2025, time.January, 31),
		BucketWidth:       model.BucketDay,
		WarningThreshold:  decimal.NewNullDecimal(dec("200")),
		AccountBalances:   map[string]decimal.Decimal{"checking": dec("100")},
		AccountThresholds: map[string]decimal.Decimal{"savings": dec("990")},
	}
	checkpoints := []model.Checkpoint{
		{ID: 1, AccountID: "savings", Date: date(2024, time.December, 31), Balance: dec("1000")},
	}

	result := ProjectAccounts([]model.Transaction{
		savings("s1", 3, "-20"),
		checking("c1", 1, "50"),
		checking("c2", 5, "100"),
	}, params, checkpoints)

	require.Len(t, result.Accounts, 2)
	assert.Equal(t, "checking", result.Accounts[0].AccountID)
	assert.Equal(t, []string{"2025-01-01 150.00", "2025-01-05 250.00"}, pointStrings(result.Accounts[0].DataPoints))
	assert.Equal(t, "savings", result.Accounts[1].AccountID)
	assert.Equal(t, []string{"2025-01-03 980.00"}, pointStrings(result.Accounts[1].DataPoints))

	assert.Equal(t, []string{
		"2025-01-01 1150.00",
		"2025-01-03 1130.00",
		"2025-01-05 1230.00",
	}, pointStrings(result.Total))

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, "checking", result.Warnings[0].AccountID)
	assert.Equal(t, date(2025, time.January, 1), result.Warnings[0].Date)
	assert.Equal(t, "savings", result.Warnings[1].AccountID)
	assertDecimal(t, "990", result.Warnings[1].Threshold)
}

func TestProjectAccounts_Empty(t *testing.T) {
	result := ProjectAccounts(nil, literalParams(), nil)
	assert.NotNil(t, result.Accounts)
	assert.Empty(t, result.Accounts)
	assert.NotNil(t, result.Total)
	assert.Empty(t, result.Total)
	assert.Empty(t, result.Warnings)
}
