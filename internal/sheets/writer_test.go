package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

func day(m time.Month, d int) civil.Date {
	return civil.Date{Year: 2025, Month: m, Day: d}
}

func point(d civil.Date, balance, in, out string, projected bool) model.CashPoint {
	return model.CashPoint{
		BucketDate:  d,
		Balance:     decimal.RequireFromString(balance),
		Inflow:      decimal.RequireFromString(in),
		Outflow:     decimal.RequireFromString(out),
		IsProjected: projected,
	}
}

func TestNewReport(t *testing.T) {
	params := model.ProjectionParams{
		StartDate:   day(time.January, 1),
		EndDate:     day(time.January, 31),
		BucketWidth: model.BucketWeek,
	}
	result := model.ProjectionResult{
		DataPoints: []model.CashPoint{
			point(day(time.January, 2), "2500", "3000", "0", false),
			point(day(time.January, 9), "2440", "0", "-60", true),
		},
		Warnings: []model.ProjectionWarning{},
	}

	report := NewReport(params, result)
	require.Len(t, report.Rows, 2)
	assert.Empty(t, report.Accounts)
	assert.Equal(t, model.BucketWeek, report.Bucket)
	assert.True(t, report.Rows[1].IsProjected)
	assert.Nil(t, report.Rows[0].AccountBalances)
}

func TestNewMultiReport_CarriesBalancesForward(t *testing.T) {
	result := model.MultiProjectionResult{
		Accounts: []model.AccountProjection{
			{AccountID: "checking", DataPoints: []model.CashPoint{
				point(day(time.January, 1), "1000", "1000", "0", false),
				point(day(time.January, 3), "900", "0", "-100", false),
			}},
			{AccountID: "savings", DataPoints: []model.CashPoint{
				point(day(time.January, 2), "150", "150", "0", false),
			}},
		},
		Total: []model.CashPoint{
			point(day(time.January, 1), "1000", "1000", "0", false),
			point(day(time.January, 2), "1150", "150", "0", false),
			point(day(time.January, 3), "1050", "0", "-100", false),
		},
	}

	report := NewMultiReport(model.ProjectionParams{BucketWidth: model.BucketDay}, result)
	assert.Equal(t, []string{"checking", "savings"}, report.Accounts)
	require.Len(t, report.Rows, 3)

	first := report.Rows[0].AccountBalances
	assert.True(t, first[0].Valid)
	assert.False(t, first[1].Valid)

	last := report.Rows[2].AccountBalances
	assert.Equal(t, "900", last[0].Decimal.String())
	assert.Equal(t, "150", last[1].Decimal.String())
}

func TestPrepareProjectionData(t *testing.T) {
	report := &ProjectionReport{
		Start:    day(time.January, 1),
		End:      day(time.February, 28),
		Bucket:   model.BucketWeek,
		Accounts: []string{"checking"},
		Rows: []ProjectionRow{
			{
				BucketDate:      day(time.January, 9),
				Inflow:          decimal.Zero,
				Outflow:         decimal.RequireFromString("-60"),
				Balance:         decimal.RequireFromString("2440"),
				AccountBalances: []decimal.NullDecimal{decimal.NewNullDecimal(decimal.RequireFromString("2440"))},
				IsProjected:     true,
			},
		},
		Warnings: []model.ProjectionWarning{
			{
				Date:      day(time.January, 9),
				AccountID: "checking",
				Balance:   decimal.RequireFromString("2440"),
				Threshold: decimal.RequireFromString("2500"),
			},
		},
	}

	values := prepareProjectionData(report)

	assert.Equal(t, "2025-01-01 - 2025-02-28", values[0][1])
	assert.Equal(t, []any{"Bucket", "Inflow", "Outflow", "Balance", "checking", "Projected"}, values[2])
	assert.Equal(t, []any{"2025-01-09", "0.00", "-60.00", "2440.00", "2440.00", "yes"}, values[3])
	assert.Equal(t, []any{"Low Balance Warnings"}, values[5])
	assert.Equal(t, []any{"2025-01-09", "checking", "2440.00", "2500.00"}, values[7])
	assert.Len(t, values, 8)
}

func TestPrepareProjectionData_NoWarnings(t *testing.T) {
	values := prepareProjectionData(&ProjectionReport{Bucket: model.BucketMonth})
	assert.Len(t, values, headerRows)
}

func TestFindSheet(t *testing.T) {
	spreadsheet := &sheets.Spreadsheet{
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: "Sheet1", SheetId: 0}},
			{Properties: &sheets.SheetProperties{Title: "Forecast", SheetId: 42}},
		},
	}

	id, ok := findSheet(spreadsheet, "Forecast")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = findSheet(spreadsheet, "Missing")
	assert.False(t, ok)
}

func TestCallbackHandler(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	handler := callbackHandler(codes, errs)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", <-codes)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Error(t, <-errs)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	report := &ProjectionReport{Bucket: model.BucketDay}

	require.NoError(t, mock.WriteProjection(context.Background(), report))
	mock.AssertWriteCalled(t, 1)
	assert.Same(t, report, mock.LastReport)

	boom := errors.New("quota exceeded")
	mock.SetWriteError(boom)
	assert.ErrorIs(t, mock.WriteProjection(context.Background(), report), boom)
	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.ErrorIs(t, calls[1].Error, boom)

	mock.Reset()
	mock.AssertWriteCalled(t, 0)
}
