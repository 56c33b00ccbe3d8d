package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterAccount(accountID string) service.TransactionFilter {
	return service.TransactionFilter{AccountID: accountID}
}

func datePtr(d civil.Date) *civil.Date { return &d }

func TestSaveTransactions_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	want := model.Transaction{
		ID:          "ofx-1",
		Date:        day(2025, time.March, 14),
		Description: "ACME PAYROLL",
		Amount:      decimal.RequireFromString("2531.07"),
		AccountID:   "checking",
		Source:      model.SourceOFX,
	}
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{want}))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, want.ID, got[0].ID)
	assert.Equal(t, want.Date, got[0].Date)
	assert.Equal(t, want.Description, got[0].Description)
	assert.True(t, want.Amount.Equal(got[0].Amount), "amount %s", got[0].Amount)
	assert.Equal(t, want.AccountID, got[0].AccountID)
	assert.Equal(t, model.SourceOFX, got[0].Source)
	assert.Equal(t, want.GenerateHash(), got[0].Hash)
	assert.False(t, got[0].IsProjected)
}

func TestSaveTransactions_DeduplicatesByHash(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(3, "checking")
	require.NoError(t, store.SaveTransactions(ctx, txns))

	// Same content under new IDs is the same real-world transaction.
	again := createTestTransactions(3, "checking")
	for i := range again {
		again[i].ID = again[i].ID + "-reimport"
	}
	require.NoError(t, store.SaveTransactions(ctx, again))

	count, err := store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveTransactions_DefaultsSourceToManual(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txn := createTestTransactions(1, "")[0]
	txn.Source = ""
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	got, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SourceManual, got[0].Source)
}

func TestSaveTransactions_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	projected := createTestTransactions(1, "a")
	projected[0].IsProjected = true

	tests := []struct {
		wantErr error
		name    string
		txns    []model.Transaction
	}{
		{name: "nil slice", txns: nil, wantErr: ErrNilParameter},
		{name: "empty slice", txns: []model.Transaction{}, wantErr: ErrEmptySlice},
		{name: "missing id", txns: []model.Transaction{{Date: day(2025, time.January, 1), Description: "x"}}, wantErr: ErrInvalidTransaction},
		{name: "missing date", txns: []model.Transaction{{ID: "1", Description: "x"}}, wantErr: ErrInvalidTransaction},
		{name: "projected", txns: projected, wantErr: ErrInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveTransactions(ctx, tt.txns)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetTransactions_Filter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(10, "checking")))
	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(4, "savings")))

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   int
	}{
		{name: "everything", filter: service.TransactionFilter{}, want: 14},
		{name: "by account", filter: filterAccount("savings"), want: 4},
		{name: "from date", filter: service.TransactionFilter{StartDate: datePtr(day(2025, time.January, 8))}, want: 3},
		{
			name: "inclusive range",
			filter: service.TransactionFilter{
				StartDate: datePtr(day(2025, time.January, 2)),
				EndDate:   datePtr(day(2025, time.January, 4)),
			},
			want: 6,
		},
		{name: "limit", filter: service.TransactionFilter{Limit: 5}, want: 5},
		{name: "limit and offset", filter: service.TransactionFilter{Limit: 5, Offset: 12}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)

			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].Date.Before(got[i-1].Date), "results must be ordered by date")
			}
		})
	}

	t.Run("inverted range", func(t *testing.T) {
		_, err := store.GetTransactions(ctx, service.TransactionFilter{
			StartDate: datePtr(day(2025, time.February, 1)),
			EndDate:   datePtr(day(2025, time.January, 1)),
		})
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})
}

func TestGetLatestTransactionDate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetLatestTransactionDate(ctx, "")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(10, "checking")))
	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(3, "savings")))

	latest, err := store.GetLatestTransactionDate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 10), latest)

	latest, err = store.GetLatestTransactionDate(ctx, "savings")
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 3), latest)
}

func TestGetAccounts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	accounts, err := store.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(2, "savings")))
	require.NoError(t, store.SaveTransactions(ctx, createTestTransactions(2, "checking")))
	require.NoError(t, store.SaveCheckpoint(ctx, &model.Checkpoint{
		AccountID: "brokerage",
		Date:      day(2025, time.January, 1),
		Balance:   decimal.NewFromInt(10),
	}))

	accounts, err = store.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"brokerage", "checking", "savings"}, accounts)
}
