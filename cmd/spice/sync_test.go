package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/plaid"
	"github.com/Veraticus/spice-forecast/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plaidFixture() *plaid.MockClient {
	client := plaid.NewMockClient()
	client.GetTransactionsFn = func(_ context.Context, _, _ civil.Date) ([]model.Transaction, error) {
		return []model.Transaction{
			{ID: "p1", Date: civil.Date{Year: 2025, Month: time.March, Day: 1}, Description: "Payroll", Amount: decimal.NewFromInt(2400), AccountID: "checking", Source: model.SourcePlaid},
			{ID: "p2", Date: civil.Date{Year: 2025, Month: time.March, Day: 3}, Description: "Rent", Amount: decimal.NewFromInt(-1500), AccountID: "checking", Source: model.SourcePlaid},
			{ID: "p3", Date: civil.Date{Year: 2025, Month: time.March, Day: 4}, Description: "Card", Amount: decimal.NewFromInt(-80), AccountID: "credit", Source: model.SourcePlaid},
		}, nil
	}
	client.GetBalancesFn = func(context.Context) ([]model.Checkpoint, error) {
		return []model.Checkpoint{
			{Date: civil.Date{Year: 2025, Month: time.March, Day: 5}, Balance: decimal.NewFromInt(3120), AccountID: "checking", Source: model.SourcePlaid},
			{Date: civil.Date{Year: 2025, Month: time.March, Day: 5}, Balance: decimal.NewFromInt(-80), AccountID: "credit", Source: model.SourcePlaid},
		}, nil
	}
	client.GetAccountsFn = func(context.Context) ([]string, error) {
		return []string{"checking", "credit"}, nil
	}
	return client
}

func TestSyncAccounts(t *testing.T) {
	ctx := context.Background()
	window := syncOptions{
		start: civil.Date{Year: 2025, Month: time.February, Day: 4},
		end:   civil.Date{Year: 2025, Month: time.March, Day: 5},
	}

	t.Run("stores transactions and balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := plaidFixture()

		result, err := syncAccounts(ctx, client, db.Storage, window)
		require.NoError(t, err)
		assert.Len(t, result.transactions, 3)
		assert.Len(t, result.checkpoints, 2)

		require.Len(t, client.GetTransactionsCalls, 1)
		assert.Equal(t, window.start, client.GetTransactionsCalls[0].StartDate)
		assert.Equal(t, window.end, client.GetTransactionsCalls[0].EndDate)

		count, err := db.Storage.GetTransactionCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		checkpoints, err := db.Storage.ListCheckpoints(ctx, "credit")
		require.NoError(t, err)
		require.Len(t, checkpoints, 1)
		assert.True(t, decimal.NewFromInt(-80).Equal(checkpoints[0].Balance))
	})

	t.Run("account filter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		opts := window
		opts.accounts = []string{"checking"}

		result, err := syncAccounts(ctx, plaidFixture(), db.Storage, opts)
		require.NoError(t, err)
		assert.Len(t, result.transactions, 2)
		require.Len(t, result.checkpoints, 1)
		assert.Equal(t, "checking", result.checkpoints[0].AccountID)
	})

	t.Run("skip balances", func(t *testing.T) {
		client := plaidFixture()
		opts := window
		opts.skipBalances = true

		result, err := syncAccounts(ctx, client, testutil.SetupTestDB(t).Storage, opts)
		require.NoError(t, err)
		assert.Empty(t, result.checkpoints)
		assert.Zero(t, client.GetBalancesCalls)
	})

	t.Run("dry run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		opts := window
		opts.dryRun = true

		result, err := syncAccounts(ctx, plaidFixture(), db.Storage, opts)
		require.NoError(t, err)
		assert.Len(t, result.transactions, 3)

		count, err := db.Storage.GetTransactionCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("fetch error saves nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := plaidFixture()
		client.GetBalancesFn = func(context.Context) ([]model.Checkpoint, error) {
			return nil, errors.New("rate limited")
		}

		_, err := syncAccounts(ctx, client, db.Storage, window)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")

		count, err := db.Storage.GetTransactionCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestNewFetcher_UnknownProvider(t *testing.T) {
	_, err := newFetcher(context.Background(), "mint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFilterByAccount(t *testing.T) {
	items := []string{"a:1", "b:2", "a:3"}
	account := func(s string) string { return s[:1] }

	assert.Equal(t, items, filterByAccount(items, nil, account))
	assert.Equal(t, []string{"a:1", "a:3"}, filterByAccount(items, []string{"a"}, account))
	assert.Empty(t, filterByAccount(items, []string{"z"}, account))
}

func TestListAccounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listAccounts(context.Background(), &buf, plaidFixture()))
	assert.Contains(t, buf.String(), "Found 2 accounts")
	assert.Contains(t, buf.String(), "2. credit")

	empty := plaid.NewMockClient()
	buf.Reset()
	require.NoError(t, listAccounts(context.Background(), &buf, empty))
	assert.Contains(t, buf.String(), "No accounts found")
}
