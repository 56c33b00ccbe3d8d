package plaid

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
)

// TransactionFetcher defines the contract for fetching account data from a bank.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate civil.Date) ([]model.Transaction, error)
	GetAccounts(ctx context.Context) ([]string, error)
	GetBalances(ctx context.Context) ([]model.Checkpoint, error)
}
