package plaid

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
)

// MockClient is a mock implementation of TransactionFetcher for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	GetTransactionsFn func(ctx context.Context, startDate, endDate civil.Date) ([]model.Transaction, error)
	GetAccountsFn     func(ctx context.Context) ([]string, error)
	GetBalancesFn     func(ctx context.Context) ([]model.Checkpoint, error)

	// Call tracking
	GetTransactionsCalls []GetTransactionsCall
	GetAccountsCalls     int
	GetBalancesCalls     int
}

// GetTransactionsCall records the parameters of a GetTransactions call.
type GetTransactionsCall struct {
	StartDate civil.Date
	EndDate   civil.Date
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{
		GetTransactionsCalls: []GetTransactionsCall{},
	}
}

// GetTransactions implements TransactionFetcher.GetTransactions.
func (m *MockClient) GetTransactions(ctx context.Context, startDate, endDate civil.Date) ([]model.Transaction, error) {
	m.GetTransactionsCalls = append(m.GetTransactionsCalls, GetTransactionsCall{
		StartDate: startDate,
		EndDate:   endDate,
	})

	if m.GetTransactionsFn != nil {
		return m.GetTransactionsFn(ctx, startDate, endDate)
	}
	return []model.Transaction{}, nil
}

// GetAccounts implements TransactionFetcher.GetAccounts.
func (m *MockClient) GetAccounts(ctx context.Context) ([]string, error) {
	m.GetAccountsCalls++

	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx)
	}
	return []string{}, nil
}

// GetBalances implements TransactionFetcher.GetBalances.
func (m *MockClient) GetBalances(ctx context.Context) ([]model.Checkpoint, error) {
	m.GetBalancesCalls++

	if m.GetBalancesFn != nil {
		return m.GetBalancesFn(ctx)
	}
	return []model.Checkpoint{}, nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.GetTransactionsCalls = []GetTransactionsCall{}
	m.GetAccountsCalls = 0
	m.GetBalancesCalls = 0
}

var _ TransactionFetcher = (*MockClient)(nil)
