// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *civil.Date
	EndDate   *civil.Date
	AccountID string
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context) (int, error)
	GetLatestTransactionDate(ctx context.Context, accountID string) (civil.Date, error)
	GetAccounts(ctx context.Context) ([]string, error)

	// Recurring transaction operations
	SaveRecurringTransaction(ctx context.Context, rt *model.RecurringTransaction) error
	GetRecurringTransaction(ctx context.Context, id int64) (*model.RecurringTransaction, error)
	ListRecurringTransactions(ctx context.Context, enabledOnly bool) ([]model.RecurringTransaction, error)
	SetRecurringEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteRecurringTransaction(ctx context.Context, id int64) error

	// Balance checkpoint operations
	SaveCheckpoint(ctx context.Context, checkpoint *model.Checkpoint) error
	ListCheckpoints(ctx context.Context, accountID string) ([]model.Checkpoint, error)
	LatestCheckpoints(ctx context.Context, asOf civil.Date) ([]model.Checkpoint, error)

	// Warning threshold operations
	SetWarningThreshold(ctx context.Context, accountID string, threshold decimal.Decimal) error
	GetWarningThresholds(ctx context.Context) (map[string]decimal.Decimal, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction used for atomic imports.
type Transaction interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	SaveCheckpoint(ctx context.Context, checkpoint *model.Checkpoint) error
	Commit() error
	Rollback() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
