// Package testutil provides test fixtures backed by a real in-memory database.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/Veraticus/spice-forecast/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the
// test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedTransactions stores transactions or fails the test.
func (db *TestDB) SeedTransactions(txns ...model.Transaction) *TestDB {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return db
}

// SeedCheckpoint stores a balance checkpoint or fails the test.
func (db *TestDB) SeedCheckpoint(cp model.Checkpoint) *TestDB {
	db.t.Helper()
	if err := db.Storage.SaveCheckpoint(context.Background(), &cp); err != nil {
		db.t.Fatalf("failed to seed checkpoint: %v", err)
	}
	return db
}

// SeedRecurring stores a recurring transaction and returns its ID.
func (db *TestDB) SeedRecurring(rt model.RecurringTransaction) int64 {
	db.t.Helper()
	if err := db.Storage.SaveRecurringTransaction(context.Background(), &rt); err != nil {
		db.t.Fatalf("failed to seed recurring transaction: %v", err)
	}
	return rt.ID
}

// WithTransaction executes fn within a database transaction that is always
// rolled back afterwards.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
