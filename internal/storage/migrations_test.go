package storage

import (
	"context"
	"testing"
)

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", version, ExpectedSchemaVersion)
	}
}

func TestMigrate_CreatesTables(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	for _, table := range []string{"transactions", "recurring_transactions", "balance_checkpoints", "warning_thresholds"} {
		var count int
		err := store.db.QueryRow(`
			SELECT COUNT(*) FROM sqlite_master
			WHERE type='table' AND name=?
		`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s was not created", table)
		}
	}
}

func TestMigrations_Ordered(t *testing.T) {
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration at index %d has version %d", i, m.Version)
		}
	}
	if last := migrations[len(migrations)-1].Version; last != ExpectedSchemaVersion {
		t.Errorf("last migration version %d does not match ExpectedSchemaVersion %d", last, ExpectedSchemaVersion)
	}
}

func TestMigrate_FrequencyConstraint(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.db.Exec(`
		INSERT INTO recurring_transactions (description, amount, start_date, frequency)
		VALUES ('bad', '1', '2025-01-01', 'hourly')
	`)
	if err == nil {
		t.Error("expected CHECK constraint to reject unknown frequency")
	}
}
