package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/config"
	"github.com/Veraticus/spice-forecast/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// openStorage opens the configured database without migrating it.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString(config.KeyDatabasePath))
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	if dbPath != ":memory:" {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		dbPath = abs
	}

	slog.Debug("Opening database", "path", dbPath)
	return storage.NewSQLiteStorage(dbPath)
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := openStorage()
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		closeStorage(store)
		return nil, common.NewUserError("Database schema could not be upgraded. Back it up with 'spice migrate --backup' and retry", fmt.Errorf("failed to run migrations: %w", err))
	}

	return store, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func today() civil.Date {
	return civil.DateOf(time.Now())
}

// parseDate accepts YYYY-MM-DD or "today". An empty string yields fallback.
func parseDate(s string, fallback civil.Date) (civil.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return fallback, nil
	case "today":
		return today(), nil
	}

	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// parseOptionalDate returns nil for an empty string.
func parseOptionalDate(s string) (*civil.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDate(s, civil.Date{})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseAmount accepts plain decimals with an optional leading $ and thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// applyFlagOverrides copies explicitly set flags into viper so they take
// precedence over the config file. Keys shared by several commands cannot use
// viper.BindPFlag, which keeps only the last binding per key.
func applyFlagOverrides(cmd *cobra.Command, flagKeys map[string]string) {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed {
			viper.Set(key, flag.Value.String())
		}
	}
}
