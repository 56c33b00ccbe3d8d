package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-forecast/internal/common"
)

// ErrInvalidBackupPath is returned for backup destinations that cannot be used safely.
var ErrInvalidBackupPath = errors.New("invalid backup path")

// DefaultBackupPath returns a timestamped path next to the database file.
func (s *SQLiteStorage) DefaultBackupPath(now time.Time) string {
	return fmt.Sprintf("%s.%s.bak", s.dbPath, now.UTC().Format("20060102T150405Z"))
}

// Backup writes a consistent copy of the database to destPath and verifies it.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if s.dbPath == ":memory:" {
		return fmt.Errorf("%w: in-memory databases cannot be backed up", ErrInvalidBackupPath)
	}

	// VACUUM INTO takes a literal, so the path must not be able to escape it.
	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("%w: contains forbidden characters", ErrInvalidBackupPath)
	}
	if !filepath.IsAbs(destPath) || strings.Contains(destPath, "..") {
		return fmt.Errorf("%w: must be an absolute path", ErrInvalidBackupPath)
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrInvalidBackupPath, destPath)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}

	if err := verifyIntegrity(destPath); err != nil {
		if rmErr := os.Remove(destPath); rmErr != nil {
			slog.Error("failed to remove corrupt backup", "path", destPath, "error", rmErr)
		}
		return err
	}

	slog.Info("Backed up database", "path", destPath)
	return nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check reported %s", common.ErrDatabaseCorrupted, result)
	}
	return nil
}
