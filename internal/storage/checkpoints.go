package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
)

// SaveCheckpoint stores a known balance. A checkpoint for the same account and
// date replaces the earlier one. checkpoint.ID is set to the stored row's ID.
func (s *SQLiteStorage) SaveCheckpoint(ctx context.Context, checkpoint *model.Checkpoint) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCheckpoint(checkpoint); err != nil {
		return err
	}
	return s.saveCheckpointTx(ctx, s.db, checkpoint)
}

func (s *SQLiteStorage) saveCheckpointTx(ctx context.Context, q queryable, checkpoint *model.Checkpoint) error {
	source := checkpoint.Source
	if source == "" {
		source = model.SourceManual
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO balance_checkpoints (account_id, date, balance, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id, date) DO UPDATE SET
			balance = excluded.balance,
			source = excluded.source,
			created_at = CURRENT_TIMESTAMP
	`, checkpoint.AccountID, checkpoint.Date.String(), checkpoint.Balance.String(), string(source))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT id FROM balance_checkpoints WHERE account_id = ? AND date = ?
	`, checkpoint.AccountID, checkpoint.Date.String()).Scan(&checkpoint.ID)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint ID: %w", err)
	}
	checkpoint.Source = source

	return nil
}

// ListCheckpoints returns checkpoints ordered by account then date.
// An empty accountID returns checkpoints of every account.
func (s *SQLiteStorage) ListCheckpoints(ctx context.Context, accountID string) ([]model.Checkpoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, date, balance, source
		FROM balance_checkpoints
		WHERE ? = '' OR account_id = ?
		ORDER BY account_id ASC, date ASC
	`, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	return collectCheckpoints(rows)
}

// LatestCheckpoints returns, for every account, the most recent checkpoint dated
// on or before asOf.
func (s *SQLiteStorage) LatestCheckpoints(ctx context.Context, asOf civil.Date) ([]model.Checkpoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.account_id, c.date, c.balance, c.source
		FROM balance_checkpoints c
		WHERE c.date = (
			SELECT MAX(date) FROM balance_checkpoints
			WHERE account_id = c.account_id AND date <= ?
		)
		ORDER BY c.account_id ASC
	`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query latest checkpoints: %w", err)
	}
	return collectCheckpoints(rows)
}

func collectCheckpoints(rows *sql.Rows) ([]model.Checkpoint, error) {
	defer func() { _ = rows.Close() }()

	checkpoints := make([]model.Checkpoint, 0)
	for rows.Next() {
		var cp model.Checkpoint
		var date, source string
		if err := rows.Scan(&cp.ID, &cp.AccountID, &date, &cp.Balance, &source); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}

		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint date: %w", err)
		}
		cp.Date = d
		cp.Source = model.TransactionSource(source)
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}
