package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultThresholdAccount is the key of the threshold that applies to every
// account without its own.
const DefaultThresholdAccount = ""

// SetWarningThreshold stores the low-balance threshold for an account.
func (s *SQLiteStorage) SetWarningThreshold(ctx context.Context, accountID string, threshold decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warning_thresholds (account_id, threshold)
		VALUES (?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			threshold = excluded.threshold,
			updated_at = CURRENT_TIMESTAMP
	`, accountID, threshold.String())
	if err != nil {
		return fmt.Errorf("failed to save warning threshold: %w", err)
	}
	return nil
}

// GetWarningThresholds returns every stored threshold keyed by account ID.
// The default threshold is keyed by DefaultThresholdAccount.
func (s *SQLiteStorage) GetWarningThresholds(ctx context.Context) (map[string]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT account_id, threshold FROM warning_thresholds`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warning thresholds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	thresholds := make(map[string]decimal.Decimal)
	for rows.Next() {
		var accountID string
		var threshold decimal.Decimal
		if err := rows.Scan(&accountID, &threshold); err != nil {
			return nil, fmt.Errorf("failed to scan warning threshold: %w", err)
		}
		thresholds[accountID] = threshold
	}
	return thresholds, rows.Err()
}
