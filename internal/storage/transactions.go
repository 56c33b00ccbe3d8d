package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
)

// SaveTransactions saves multiple transactions to the database.
// Transactions whose hash already exists are skipped.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	// Validate inputs
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, q queryable, transactions []model.Transaction) error {
	stmt, err := q.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, description, amount, account_id, source
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		// Generate hash if not already set
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		source := txn.Source
		if source == "" {
			source = model.SourceManual
		}

		res, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.Date.String(),
			txn.Description,
			txn.Amount.String(),
			txn.AccountID,
			string(source),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	slog.Debug("Saved transactions",
		"received", len(transactions),
		"inserted", inserted)

	return nil
}

// GetTransactions retrieves actual transactions matching the filter, ordered by date then ID.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidDateRange, filter.EndDate, filter.StartDate)
	}

	var conditions []string
	args := []any{}

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.StartDate.String())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.EndDate.String())
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}

	query := `
		SELECT id, hash, date, description, amount, account_id, source
		FROM transactions
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := make([]model.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var txn model.Transaction
	var date, source string

	if err := rows.Scan(
		&txn.ID,
		&txn.Hash,
		&date,
		&txn.Description,
		&txn.Amount,
		&txn.AccountID,
		&source,
	); err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	d, err := civil.ParseDate(date)
	if err != nil {
		return txn, fmt.Errorf("failed to parse date of transaction %s: %w", txn.ID, err)
	}
	txn.Date = d
	txn.Source = model.TransactionSource(source)

	return txn, nil
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetLatestTransactionDate returns the date of the most recent transaction.
// An empty accountID considers every account. It returns common.ErrNotFound
// when there are no matching transactions.
func (s *SQLiteStorage) GetLatestTransactionDate(ctx context.Context, accountID string) (civil.Date, error) {
	if err := validateContext(ctx); err != nil {
		return civil.Date{}, err
	}

	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM transactions
		WHERE ? = '' OR account_id = ?
	`, accountID, accountID).Scan(&latest)
	if err != nil {
		return civil.Date{}, fmt.Errorf("failed to get latest transaction date: %w", err)
	}
	if !latest.Valid {
		return civil.Date{}, common.ErrNotFound
	}

	d, err := civil.ParseDate(latest.String)
	if err != nil {
		return civil.Date{}, fmt.Errorf("failed to parse latest transaction date: %w", err)
	}
	return d, nil
}

// GetAccounts returns every account ID that has transactions or checkpoints, sorted.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id FROM transactions
		UNION
		SELECT account_id FROM balance_checkpoints
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	accounts := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, id)
	}
	return accounts, rows.Err()
}
