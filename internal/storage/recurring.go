package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
)

const recurringColumns = `
	id, description, amount, account_id, start_date, frequency, interval_count,
	days_of_month, last_day_of_month, weekday, week_of_month, end_date,
	signature_key, enabled, created_at
`

// SaveRecurringTransaction inserts a new recurring transaction when rt.ID is zero
// and updates the existing row otherwise. On insert rt.ID and rt.CreatedAt are set.
func (s *SQLiteStorage) SaveRecurringTransaction(ctx context.Context, rt *model.RecurringTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecurring(rt); err != nil {
		return err
	}

	var daysJSON sql.NullString
	if len(rt.Rule.DaysOfMonth) > 0 {
		data, err := json.Marshal(rt.Rule.DaysOfMonth)
		if err != nil {
			return fmt.Errorf("failed to marshal days of month: %w", err)
		}
		daysJSON = sql.NullString{String: string(data), Valid: true}
	}

	var weekday, weekOfMonth sql.NullInt64
	if rt.Rule.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*rt.Rule.Weekday), Valid: true}
	}
	if rt.Rule.WeekOfMonth != nil {
		weekOfMonth = sql.NullInt64{Int64: int64(*rt.Rule.WeekOfMonth), Valid: true}
	}

	var endDate sql.NullString
	if rt.Rule.EndDate != nil {
		endDate = sql.NullString{String: rt.Rule.EndDate.String(), Valid: true}
	}

	args := []any{
		rt.Description,
		rt.Amount.String(),
		rt.AccountID,
		rt.StartDate.String(),
		string(rt.Rule.Frequency),
		rt.Rule.EffectiveInterval(),
		daysJSON,
		rt.Rule.LastDayOfMonth,
		weekday,
		weekOfMonth,
		endDate,
		rt.SignatureKey,
		rt.Enabled,
	}

	if rt.ID != 0 {
		res, err := s.db.ExecContext(ctx, `
			UPDATE recurring_transactions SET
				description = ?, amount = ?, account_id = ?, start_date = ?,
				frequency = ?, interval_count = ?, days_of_month = ?,
				last_day_of_month = ?, weekday = ?, week_of_month = ?, end_date = ?,
				signature_key = ?, enabled = ?
			WHERE id = ?
		`, append(args, rt.ID)...)
		if err != nil {
			return fmt.Errorf("failed to update recurring transaction %d: %w", rt.ID, err)
		}
		return requireAffected(res, "recurring transaction", rt.ID)
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (
			description, amount, account_id, start_date, frequency, interval_count,
			days_of_month, last_day_of_month, weekday, week_of_month, end_date,
			signature_key, enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append(args, createdAt)...)
	if err != nil {
		return fmt.Errorf("failed to insert recurring transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get recurring transaction ID: %w", err)
	}
	rt.ID = id
	rt.CreatedAt = createdAt

	return nil
}

// GetRecurringTransaction retrieves a recurring transaction by ID.
func (s *SQLiteStorage) GetRecurringTransaction(ctx context.Context, id int64) (*model.RecurringTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transaction: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query recurring transaction: %w", err)
		}
		return nil, common.ErrNotFound
	}

	rt, err := scanRecurring(rows)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// ListRecurringTransactions returns recurring transactions ordered by ID.
func (s *SQLiteStorage) ListRecurringTransactions(ctx context.Context, enabledOnly bool) ([]model.RecurringTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.RecurringTransaction, 0)
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// SetRecurringEnabled toggles whether a recurring transaction is expanded.
func (s *SQLiteStorage) SetRecurringEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE recurring_transactions SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update recurring transaction %d: %w", id, err)
	}
	return requireAffected(res, "recurring transaction", id)
}

// DeleteRecurringTransaction removes a recurring transaction.
func (s *SQLiteStorage) DeleteRecurringTransaction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring transaction %d: %w", id, err)
	}
	return requireAffected(res, "recurring transaction", id)
}

func scanRecurring(rows *sql.Rows) (model.RecurringTransaction, error) {
	var rt model.RecurringTransaction
	var startDate, frequency string
	var daysJSON, endDate sql.NullString
	var weekday, weekOfMonth sql.NullInt64
	var createdAt sql.NullTime

	if err := rows.Scan(
		&rt.ID,
		&rt.Description,
		&rt.Amount,
		&rt.AccountID,
		&startDate,
		&frequency,
		&rt.Rule.Interval,
		&daysJSON,
		&rt.Rule.LastDayOfMonth,
		&weekday,
		&weekOfMonth,
		&endDate,
		&rt.SignatureKey,
		&rt.Enabled,
		&createdAt,
	); err != nil {
		return rt, fmt.Errorf("failed to scan recurring transaction: %w", err)
	}

	d, err := civil.ParseDate(startDate)
	if err != nil {
		return rt, fmt.Errorf("failed to parse start date of recurring transaction %d: %w", rt.ID, err)
	}
	rt.StartDate = d
	rt.Rule.Frequency = model.Frequency(frequency)

	if daysJSON.Valid && daysJSON.String != "" {
		if err := json.Unmarshal([]byte(daysJSON.String), &rt.Rule.DaysOfMonth); err != nil {
			return rt, fmt.Errorf("failed to parse days of month of recurring transaction %d: %w", rt.ID, err)
		}
	}
	if weekday.Valid {
		w := time.Weekday(weekday.Int64)
		rt.Rule.Weekday = &w
	}
	if weekOfMonth.Valid {
		n := int(weekOfMonth.Int64)
		rt.Rule.WeekOfMonth = &n
	}
	if endDate.Valid {
		end, err := civil.ParseDate(endDate.String)
		if err != nil {
			return rt, fmt.Errorf("failed to parse end date of recurring transaction %d: %w", rt.ID, err)
		}
		rt.Rule.EndDate = &end
	}
	if createdAt.Valid {
		rt.CreatedAt = createdAt.Time
	}

	return rt, nil
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, common.ErrNotFound)
	}
	return nil
}
