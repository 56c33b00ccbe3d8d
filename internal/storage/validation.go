// Package storage provides the data persistence layer for the spice application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-forecast/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRecurring   = errors.New("invalid recurring transaction")
	ErrInvalidCheckpoint  = errors.New("invalid checkpoint")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if !txn.Date.IsValid() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.IsProjected {
		return fmt.Errorf("%w: projected transactions are not persisted", ErrInvalidTransaction)
	}
	return nil
}

// validateRecurring validates a recurring transaction template.
func validateRecurring(rt *model.RecurringTransaction) error {
	if rt == nil {
		return fmt.Errorf("%w: recurring transaction", ErrNilParameter)
	}
	if strings.TrimSpace(rt.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidRecurring)
	}
	if !rt.StartDate.IsValid() {
		return fmt.Errorf("%w: missing start date", ErrInvalidRecurring)
	}
	if err := rt.Rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecurring, err)
	}
	return nil
}

// validateCheckpoint validates a balance checkpoint.
func validateCheckpoint(cp *model.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("%w: checkpoint", ErrNilParameter)
	}
	if !cp.Date.IsValid() {
		return fmt.Errorf("%w: missing date", ErrInvalidCheckpoint)
	}
	return nil
}
