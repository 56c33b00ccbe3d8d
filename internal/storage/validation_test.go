package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{name: "valid string", str: "test", paramName: "param"},
		{name: "empty string", str: "", paramName: "param", wantErr: true},
		{name: "whitespace only", str: "  \t ", paramName: "param", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := model.Transaction{
		ID:          "txn-1",
		Date:        day(2025, time.January, 1),
		Description: "Coffee",
		Amount:      decimal.RequireFromString("-4.50"),
	}

	tests := []struct {
		mutate  func(*model.Transaction)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.Transaction) {}},
		{name: "empty account is allowed", mutate: func(tx *model.Transaction) { tx.AccountID = "" }},
		{name: "missing id", mutate: func(tx *model.Transaction) { tx.ID = "" }, wantErr: true},
		{name: "invalid date", mutate: func(tx *model.Transaction) { tx.Date.Day = 32 }, wantErr: true},
		{name: "blank description", mutate: func(tx *model.Transaction) { tx.Description = "   " }, wantErr: true},
		{name: "projected", mutate: func(tx *model.Transaction) { tx.IsProjected = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid
			tt.mutate(&txn)
			err := validateTransaction(&txn)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := validateTransaction(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateTransaction(nil) error = %v", err)
	}
}

func TestValidateTransactions_ReportsIndex(t *testing.T) {
	txns := []model.Transaction{
		{ID: "1", Date: day(2025, time.January, 1), Description: "ok"},
		{ID: "", Date: day(2025, time.January, 2), Description: "bad"},
	}
	err := validateTransactions(txns)
	if !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("validateTransactions() error = %v", err)
	}
	if got := err.Error(); got != "transaction at index 1: invalid transaction: missing ID" {
		t.Errorf("unexpected error message %q", got)
	}
}
