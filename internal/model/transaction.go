package model

import (
	"crypto/sha256"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionSource records where a transaction came from.
type TransactionSource string

const (
	// SourceOFX marks transactions imported from OFX/QFX files.
	SourceOFX TransactionSource = "ofx"
	// SourcePlaid marks transactions fetched from Plaid.
	SourcePlaid TransactionSource = "plaid"
	// SourceSimpleFIN marks transactions fetched from a SimpleFIN bridge.
	SourceSimpleFIN TransactionSource = "simplefin"
	// SourceManual marks transactions entered by hand.
	SourceManual TransactionSource = "manual"
	// SourceProjected marks occurrences synthesized by the forecast engine.
	SourceProjected TransactionSource = "projected"
)

// Transaction represents a single dated movement of money on an account.
// Positive amounts are inflows, negative amounts are outflows.
type Transaction struct {
	Date        civil.Date
	Amount      decimal.Decimal
	ID          string
	Description string
	AccountID   string // Empty for single-account use
	Hash        string
	Source      TransactionSource
	IsProjected bool // Only true for engine-synthesized occurrences
}

// IsInflow reports whether the transaction adds money to the account.
// Zero amounts count as inflows.
func (t Transaction) IsInflow() bool {
	return !t.Amount.IsNegative()
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.String(),
		t.Amount.StringFixed(2),
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
