// Package ofx reads OFX/QFX bank and credit card statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An opening tag alone on a line with its closing bracket missing.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	// A leading "MM/DD " posting date some banks prepend to the name.
	datePrefixRegex = regexp.MustCompile(`^\d{2}/\d{2} `)
)

// ParseResult holds everything read from one statement file.
type ParseResult struct {
	Transactions []model.Transaction
	// Ledger balances, one per statement that reports one.
	Checkpoints []model.Checkpoint
	Accounts    []string
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ofx")}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX statement into transactions and balance checkpoints.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	result := &ParseResult{
		Transactions: make([]model.Transaction, 0),
		Checkpoints:  make([]model.Checkpoint, 0),
		Accounts:     make([]string, 0),
	}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			p.addStatement(result, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList, stmt.BalAmt, stmt.DtAsOf)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			p.addStatement(result, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList, stmt.BalAmt, stmt.DtAsOf)
		}
	}

	slices.Sort(result.Accounts)
	result.Accounts = slices.Compact(result.Accounts)

	p.logger.Info("Parsed OFX file",
		"total_transactions", len(result.Transactions),
		"checkpoints", len(result.Checkpoints),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return result, nil
}

func (p *Parser) addStatement(result *ParseResult, accountID string, list *ofxgo.TransactionList, balance ofxgo.Amount, asOf ofxgo.Date) {
	result.Accounts = append(result.Accounts, accountID)

	if list != nil {
		for _, ofxTx := range list.Transactions {
			txn, err := p.convertTransaction(ofxTx, accountID)
			if err != nil {
				p.logger.Warn("Skipping transaction", "account", accountID, "fitid", ofxTx.FiTID, "error", err)
				continue
			}
			result.Transactions = append(result.Transactions, txn)
		}
	}

	if asOf.IsZero() {
		return
	}
	amount, err := ratToDecimal(balance)
	if err != nil {
		p.logger.Warn("Skipping ledger balance", "account", accountID, "error", err)
		return
	}
	result.Checkpoints = append(result.Checkpoints, model.Checkpoint{
		AccountID: accountID,
		Date:      civil.DateOf(asOf.Time),
		Balance:   amount,
		Source:    model.SourceOFX,
	})
}

// convertTransaction converts an OFX transaction to our model. OFX amounts are
// already signed with debits negative.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Transaction, error) {
	amount, err := ratToDecimal(ofxTx.TrnAmt)
	if err != nil {
		return model.Transaction{}, err
	}

	txn := model.Transaction{
		ID:          string(ofxTx.FiTID),
		Date:        civil.DateOf(ofxTx.DtPosted.Time),
		Description: p.extractMerchantName(ofxTx),
		Amount:      amount,
		AccountID:   accountID,
		Source:      model.SourceOFX,
	}
	txn.Hash = txn.GenerateHash()
	if txn.ID == "" {
		txn.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(txn.Hash)).String()
	}

	return txn, nil
}

func ratToDecimal(amount ofxgo.Amount) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount.FloatString(2))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %s: %w", amount.String(), err)
	}
	return d, nil
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	} {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	return strings.TrimSpace(datePrefixRegex.ReplaceAllString(name, ""))
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
