// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("plaid environment is required")
	}
	if c.Environment != "sandbox" && c.Environment != "production" {
		return fmt.Errorf("invalid Plaid environment %q: must be sandbox or production", c.Environment)
	}
	return nil
}

// Client implements the TransactionFetcher interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	now         func() time.Time
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	retryOpts := common.DefaultRetryOptions()
	retryOpts.InitialDelay = time.Second
	retryOpts.MaxDelay = 30 * time.Second

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts:   &retryOpts,
		now:         time.Now,
	}, nil
}

// GetTransactions fetches posted transactions within the inclusive date range.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate civil.Date) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("start date must not be after end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.String(),
		"end_date", endDate.String())

	var allTransactions []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(c.accessToken, startDate.String(), endDate.String())
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classifyError("fetch transactions", err)
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		allTransactions = append(allTransactions, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	transactions := make([]model.Transaction, 0, len(allTransactions))
	skipped := 0
	for _, pt := range allTransactions {
		txn, ok := c.mapPlaidTransaction(pt)
		if !ok {
			skipped++
			continue
		}
		transactions = append(transactions, txn)
	}

	c.logger.Info("Fetched all transactions", "count", len(transactions), "skipped", skipped)
	return transactions, nil
}

// GetAccounts fetches account IDs from Plaid.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	accounts, err := c.fetchAccounts(ctx)
	if err != nil {
		return nil, err
	}

	accountIDs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		accountIDs = append(accountIDs, account.GetAccountId())
	}
	return accountIDs, nil
}

// GetBalances returns the current balance of every linked account as a
// checkpoint dated today.
func (c *Client) GetBalances(ctx context.Context) ([]model.Checkpoint, error) {
	accounts, err := c.fetchAccounts(ctx)
	if err != nil {
		return nil, err
	}

	today := civil.DateOf(c.now())
	checkpoints := make([]model.Checkpoint, 0, len(accounts))
	for _, account := range accounts {
		cp, ok := mapAccountBalance(account, today)
		if !ok {
			c.logger.Warn("Account has no current balance", "account_id", account.GetAccountId())
			continue
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, nil
}

func (c *Client) fetchAccounts(ctx context.Context) ([]plaid.AccountBase, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	c.logger.Info("Fetching accounts from Plaid")

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classifyError("fetch accounts", err)
		}
		accounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))
	return accounts, nil
}

// classifyError marks rate limits retryable and every other API error permanent.
func (c *Client) classifyError(op string, err error) error {
	plaidError := extractPlaidError(err)
	if plaidError == nil {
		return fmt.Errorf("%w: failed to %s: %w", common.ErrPlaidConnection, op, err)
	}
	if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidError.ErrorMessage), Retryable: true}
	}
	return common.Permanent(fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage))
}

// mapPlaidTransaction converts a Plaid transaction to our internal model.
// Pending transactions and unparseable dates are rejected.
func (c *Client) mapPlaidTransaction(pt plaid.Transaction) (model.Transaction, bool) {
	if pt.GetPending() {
		return model.Transaction{}, false
	}

	date, err := civil.ParseDate(pt.GetDate())
	if err != nil {
		c.logger.Error("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
		return model.Transaction{}, false
	}

	description := pt.GetMerchantName()
	if description == "" {
		description = pt.GetName()
	}

	// In Plaid positive amounts are money leaving the account.
	amount := decimal.NewFromFloat(pt.GetAmount()).Neg().Round(2)

	txn := model.Transaction{
		ID:          pt.GetTransactionId(),
		Date:        date,
		Description: cleanMerchantName(description),
		Amount:      amount,
		AccountID:   pt.GetAccountId(),
		Source:      model.SourcePlaid,
	}
	txn.Hash = txn.GenerateHash()

	return txn, true
}

// mapAccountBalance turns an account's current balance into a checkpoint.
// Credit and loan balances are amounts owed, so they are negated.
func mapAccountBalance(account plaid.AccountBase, today civil.Date) (model.Checkpoint, bool) {
	balances := account.GetBalances()
	current, ok := balances.GetCurrentOk()
	if !ok || current == nil {
		return model.Checkpoint{}, false
	}

	balance := decimal.NewFromFloat(*current).Round(2)
	switch account.GetType() {
	case plaid.ACCOUNTTYPE_CREDIT, plaid.ACCOUNTTYPE_LOAN:
		balance = balance.Neg()
	}

	return model.Checkpoint{
		AccountID: account.GetAccountId(),
		Date:      today,
		Balance:   balance,
		Source:    model.SourcePlaid,
	}, true
}

// cleanMerchantName title-cases a merchant name and strips trailing
// transaction IDs and corporate suffixes.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !unicode.IsLetter(runes[j-1]) {
				runes[j] = unicode.ToUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// A long all-digit tail is a processor reference, not part of the name.
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}

	suffixes := map[string]bool{
		"Llc": true, "Inc": true, "Corp": true, "Corporation": true,
		"Company": true, "Co": true, "Ltd": true, "Limited": true,
	}
	for len(words) > 1 && suffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

var _ TransactionFetcher = (*Client)(nil)
