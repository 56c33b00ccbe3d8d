// Package simplefin fetches transactions and balances from a SimpleFIN bridge.
package simplefin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/shopspring/decimal"
)

// Config holds SimpleFIN credentials. A setup token is claimed once and the
// resulting access URL is cached in StateFile.
type Config struct {
	Token     string
	AccessURL string
	StateFile string
	Timeout   time.Duration
}

// Client implements the same fetcher contract as the Plaid client.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  service.RetryOptions
	location   *time.Location
	accessURL  string
}

// accountSet is the body of GET {access-url}/accounts.
type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	BalanceDate  int64         `json:"balance-date"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// NewClient creates a client, claiming cfg.Token when no access URL is known.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	accessURL := cfg.AccessURL
	if accessURL == "" {
		auth, err := LoadOrClaimAuth(ctx, httpClient, cfg.Token, cfg.StateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load SimpleFIN access: %w", err)
		}
		accessURL = auth.AccessURL
	}

	return &Client{
		httpClient: httpClient,
		logger:     slog.Default().With("component", "simplefin"),
		retryOpts:  common.DefaultRetryOptions(),
		location:   time.Local,
		accessURL:  strings.TrimRight(accessURL, "/"),
	}, nil
}

// GetTransactions fetches posted transactions within the inclusive date range.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate civil.Date) ([]model.Transaction, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("start date must not be after end date")
	}

	c.logger.Info("Fetching transactions from SimpleFIN",
		"start_date", startDate.String(),
		"end_date", endDate.String())

	query := url.Values{}
	query.Set("start-date", strconv.FormatInt(startDate.In(c.location).Unix(), 10))
	// end-date is exclusive
	query.Set("end-date", strconv.FormatInt(endDate.AddDays(1).In(c.location).Unix(), 10))

	set, err := c.fetchAccounts(ctx, query)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	skipped := 0
	for _, acct := range set.Accounts {
		for _, tx := range acct.Transactions {
			txn, ok := c.mapTransaction(acct.ID, tx)
			if !ok {
				skipped++
				continue
			}
			if txn.Date.Before(startDate) || txn.Date.After(endDate) {
				continue
			}
			transactions = append(transactions, txn)
		}
	}

	c.logger.Info("Fetched transactions from SimpleFIN",
		"count", len(transactions),
		"skipped", skipped)
	return transactions, nil
}

// GetAccounts returns the IDs of every account behind the access URL.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	set, err := c.fetchAccounts(ctx, url.Values{"balances-only": {"1"}})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set.Accounts))
	for _, acct := range set.Accounts {
		ids = append(ids, acct.ID)
	}
	return ids, nil
}

// GetBalances returns each account's reported balance as a checkpoint dated
// on its balance date.
func (c *Client) GetBalances(ctx context.Context) ([]model.Checkpoint, error) {
	set, err := c.fetchAccounts(ctx, url.Values{"balances-only": {"1"}})
	if err != nil {
		return nil, err
	}

	checkpoints := make([]model.Checkpoint, 0, len(set.Accounts))
	for _, acct := range set.Accounts {
		balance, err := decimal.NewFromString(acct.Balance)
		if err != nil {
			c.logger.Warn("Skipping account with unparseable balance", "account", acct.ID, "balance", acct.Balance)
			continue
		}
		checkpoints = append(checkpoints, model.Checkpoint{
			AccountID: acct.ID,
			Date:      c.dateOf(acct.BalanceDate),
			Balance:   balance,
			Source:    model.SourceSimpleFIN,
		})
	}
	return checkpoints, nil
}

func (c *Client) fetchAccounts(ctx context.Context, query url.Values) (*accountSet, error) {
	endpoint := c.accessURL + "/accounts"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var set accountSet
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return common.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			apiErr := fmt.Errorf("%w: status %d: %s", common.ErrSimpleFINConnection, resp.StatusCode, strings.TrimSpace(string(body)))
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("%w: %w", common.ErrRateLimit, apiErr)
			case resp.StatusCode >= http.StatusInternalServerError:
				return apiErr
			}
			return common.Permanent(apiErr)
		}

		set = accountSet{}
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return common.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	for _, msg := range set.Errors {
		c.logger.Warn("SimpleFIN reported a problem", "message", msg)
	}
	return &set, nil
}

func (c *Client) mapTransaction(accountID string, tx transaction) (model.Transaction, bool) {
	if tx.Pending {
		return model.Transaction{}, false
	}

	amount, err := decimal.NewFromString(tx.Amount)
	if err != nil {
		c.logger.Warn("Skipping transaction with unparseable amount", "id", tx.ID, "amount", tx.Amount)
		return model.Transaction{}, false
	}

	description := strings.TrimSpace(tx.Payee)
	if description == "" {
		description = strings.TrimSpace(tx.Description)
	}
	if description == "" {
		return model.Transaction{}, false
	}

	txn := model.Transaction{
		ID:          accountID + "_" + tx.ID,
		Date:        c.dateOf(tx.Posted),
		Description: description,
		Amount:      amount,
		AccountID:   accountID,
		Source:      model.SourceSimpleFIN,
	}
	txn.Hash = txn.GenerateHash()
	return txn, true
}

func (c *Client) dateOf(unix int64) civil.Date {
	return civil.DateOf(time.Unix(unix, 0).In(c.location))
}
