package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/config"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/plaid"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/Veraticus/spice-forecast/internal/simplefin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import transactions and balances from Plaid or SimpleFIN",
		Long: `Fetch transactions and current balances from your connected accounts.

Pending transactions are skipped until they post. Each account's current balance
is stored as a balance checkpoint, so forecasts start from it.

Plaid credentials come from the plaid section of the config file or from
PLAID_CLIENT_ID, PLAID_SECRET, PLAID_ENV and PLAID_ACCESS_TOKEN.

SimpleFIN needs a setup token (simplefin.token or SIMPLEFIN_TOKEN). It is claimed
on first use and the resulting access URL is kept next to the config file.`,
		RunE: runSync,
	}

	cmd.Flags().StringP("provider", "p", "plaid", "Where to fetch from: plaid or simplefin")
	cmd.Flags().StringP("start-date", "s", "", "Start date (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End date (format: 2006-01-02, default today)")
	cmd.Flags().IntP("days", "d", 30, "Number of days to fetch when no start date is given")
	cmd.Flags().StringSlice("accounts", []string{}, "Only keep these account IDs (comma-separated)")
	cmd.Flags().Bool("list-accounts", false, "List available accounts without importing")
	cmd.Flags().Bool("skip-balances", false, "Do not record current balances as checkpoints")
	cmd.Flags().BoolP("dry-run", "n", false, "Show what would be imported without saving")

	_ = viper.BindPFlag("sync.provider", cmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("sync.days", cmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("sync.accounts", cmd.Flags().Lookup("accounts"))

	return cmd
}

// syncOptions controls syncAccounts.
type syncOptions struct {
	accounts     []string
	start        civil.Date
	end          civil.Date
	skipBalances bool
	dryRun       bool
}

// syncResult is what syncAccounts fetched.
type syncResult struct {
	transactions []model.Transaction
	checkpoints  []model.Checkpoint
}

func runSync(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	provider := viper.GetString("sync.provider")

	handler := cli.NewInterruptHandler(out, "Sync")
	ctx := handler.HandleInterrupts(cmd.Context(), "Nothing was saved. Run sync again to retry.")

	client, err := newFetcher(ctx, provider)
	if err != nil {
		return err
	}

	if list, _ := cmd.Flags().GetBool("list-accounts"); list {
		return listAccounts(ctx, out, client)
	}

	opts, err := syncOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	var store service.Storage
	if !opts.dryRun {
		sqliteStore, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer closeStorage(sqliteStore)
		store = sqliteStore
	}

	if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Syncing %s %s to %s", provider, opts.start, opts.end))); err != nil {
		return err
	}

	result, err := syncAccounts(ctx, client, store, opts)
	if err != nil {
		return err
	}

	verb := "Imported"
	if opts.dryRun {
		verb = "Would import"
	}
	msg := fmt.Sprintf("%s %d transactions and %d balances", verb, len(result.transactions), len(result.checkpoints))
	if _, err := fmt.Fprintln(out, cli.FormatSuccess(msg)); err != nil {
		return err
	}
	return cli.RenderCheckpoints(out, result.checkpoints)
}

func syncOptionsFromFlags(cmd *cobra.Command) (syncOptions, error) {
	startStr, _ := cmd.Flags().GetString("start-date")
	endStr, _ := cmd.Flags().GetString("end-date")
	skipBalances, _ := cmd.Flags().GetBool("skip-balances")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	end, err := parseDate(endStr, today())
	if err != nil {
		return syncOptions{}, err
	}

	days := viper.GetInt("sync.days")
	if days <= 0 {
		days = 30
	}
	start, err := parseDate(startStr, end.AddDays(-days))
	if err != nil {
		return syncOptions{}, err
	}
	if end.Before(start) {
		return syncOptions{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	return syncOptions{
		accounts:     viper.GetStringSlice("sync.accounts"),
		start:        start,
		end:          end,
		skipBalances: skipBalances,
		dryRun:       dryRun,
	}, nil
}

// newFetcher builds the client of a bank data provider.
func newFetcher(ctx context.Context, provider string) (plaid.TransactionFetcher, error) {
	switch strings.ToLower(provider) {
	case "plaid":
		cfg, err := config.LoadPlaidConfig()
		if err != nil {
			return nil, err
		}
		client, err := plaid.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Plaid client: %w", err)
		}
		return client, nil
	case "simplefin":
		cfg, err := config.LoadSimpleFINConfig()
		if err != nil {
			return nil, err
		}
		client, err := simplefin.NewClient(ctx, *cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create SimpleFIN client: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown provider %q (want plaid or simplefin)", provider)
}

// syncAccounts fetches transactions and balances and, unless dryRun, stores
// them atomically.
func syncAccounts(ctx context.Context, fetcher plaid.TransactionFetcher, store service.Storage, opts syncOptions) (*syncResult, error) {
	transactions, err := fetcher.GetTransactions(ctx, opts.start, opts.end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	result := &syncResult{transactions: filterByAccount(transactions, opts.accounts, func(t model.Transaction) string {
		return t.AccountID
	})}

	if !opts.skipBalances {
		balances, err := fetcher.GetBalances(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch balances: %w", err)
		}
		result.checkpoints = filterByAccount(balances, opts.accounts, func(c model.Checkpoint) string {
			return c.AccountID
		})
	}

	slog.Info("Fetched from provider",
		"transactions", len(result.transactions),
		"balances", len(result.checkpoints))

	if opts.dryRun || store == nil {
		return result, nil
	}
	if err := saveImport(ctx, store, result.transactions, result.checkpoints); err != nil {
		return nil, err
	}
	return result, nil
}

func filterByAccount[T any](items []T, accountIDs []string, account func(T) string) []T {
	if len(accountIDs) == 0 {
		return items
	}

	allowed := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		allowed[id] = true
	}

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if allowed[account(item)] {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func listAccounts(ctx context.Context, w io.Writer, fetcher plaid.TransactionFetcher) error {
	accounts, err := fetcher.GetAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}

	if len(accounts) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatWarning("No accounts found"))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d accounts:\n\n", len(accounts))
	for i, accountID := range accounts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, accountID)
	}

	_, err = fmt.Fprintln(w, cli.RenderBox("Available Accounts", strings.TrimRight(b.String(), "\n")))
	return err
}

var _ plaid.TransactionFetcher = (*simplefin.Client)(nil)
