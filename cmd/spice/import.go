package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/ofx"
	"github.com/Veraticus/spice-forecast/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions and ledger balances from OFX or QFX (Quicken) files
exported from your bank.

Each statement's ledger balance is stored as a balance checkpoint, so forecasts
start from the balance your bank reported. Transactions are deduplicated, so
importing overlapping statements is safe.`,
		Example: `  # Import a single file
  spice import ~/Downloads/chase_jan_2024.qfx

  # Import every QFX file matching a glob
  spice import ~/Downloads/*.qfx

  # Import every OFX/QFX file under a directory
  spice import ~/Statements/

  # Preview without saving
  spice import --dry-run ~/Downloads/Ally/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "n", false, "Preview import without saving")
	cmd.Flags().String("account", "", "Override the account ID read from the files")

	return cmd
}

// importOptions controls importFiles.
type importOptions struct {
	progress  io.Writer // nil disables the progress bar
	accountID string
	dryRun    bool
}

// importSummary describes what an import read.
type importSummary struct {
	accounts     map[string]int
	files        []string
	failed       []string
	transactions []model.Transaction
	checkpoints  []model.Checkpoint
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	accountID, _ := cmd.Flags().GetString("account")
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(out, "Import")
	ctx := handler.HandleInterrupts(cmd.Context(), "Nothing was saved. Rerun the import to try again.")

	var store service.Storage
	if !dryRun {
		sqliteStore, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer closeStorage(sqliteStore)
		store = sqliteStore
	}

	if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Importing %d OFX file(s)", len(files)))); err != nil {
		return err
	}

	summary, err := importFiles(ctx, store, files, importOptions{
		progress:  out,
		accountID: accountID,
		dryRun:    dryRun,
	})
	if err != nil {
		if handler.WasInterrupted() {
			return context.Canceled
		}
		return err
	}

	return printImportSummary(out, summary, dryRun)
}

// expandFiles resolves glob patterns and directories, keeping plain paths
// that exist. Directories are searched recursively for OFX/QFX files.
func expandFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", m, err)
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isStatementFile(path) {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to read directory %s: %w", m, err)
			}
		}
	}

	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	sort.Strings(files)
	return files, nil
}

func isStatementFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return true
	}
	return false
}

// importFiles parses every file and, unless dryRun, saves the transactions
// and balance checkpoints in a single database transaction. Files that fail
// to open or parse are reported and skipped.
func importFiles(ctx context.Context, store service.Storage, files []string, opts importOptions) (*importSummary, error) {
	summary := &importSummary{accounts: make(map[string]int)}
	parser := ofx.NewParser()

	var bar *progressbar.ProgressBar
	if opts.progress != nil {
		bar = cli.NewProgressBar(opts.progress, len(files), "Parsing statements...")
	}

	seen := make(map[string]bool)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := parseFile(ctx, parser, path)
		cli.Advance(bar)
		if err != nil {
			slog.Error("Failed to import file", "file", path, "error", err)
			summary.failed = append(summary.failed, filepath.Base(path))
			continue
		}
		summary.files = append(summary.files, filepath.Base(path))

		for _, txn := range result.Transactions {
			if opts.accountID != "" {
				txn.AccountID = opts.accountID
				txn.Hash = ""
			}
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			if seen[txn.Hash] {
				continue
			}
			seen[txn.Hash] = true
			summary.transactions = append(summary.transactions, txn)
			summary.accounts[txn.AccountID]++
		}
		for _, cp := range result.Checkpoints {
			if opts.accountID != "" {
				cp.AccountID = opts.accountID
			}
			summary.checkpoints = append(summary.checkpoints, cp)
		}
	}

	if len(summary.files) == 0 {
		return nil, fmt.Errorf("none of the %d file(s) could be imported", len(files))
	}
	if opts.dryRun || store == nil {
		return summary, nil
	}

	if err := saveImport(ctx, store, summary.transactions, summary.checkpoints); err != nil {
		return nil, err
	}
	return summary, nil
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) (*ofx.ParseResult, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied statement file
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parser.ParseFile(ctx, f)
}

// saveImport stores transactions and checkpoints atomically.
func saveImport(ctx context.Context, store service.Storage, transactions []model.Transaction, checkpoints []model.Checkpoint) error {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(transactions) > 0 {
		if err := tx.SaveTransactions(ctx, transactions); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
	}
	for i := range checkpoints {
		if err := tx.SaveCheckpoint(ctx, &checkpoints[i]); err != nil {
			return fmt.Errorf("failed to save balance checkpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	slog.Info("Import saved", "transactions", len(transactions), "checkpoints", len(checkpoints))
	return nil
}

func printImportSummary(w io.Writer, summary *importSummary, dryRun bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Files read:   %d\n", len(summary.files))
	if len(summary.failed) > 0 {
		fmt.Fprintf(&b, "Files failed: %d (%s)\n", len(summary.failed), strings.Join(summary.failed, ", "))
	}
	fmt.Fprintf(&b, "Transactions: %d\n", len(summary.transactions))

	if len(summary.transactions) > 0 {
		first, last := dateRange(summary.transactions)
		net := decimal.Zero
		for _, txn := range summary.transactions {
			net = net.Add(txn.Amount)
		}
		fmt.Fprintf(&b, "Date range:   %s to %s\n", first, last)
		fmt.Fprintf(&b, "Net change:   %s\n", cli.FormatSignedMoney(net))
	}

	accounts := make([]string, 0, len(summary.accounts))
	for id := range summary.accounts {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)
	for _, id := range accounts {
		fmt.Fprintf(&b, "  %s: %d transactions\n", cli.AccountLabel(id), summary.accounts[id])
	}

	for _, cp := range summary.checkpoints {
		fmt.Fprintf(&b, "Balance %s on %s: %s\n", cli.AccountLabel(cp.AccountID), cp.Date, cli.FormatMoney(cp.Balance))
	}

	title := "Import Summary"
	if dryRun {
		title = "Import Preview (dry run, nothing saved)"
	}
	_, err := fmt.Fprintln(w, cli.RenderBox(title, strings.TrimRight(b.String(), "\n")))
	return err
}

func dateRange(transactions []model.Transaction) (civil.Date, civil.Date) {
	first, last := transactions[0].Date, transactions[0].Date
	for _, txn := range transactions[1:] {
		if txn.Date.Before(first) {
			first = txn.Date
		}
		if txn.Date.After(last) {
			last = txn.Date
		}
	}
	return first, last
}
