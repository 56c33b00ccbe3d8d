package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/config"
	"github.com/Veraticus/spice-forecast/internal/engine"
	"github.com/Veraticus/spice-forecast/internal/sheets"
	"github.com/spf13/cobra"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "forecast",
		Aliases: []string{"project"},
		Short:   "Project account balances into the future",
		Long: `Walk the balance forward from the latest known checkpoint, adding imported
transactions and every occurrence of your recurring transactions, and report the
balance at the end of each bucket.

Buckets: 1d (daily), 3d, 1w (weekly), 2w (biweekly) or 1m (30 days).
Dates on which the balance drops below the warning threshold are flagged.`,
		Example: `  # Next 90 days in weekly buckets
  spice forecast

  # Six months of every account, including detected but unaccepted series
  spice forecast --days 180 --all-accounts --detect

  # Daily balances as CSV
  spice forecast --bucket 1d --format csv > forecast.csv

  # Publish to Google Sheets
  spice forecast --export`,
		Args: cobra.NoArgs,
		RunE: runForecast,
	}

	cmd.Flags().StringP("bucket", "b", "", "Bucket width: 1d, 3d, 1w, 2w or 1m (default 1w)")
	cmd.Flags().IntP("days", "d", 0, "Number of days to project (default 90)")
	cmd.Flags().String("start", "today", "First day of the forecast")
	cmd.Flags().String("starting-balance", "", "Balance to start from when no checkpoint exists")
	cmd.Flags().String("threshold", "", "Warn below this balance instead of the stored threshold")
	cmd.Flags().String("sensitivity", "", "Detector timing tolerance with --detect: strict, normal or loose")
	cmd.Flags().String("account", "", "Only project one account")
	cmd.Flags().Bool("all-accounts", false, "Project every account and their total")
	cmd.Flags().Bool("detect", false, "Also project detected series not yet accepted")
	cmd.Flags().StringP("format", "o", "table", "Output format: table, json or csv")
	cmd.Flags().Bool("export", false, "Also write the forecast to Google Sheets")

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	applyFlagOverrides(cmd, map[string]string{
		"bucket":           config.KeyBucket,
		"days":             config.KeyDays,
		"sensitivity":      config.KeySensitivity,
		"starting-balance": config.KeyStartingBalance,
		"threshold":        config.KeyThreshold,
	})
	cfg, err := config.LoadForecastConfig()
	if err != nil {
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := cli.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	opts, err := forecastOptionsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	export, _ := cmd.Flags().GetBool("export")
	var writer sheets.ProjectionWriter
	if export {
		// Fail on missing credentials before doing any work.
		sheetsConfig, err := config.LoadSheetsConfig()
		if err != nil {
			return fmt.Errorf("google sheets export is not configured: %w", err)
		}
		writer, err = sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
		if err != nil {
			return err
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	forecaster := engine.NewWithConfig(store, engine.Config{MinOccurrences: cfg.MinOccurrences})
	fc, err := forecaster.Run(ctx, opts)
	if err != nil {
		return err
	}

	report := buildReport(fc)
	if err := cli.WriteProjection(out, report, format); err != nil {
		return err
	}

	if format == cli.FormatTable && len(fc.Detected) > 0 {
		msg := fmt.Sprintf("Included %d detected series not yet accepted; run 'spice detect' to keep them", len(fc.Detected))
		if _, err := fmt.Fprintln(out, cli.FormatInfo(msg)); err != nil {
			return err
		}
	}

	if writer != nil {
		return exportReport(ctx, cmd.ErrOrStderr(), writer, report)
	}
	return nil
}

func forecastOptionsFromFlags(cmd *cobra.Command, cfg *config.ForecastConfig) (engine.Options, error) {
	startStr, _ := cmd.Flags().GetString("start")
	accountID, _ := cmd.Flags().GetString("account")
	allAccounts, _ := cmd.Flags().GetBool("all-accounts")
	detect, _ := cmd.Flags().GetBool("detect")

	if allAccounts && accountID != "" {
		return engine.Options{}, fmt.Errorf("--account and --all-accounts cannot be combined")
	}

	start, err := parseDate(startStr, today())
	if err != nil {
		return engine.Options{}, err
	}

	return engine.Options{
		Start:           start,
		End:             forecastEnd(start, cfg.Days),
		StartingBalance: cfg.StartingBalanceAmount(),
		Threshold:       cfg.ThresholdAmount(),
		Bucket:          cfg.BucketWidth(),
		Sensitivity:     cfg.SensitivityLevel(),
		AccountID:       accountID,
		AllAccounts:     allAccounts,
		IncludeDetected: detect,
	}, nil
}

// forecastEnd returns the last day of a window of days starting at start.
func forecastEnd(start civil.Date, days int) civil.Date {
	if days < 1 {
		days = 1
	}
	return start.AddDays(days - 1)
}

func buildReport(fc *engine.Forecast) *sheets.ProjectionReport {
	if fc.Multi != nil {
		return sheets.NewMultiReport(fc.Params, *fc.Multi)
	}
	return sheets.NewReport(fc.Params, *fc.Single)
}

func exportReport(ctx context.Context, w io.Writer, writer sheets.ProjectionWriter, report *sheets.ProjectionReport) error {
	if err := writer.WriteProjection(ctx, report); err != nil {
		return fmt.Errorf("failed to export to Google Sheets: %w", err)
	}
	_, err := fmt.Fprintln(w, cli.FormatSuccess("Forecast written to Google Sheets"))
	return err
}
