package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/config"
	"github.com/Veraticus/spice-forecast/internal/engine"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/tui"
	"github.com/Veraticus/spice-forecast/internal/tui/themes"
	"github.com/spf13/cobra"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Find recurring transactions in your history",
		Long: `Scan imported transactions for payments and deposits that repeat on a
regular schedule, review them, and save the ones you keep as recurring
transactions that future forecasts project forward.

Series that already back a saved recurring transaction are not offered again.`,
		Example: `  # Review everything detected in the last year
  spice detect --since 2024-01-01

  # Only subscriptions, accepted without the review screen
  spice detect --match 'netflix|spotify|hulu' --yes

  # Just list what would be found
  spice detect --list --sensitivity loose`,
		RunE: runDetect,
	}

	cmd.Flags().String("since", "", "Only examine transactions on or after this date")
	cmd.Flags().String("account", "", "Only examine one account")
	cmd.Flags().String("sensitivity", "", "Timing tolerance: strict, normal or loose")
	cmd.Flags().Int("min-occurrences", 0, "Minimum repeats before a series counts (default 3)")
	cmd.Flags().String("match", "", "Only keep series whose description matches this regex")
	cmd.Flags().Bool("list", false, "List detected series without saving anything")
	cmd.Flags().BoolP("yes", "y", false, "Accept every detected series without reviewing")
	cmd.Flags().Bool("include-accepted", false, "Also show series already saved as recurring transactions")
	cmd.Flags().String("theme", "default", "Review screen theme")

	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	applyFlagOverrides(cmd, map[string]string{
		"sensitivity":     config.KeySensitivity,
		"min-occurrences": config.KeyMinOccurrences,
	})
	cfg, err := config.LoadForecastConfig()
	if err != nil {
		return err
	}

	sinceStr, _ := cmd.Flags().GetString("since")
	since, err := parseOptionalDate(sinceStr)
	if err != nil {
		return err
	}
	accountID, _ := cmd.Flags().GetString("account")
	pattern, _ := cmd.Flags().GetString("match")
	listOnly, _ := cmd.Flags().GetBool("list")
	acceptAll, _ := cmd.Flags().GetBool("yes")
	includeAccepted, _ := cmd.Flags().GetBool("include-accepted")
	themeName, _ := cmd.Flags().GetString("theme")

	theme, ok := themes.ByName(themeName)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", themeName, themes.Names())
	}
	match, err := common.NewMatcher(pattern)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	forecaster := engine.NewWithConfig(store, engine.Config{MinOccurrences: cfg.MinOccurrences})

	series, err := forecaster.Detect(ctx, engine.DetectOptions{
		Since:           since,
		Sensitivity:     cfg.SensitivityLevel(),
		AccountID:       accountID,
		IncludeAccepted: includeAccepted,
	})
	if err != nil {
		if errors.Is(err, common.ErrNoTransactions) {
			return fmt.Errorf("%w: import some with 'spice import' or 'spice sync' first", err)
		}
		return err
	}
	series = filterSeries(series, match)

	if len(series) == 0 || listOnly {
		return cli.RenderSeries(out, series)
	}

	if !acceptAll {
		series, err = tui.Review(ctx, series, tui.WithTheme(theme))
		if errors.Is(err, tui.ErrReviewAborted) {
			_, err = fmt.Fprintln(out, cli.FormatInfo("Review canceled, nothing saved"))
			return err
		}
		if err != nil {
			return err
		}
	}

	return acceptSeries(ctx, out, forecaster, series)
}

func filterSeries(series []model.RecurringSeries, match func(string) bool) []model.RecurringSeries {
	filtered := make([]model.RecurringSeries, 0, len(series))
	for _, s := range series {
		if match(s.Description) || match(s.NormalizedDescription) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func acceptSeries(ctx context.Context, w io.Writer, forecaster *engine.Forecaster, series []model.RecurringSeries) error {
	saved, err := forecaster.Accept(ctx, series)
	if err != nil {
		return err
	}

	if len(saved) == 0 {
		_, err := fmt.Fprintln(w, cli.FormatInfo("No series selected, nothing saved"))
		return err
	}

	if _, err := fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Saved %d recurring transaction(s)", len(saved)))); err != nil {
		return err
	}
	return cli.RenderRecurring(w, saved)
}
