package main

import (
	"fmt"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/storage"
	"github.com/spf13/cobra"
)

func thresholdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Manage low-balance warning thresholds",
		Long: `A forecast warns about every date on which a projected balance drops below
the warning threshold. Thresholds can be set per account; accounts without their
own use the default threshold.`,
	}

	cmd.AddCommand(thresholdSetCmd())
	cmd.AddCommand(thresholdShowCmd())
	return cmd
}

func thresholdSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set AMOUNT",
		Short: "Set a warning threshold",
		Example: `  # Warn whenever any account dips below $500
  spice threshold set 500

  # Savings should never drop under $2,000
  spice threshold set 2000 --account savings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			threshold, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			accountID, _ := cmd.Flags().GetString("account")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.SetWarningThreshold(ctx, accountID, threshold); err != nil {
				return fmt.Errorf("failed to save warning threshold: %w", err)
			}

			msg := fmt.Sprintf("Warning threshold for %s set to %s", cli.AccountLabel(accountID), cli.FormatMoney(threshold))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return err
		},
	}

	cmd.Flags().String("account", storage.DefaultThresholdAccount, "Account the threshold applies to (default: every account)")
	return cmd
}

func thresholdShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"list", "ls"},
		Short:   "Show warning thresholds",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			thresholds, err := store.GetWarningThresholds(ctx)
			if err != nil {
				return fmt.Errorf("failed to load warning thresholds: %w", err)
			}
			return cli.RenderThresholds(cmd.OutOrStdout(), thresholds)
		},
	}
}
