package main

import (
	"fmt"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Record and list known account balances",
		Long: `Balance checkpoints are actual balances on a date. A forecast starts from
the latest checkpoint on or before its start date and replays transactions from
there, so recording the balance shown by your bank keeps projections honest.`,
	}

	cmd.AddCommand(balanceSetCmd())
	cmd.AddCommand(balanceListCmd())
	return cmd
}

func balanceSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set AMOUNT",
		Short: "Record the balance of an account on a date",
		Example: `  spice balance set 4312.77
  spice balance set --account checking --date 2024-03-01 -- -120.50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			balance, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			dateStr, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateStr, today())
			if err != nil {
				return err
			}
			accountID, _ := cmd.Flags().GetString("account")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			checkpoint := model.Checkpoint{
				Date:      date,
				Balance:   balance,
				AccountID: accountID,
				Source:    model.SourceManual,
			}
			if err := store.SaveCheckpoint(ctx, &checkpoint); err != nil {
				return fmt.Errorf("failed to save balance: %w", err)
			}

			msg := fmt.Sprintf("Balance of %s on %s set to %s", cli.AccountLabel(accountID), date, cli.FormatMoney(balance))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return err
		},
	}

	cmd.Flags().String("account", "", "Account the balance belongs to")
	cmd.Flags().String("date", "today", "Date of the balance")
	return cmd
}

func balanceListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded balances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			accountID, _ := cmd.Flags().GetString("account")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			checkpoints, err := store.ListCheckpoints(ctx, accountID)
			if err != nil {
				return fmt.Errorf("failed to list balances: %w", err)
			}
			return cli.RenderCheckpoints(cmd.OutOrStdout(), checkpoints)
		},
	}

	cmd.Flags().String("account", "", "Only list one account")
	return cmd
}
