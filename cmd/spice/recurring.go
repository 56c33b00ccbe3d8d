package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recurring",
		Aliases: []string{"rec"},
		Short:   "Manage recurring transactions",
		Long: `Recurring transactions are the bills, paychecks and transfers that every
forecast projects forward. Add them by hand here or accept detected ones with
'spice detect'.`,
	}

	cmd.AddCommand(recurringAddCmd())
	cmd.AddCommand(recurringListCmd())
	cmd.AddCommand(recurringDeleteCmd())
	cmd.AddCommand(recurringToggleCmd("enable", true))
	cmd.AddCommand(recurringToggleCmd("disable", false))

	return cmd
}

// recurringInput is the raw flag input of 'recurring add'.
type recurringInput struct {
	Weekday     string `validate:"omitempty,oneof=sunday monday tuesday wednesday thursday friday saturday sun mon tue wed thu fri sat"`
	Description string `validate:"required,max=200"`
	Amount      string `validate:"required"`
	Start       string `validate:"required"`
	Frequency   string `validate:"required,oneof=daily weekly biweekly monthly yearly"`
	End         string
	AccountID   string
	Week        string `validate:"omitempty,oneof=1 2 3 4 last"`
	Days        []int  `validate:"dive,min=1,max=31"`
	Interval    int    `validate:"min=1,max=99"`
	LastDay     bool
	Disabled    bool
}

var inputValidator = validator.New()

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// toRecurring validates the input and converts it into a recurring transaction.
func (in recurringInput) toRecurring() (*model.RecurringTransaction, error) {
	in.Frequency = strings.ToLower(strings.TrimSpace(in.Frequency))
	in.Weekday = strings.ToLower(strings.TrimSpace(in.Weekday))
	in.Week = strings.ToLower(strings.TrimSpace(in.Week))

	if err := inputValidator.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid recurring transaction: %w", err)
	}

	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	start, err := parseDate(in.Start, today())
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate(in.End)
	if err != nil {
		return nil, err
	}
	if end != nil && end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	rule := model.RecurrenceRule{
		Frequency:      model.Frequency(in.Frequency),
		Interval:       in.Interval,
		DaysOfMonth:    in.Days,
		LastDayOfMonth: in.LastDay,
		EndDate:        end,
	}
	if in.Weekday != "" {
		wd := weekdays[in.Weekday]
		rule.Weekday = &wd
	}
	if in.Week != "" {
		week := model.LastWeek
		if in.Week != "last" {
			week, _ = strconv.Atoi(in.Week)
		}
		rule.WeekOfMonth = &week
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	return &model.RecurringTransaction{
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		StartDate:   start,
		AccountID:   in.AccountID,
		Rule:        rule,
		Enabled:     !in.Disabled,
	}, nil
}

func recurringAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add DESCRIPTION AMOUNT",
		Short: "Add a recurring transaction",
		Long: `Add a recurring transaction. Negative amounts are outflows.

Monthly rules need exactly one of --day, --last-day or --weekday with --week.`,
		Example: `  # Rent on the 1st of every month
  spice recurring add --frequency monthly --day 1 --start 2024-01-01 -- "Rent" -1850

  # Paycheck every other Friday
  spice recurring add "Payroll" 2450.00 --frequency biweekly --start 2024-01-05

  # Credit card autopay on the last Friday of the month
  spice recurring add --weekday fri --week last -- "Card payment" -400`,
		Args: cobra.ExactArgs(2),
		RunE: runRecurringAdd,
	}

	cmd.Flags().String("start", "today", "First occurrence on or after this date")
	cmd.Flags().StringP("frequency", "f", "monthly", "daily, weekly, biweekly, monthly or yearly")
	cmd.Flags().IntP("interval", "i", 1, "Repeat every N periods")
	cmd.Flags().IntSlice("day", nil, "Day(s) of the month for monthly rules")
	cmd.Flags().Bool("last-day", false, "Occur on the last day of the month")
	cmd.Flags().String("weekday", "", "Weekday for monthly rules (with --week)")
	cmd.Flags().String("week", "", "Week of the month: 1-4 or last (with --weekday)")
	cmd.Flags().String("end", "", "Last possible occurrence date")
	cmd.Flags().String("account", "", "Account the transaction belongs to")
	cmd.Flags().Bool("disabled", false, "Save without projecting it")

	return cmd
}

func runRecurringAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in := recurringInput{Description: args[0], Amount: args[1]}
	in.Start, _ = cmd.Flags().GetString("start")
	in.Frequency, _ = cmd.Flags().GetString("frequency")
	in.Interval, _ = cmd.Flags().GetInt("interval")
	in.Days, _ = cmd.Flags().GetIntSlice("day")
	in.LastDay, _ = cmd.Flags().GetBool("last-day")
	in.Weekday, _ = cmd.Flags().GetString("weekday")
	in.Week, _ = cmd.Flags().GetString("week")
	in.End, _ = cmd.Flags().GetString("end")
	in.AccountID, _ = cmd.Flags().GetString("account")
	in.Disabled, _ = cmd.Flags().GetBool("disabled")

	rt, err := in.toRecurring()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	if err := store.SaveRecurringTransaction(ctx, rt); err != nil {
		return fmt.Errorf("failed to save recurring transaction: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Added recurring transaction #%d", rt.ID))); err != nil {
		return err
	}
	return cli.RenderRecurring(out, []model.RecurringTransaction{*rt})
}

func recurringListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recurring transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			enabledOnly, _ := cmd.Flags().GetBool("enabled-only")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rules, err := store.ListRecurringTransactions(ctx, enabledOnly)
			if err != nil {
				return fmt.Errorf("failed to list recurring transactions: %w", err)
			}
			return cli.RenderRecurring(cmd.OutOrStdout(), rules)
		},
	}

	cmd.Flags().Bool("enabled-only", false, "Hide disabled recurring transactions")
	return cmd
}

func recurringDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a recurring transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rt, err := store.GetRecurringTransaction(ctx, id)
			if err != nil {
				return err
			}

			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				question := fmt.Sprintf("Delete %q (%s, %s)?", rt.Description, cli.FormatSignedMoney(rt.Amount), rt.Rule.Describe())
				ok, err := cli.NewNonBlockingReader(os.Stdin).Confirm(ctx, out, question)
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(out, cli.FormatInfo("Nothing deleted"))
					return err
				}
			}

			if err := store.DeleteRecurringTransaction(ctx, id); err != nil {
				return fmt.Errorf("failed to delete recurring transaction: %w", err)
			}
			_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted recurring transaction #%d", id)))
			return err
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	return cmd
}

func recurringToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a recurring transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.SetRecurringEnabled(ctx, id, enabled); err != nil {
				return fmt.Errorf("failed to %s recurring transaction: %w", verb, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recurring transaction #%d %sd", id, verb)))
			return err
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("ID must be a positive number")
	}
	return id, nil
}
