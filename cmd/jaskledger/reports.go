package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/jaskledger/internal/categorize"
	"github.com/jask/jaskledger/internal/database"
	"github.com/jask/jaskledger/internal/ledger"
)

var (
	reportMonth     string
	categorizeValue string
	resetYes        bool
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize <description>",
	Short: "Show the category suggested for a description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()

		amount := decimal.Zero
		if categorizeValue != "" {
			if amount, err = decimal.NewFromString(categorizeValue); err != nil {
				return fmt.Errorf("amount %q: %w", categorizeValue, err)
			}
		}
		c := categorize.New(a.store, a.store, categorize.Policy{
			SimilarityThreshold: a.cfg.Categorizer.SimilarityThreshold,
			ConfidenceDamping:   a.cfg.Categorizer.ConfidenceDamping,
		}, a.log)
		s, err := c.Categorize(ctx, strings.Join(args, " "), amount)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if s.Source == categorize.SourceNone {
			fmt.Fprintln(out, "no suggestion")
			return nil
		}
		fmt.Fprintf(out, "category:   %s\n", s.Category)
		if s.Subcategory != "" {
			fmt.Fprintf(out, "sub:        %s\n", s.Subcategory)
		}
		if s.Entity != "" {
			fmt.Fprintf(out, "entity:     %s\n", s.Entity)
		}
		if len(s.Tags) > 0 {
			fmt.Fprintf(out, "tags:       %s\n", strings.Join(s.Tags, ", "))
		}
		fmt.Fprintf(out, "confidence: %.0f%%\n", s.Confidence*100)
		fmt.Fprintf(out, "reason:     %s\n", s.Reasoning)
		return nil
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List accounts and their balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "ACCOUNT\tTYPE\tSTATUS\tBALANCE\t")
		for _, acc := range a.store.Accounts() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\t\n", acc.Name, acc.Type, acc.Status, a.cfg.UI.CurrencySymbol, acc.Balance.StringFixed(2))
		}
		return w.Flush()
	},
}

var budgetsCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Show budget usage for a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		year, month, err := monthFlag(reportMonth, a.loc)
		if err != nil {
			return err
		}

		cur := a.cfg.UI.CurrencySymbol
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%d-%02d\n", year, month)
		fmt.Fprintln(w, "CATEGORY\tSPENT\tLIMIT\tREMAINING\tUSED\t")
		for _, b := range a.store.Budgets() {
			if b.Year != year || b.Month != month {
				continue
			}
			flag := ""
			if b.OverBudget() {
				flag = " over"
			}
			fmt.Fprintf(w, "%s\t%s%s\t%s%s\t%s%s\t%.0f%%%s\t\n", b.Category,
				cur, b.Spent.StringFixed(2), cur, b.Limit.StringFixed(2), cur, b.Remaining().StringFixed(2),
				b.Progress()*100, flag)
		}
		return w.Flush()
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Total income and expense per category for a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		year, month, err := monthFlag(reportMonth, a.loc)
		if err != nil {
			return err
		}

		cur := a.cfg.UI.CurrencySymbol
		s := ledger.MonthSummary(a.store.Snapshot(), year, month)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tINCOME\tEXPENSE\t")
		for _, c := range s.ByCategory {
			fmt.Fprintf(w, "%s\t%s%s\t%s%s\t\n", c.Category, cur, c.Income.StringFixed(2), cur, c.Expense.StringFixed(2))
		}
		fmt.Fprintf(w, "TOTAL\t%s%s\t%s%s\t\n", cur, s.Income.StringFixed(2), cur, s.Expense.StringFixed(2))
		fmt.Fprintf(w, "NET\t%s%s\t\t\n", cur, s.Net.StringFixed(2))
		return w.Flush()
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute balances and budgets and report drift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		drift := ledger.Verify(a.store.Snapshot())
		for _, d := range drift {
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
		}
		if len(drift) > 0 {
			return fmt.Errorf("%d aggregates out of step", len(drift))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("reset deletes every saved transaction; pass --yes to confirm")
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		if a.db == nil {
			return fmt.Errorf("snapshots are disabled (database.snapshot = false)")
		}
		if err := database.Reset(ctx, a.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "snapshot cleared")
		return nil
	},
}

func init() {
	categorizeCmd.Flags().StringVar(&categorizeValue, "amount", "", "transaction amount")
	budgetsCmd.Flags().StringVar(&reportMonth, "month", "", "month as YYYY-MM (default current)")
	summaryCmd.Flags().StringVar(&reportMonth, "month", "", "month as YYYY-MM (default current)")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm")
}
