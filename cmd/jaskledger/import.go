package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/jaskledger/internal/categorize"
	"github.com/jask/jaskledger/internal/service"
	"github.com/jask/jaskledger/internal/tui"
)

var (
	importAccount string
	importYes     bool
	importUpload  bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Parse a statement, review the lines and commit them",
	Long: `Parse statement text from a file (or stdin when no file or "-" is given),
suggest a category for every line and open the review screen. Accepted
lines are committed to the ledger; lines that look like existing
transactions start rejected.

With --upload the file is read with the account's upload format (PDF,
Excel or CSV) instead of as pasted text.

Example:
  pbpaste | jaskledger import --account "Conta à ordem"
  jaskledger import --account Cartão --upload fatura.pdf --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importAccount, "account", "a", "", "account name or ID (required)")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "commit the suggested drafts without review")
	importCmd.Flags().BoolVar(&importUpload, "upload", false, "read the file with the account's upload format")
	_ = importCmd.MarkFlagRequired("account")
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	accountID, err := a.resolveAccount(importAccount)
	if err != nil {
		return err
	}
	svc := service.NewImportService(a.store,
		categorize.Policy{
			SimilarityThreshold: a.cfg.Categorizer.SimilarityThreshold,
			ConfidenceDamping:   a.cfg.Categorizer.ConfidenceDamping,
		},
		service.DuplicatePolicy{
			WindowDays:  a.cfg.Import.DuplicateWindowDays,
			MaxDistance: a.cfg.Import.DuplicateDistance,
		},
		a.log,
	)

	var preview service.Preview
	if importUpload {
		if len(args) == 0 || args[0] == "-" {
			return fmt.Errorf("--upload needs a file")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		preview, err = svc.PreviewUpload(ctx, f, info.Size(), accountID)
		if err != nil {
			return err
		}
	} else {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		preview, err = svc.Preview(ctx, text, accountID)
		if err != nil {
			return err
		}
	}
	if len(preview.Drafts) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no transactions found (%d lines skipped)\n", len(preview.Skipped))
		return nil
	}

	var res service.IngestResult
	if importYes {
		res, err = svc.Commit(ctx, preview.Drafts)
		if err != nil {
			return err
		}
	} else {
		review := tui.NewReview(ctx, svc, preview, a.cfg.UI.CurrencySymbol, a.cfg.UI.DateFormat)
		if _, err := tea.NewProgram(review, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("review: %w", err)
		}
		if review.Aborted() {
			fmt.Fprintln(cmd.OutOrStdout(), "import aborted, nothing committed")
			return nil
		}
		if err := review.Err(); err != nil {
			return err
		}
		res, _ = review.Result()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %v\n", e)
	}
	return a.save(ctx)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	return string(b), err
}
