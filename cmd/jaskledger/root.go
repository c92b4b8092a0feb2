package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/jaskledger/internal/config"
	"github.com/jask/jaskledger/internal/database"
	"github.com/jask/jaskledger/internal/ledger"
	"github.com/jask/jaskledger/internal/logger"
	"github.com/jask/jaskledger/internal/refdata"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jaskledger",
	Short: "Import bank statements into a personal ledger",
	Long: `jaskledger parses bank statement text or uploads, suggests categories
from rules and past transactions, and keeps account balances and monthly
budgets in step with every committed transaction.

Example:
  jaskledger import --account "Conta à ordem" extrato.txt
  jaskledger balances
  jaskledger budgets --month 2024-01`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/jaskledger/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(importCmd, categorizeCmd, balancesCmd, budgetsCmd, summaryCmd, verifyCmd, resetCmd, configCmd)
}

// app is the state one command runs against.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	loc   *time.Location
	store *ledger.Store
	// db is nil unless snapshots are enabled.
	db *sql.DB
}

// openApp loads config, reference data and the snapshot, and puts the
// command logger on cmd's context.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	l := logger.New(level)
	if cfg.Log.Format == config.LogFormatJSON {
		l = logger.NewWithWriter(cmd.ErrOrStderr(), level)
	}
	ctx := logger.WithContext(cmd.Context(), l)
	cmd.SetContext(ctx)

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		l.Warn().Err(err).Str("timezone", cfg.UI.Timezone).Msg("using local timezone")
		loc = time.Local
	}

	a := &app{cfg: cfg, log: l, loc: loc}
	initial := ledger.State{}
	if cfg.Database.Snapshot {
		a.db, err = database.OpenMigrated(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		initial, err = database.LoadSnapshot(ctx, a.db)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		l.Debug().Str("path", cfg.Database.Path).Int("transactions", len(initial.Transactions)).Msg("snapshot loaded")
	}
	a.store = ledger.NewStore(initial, l)

	ref, err := refdata.Load(cfg.RefData.Path)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("refdata: %w", err)
	}
	if len(ref.Categories) == 0 && len(initial.Categories) == 0 {
		ref.Categories = refdata.Defaults().Categories
	}
	applied, err := refdata.Apply(a.store, ref)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("refdata %s: %w", cfg.RefData.Path, err)
	}
	l.Debug().
		Int("added", applied.Added).
		Int("updated", applied.Updated).
		Int("ignored", applied.Ignored).
		Str("path", cfg.RefData.Path).
		Msg("reference data applied")
	return a, nil
}

// save writes the store back when snapshots are enabled.
func (a *app) save(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	if err := database.SaveSnapshot(ctx, a.db, a.store.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	a.log.Debug().Msg("snapshot saved")
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// resolveAccount accepts an account ID or name.
func (a *app) resolveAccount(ref string) (string, error) {
	if acc, ok := a.store.Account(ref); ok {
		return acc.ID, nil
	}
	if acc, ok := a.store.Account(ledger.AccountID(ref)); ok {
		return acc.ID, nil
	}
	return "", fmt.Errorf("account %q: %w", ref, ledger.ErrNotFound)
}

// monthFlag parses YYYY-MM, defaulting to the current month in loc.
func monthFlag(s string, loc *time.Location) (int, time.Month, error) {
	if s == "" {
		now := time.Now().In(loc)
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q is not YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}
