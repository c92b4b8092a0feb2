package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jask/jaskledger/internal/database/repository"
	"github.com/jask/jaskledger/internal/ledger"
	"github.com/jask/jaskledger/internal/logger"
)

// snapshotTables lists every table a snapshot owns, children first.
var snapshotTables = []string{
	"snapshot_meta",
	"recurring",
	"rules",
	"categories",
	"entities",
	"budgets",
	"transactions",
	"accounts",
}

// SaveSnapshot replaces the stored ledger with s in one transaction.
func SaveSnapshot(ctx context.Context, db *sql.DB, s ledger.State) error {
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := repository.NewAccountRepo(tx).ReplaceAll(ctx, s.Accounts); err != nil {
			return fmt.Errorf("save accounts: %w", err)
		}
		if err := repository.NewTransactionRepo(tx).ReplaceAll(ctx, s.Transactions); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
		if err := repository.NewBudgetRepo(tx).ReplaceAll(ctx, s.Budgets); err != nil {
			return fmt.Errorf("save budgets: %w", err)
		}
		if err := repository.NewEntityRepo(tx).ReplaceAll(ctx, s.Entities); err != nil {
			return fmt.Errorf("save entities: %w", err)
		}
		if err := repository.NewCategoryRepo(tx).ReplaceAll(ctx, s.Categories); err != nil {
			return fmt.Errorf("save categories: %w", err)
		}
		if err := repository.NewRuleRepo(tx).ReplaceAll(ctx, s.Rules); err != nil {
			return fmt.Errorf("save rules: %w", err)
		}
		if err := repository.NewRecurringRepo(tx).ReplaceAll(ctx, s.Recurring); err != nil {
			return fmt.Errorf("save recurring: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta(id, saved_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at=excluded.saved_at`, Now().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Int("accounts", len(s.Accounts)).
		Int("transactions", len(s.Transactions)).
		Int("budgets", len(s.Budgets)).
		Msg("snapshot written")
	return nil
}

// LoadSnapshot rebuilds the stored ledger. An empty database yields an
// empty State.
func LoadSnapshot(ctx context.Context, db *sql.DB) (ledger.State, error) {
	var (
		s   ledger.State
		err error
	)
	if s.Accounts, err = repository.NewAccountRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load accounts: %w", err)
	}
	if s.Transactions, err = repository.NewTransactionRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load transactions: %w", err)
	}
	if s.Budgets, err = repository.NewBudgetRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load budgets: %w", err)
	}
	if s.Entities, err = repository.NewEntityRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load entities: %w", err)
	}
	if s.Categories, err = repository.NewCategoryRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load categories: %w", err)
	}
	if s.Rules, err = repository.NewRuleRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load rules: %w", err)
	}
	if s.Recurring, err = repository.NewRecurringRepo(db).List(ctx); err != nil {
		return ledger.State{}, fmt.Errorf("load recurring: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Int("accounts", len(s.Accounts)).
		Int("transactions", len(s.Transactions)).
		Msg("snapshot read")
	return s, nil
}

// SavedAt reports when the last snapshot was written; false when none was.
func SavedAt(ctx context.Context, db *sql.DB) (time.Time, bool, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT saved_at FROM snapshot_meta WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("snapshot_meta.saved_at: %w", err)
	}
	return t, true, nil
}

// Reset wipes the stored snapshot. It keeps the schema intact.
func Reset(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("reset: db not configured")
	}
	if err := WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, t := range snapshotTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		log.Warn().Err(err).Msg("vacuum after reset failed")
	}
	log.Info().Msg("snapshot cleared")
	return nil
}
