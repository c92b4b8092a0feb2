package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jask/jaskledger/internal/domain"
)

// BudgetRepo handles monthly budgets.
type BudgetRepo struct{ db DBTX }

func NewBudgetRepo(db DBTX) *BudgetRepo { return &BudgetRepo{db: db} }

func (r *BudgetRepo) ReplaceAll(ctx context.Context, budgets []domain.Budget) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
		return err
	}
	for i, b := range budgets {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets(id, position, category, limit_amount, spent, month, year) VALUES(?, ?, ?, ?, ?, ?, ?)
		`, b.ID, i, b.Category, b.Limit.String(), b.Spent.String(), int(b.Month), b.Year)
		if err != nil {
			return fmt.Errorf("insert budget %s: %w", b.ID, err)
		}
	}
	return nil
}

func (r *BudgetRepo) List(ctx context.Context) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category, limit_amount, spent, month, year FROM budgets ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Budget
	for rows.Next() {
		var (
			b            domain.Budget
			limit, spent string
			month        int
		)
		if err := rows.Scan(&b.ID, &b.Category, &limit, &spent, &month, &b.Year); err != nil {
			return nil, err
		}
		b.Month = time.Month(month)
		if b.Limit, err = parseDecimal("limit_amount", limit); err != nil {
			return nil, err
		}
		if b.Spent, err = parseDecimal("spent", spent); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
