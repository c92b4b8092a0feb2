package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/jaskledger/internal/domain"
)

// RecurringRepo handles recurring transaction templates.
type RecurringRepo struct{ db DBTX }

func NewRecurringRepo(db DBTX) *RecurringRepo { return &RecurringRepo{db: db} }

func (r *RecurringRepo) ReplaceAll(ctx context.Context, items []domain.RecurringTransaction) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recurring`); err != nil {
		return err
	}
	for i, rt := range items {
		var end sql.NullString
		if rt.EndDate != nil {
			end = sql.NullString{String: formatDate(*rt.EndDate), Valid: true}
		}
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring(id, position, description, type, amount, frequency, account_id, category,
		 start_date, end_date, active)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rt.ID, i, rt.Description, string(rt.Type), rt.Amount.String(), string(rt.Frequency), rt.AccountID,
			rt.Category, formatDate(rt.StartDate), end, boolInt(rt.Active))
		if err != nil {
			return fmt.Errorf("insert recurring %s: %w", rt.ID, err)
		}
	}
	return nil
}

func (r *RecurringRepo) List(ctx context.Context) ([]domain.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, description, type, amount, frequency, account_id, category, start_date, end_date, active
	FROM recurring ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.RecurringTransaction
	for rows.Next() {
		var (
			rt                       domain.RecurringTransaction
			typ, amount, freq, start string
			end                      sql.NullString
			active                   int
		)
		if err := rows.Scan(&rt.ID, &rt.Description, &typ, &amount, &freq, &rt.AccountID, &rt.Category,
			&start, &end, &active); err != nil {
			return nil, err
		}
		rt.Type, rt.Frequency, rt.Active = domain.TransactionType(typ), domain.Frequency(freq), active != 0
		if rt.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		if rt.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if end.Valid {
			d, err := parseDate(end.String)
			if err != nil {
				return nil, err
			}
			rt.EndDate = &d
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
