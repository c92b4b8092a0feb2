package repository

import (
	"context"
	"fmt"

	"github.com/jask/jaskledger/internal/domain"
)

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

// ReplaceAll deletes every stored transaction and inserts txs in order.
func (r *TransactionRepo) ReplaceAll(ctx context.Context, txs []domain.Transaction) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	for i, t := range txs {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions(
		 id, position, type, amount, description, entity, category, subcategory, tags, location,
		 account_id, destination_account_id, date, recurrence_id, ai_processed, confidence)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`,
			t.ID, i, string(t.Type), t.Amount.String(), t.Description, t.Entity, t.Category, t.Subcategory,
			encodeList(t.Tags), t.Location, t.AccountID, t.DestinationAccountID, formatDate(t.Date),
			t.RecurrenceID, boolInt(t.AIProcessed), t.Confidence)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, type, amount, description, entity, category, subcategory, tags, location,
	 account_id, destination_account_id, date, recurrence_id, ai_processed, confidence
	FROM transactions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			t                       domain.Transaction
			typ, amount, tags, date string
			aiProcessed             int
		)
		if err := rows.Scan(&t.ID, &typ, &amount, &t.Description, &t.Entity, &t.Category, &t.Subcategory, &tags,
			&t.Location, &t.AccountID, &t.DestinationAccountID, &date, &t.RecurrenceID, &aiProcessed, &t.Confidence); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.AIProcessed = aiProcessed != 0
		if t.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		if t.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if t.Tags, err = decodeList(tags); err != nil {
			return nil, fmt.Errorf("transaction %s tags: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
