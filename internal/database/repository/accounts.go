package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jask/jaskledger/internal/domain"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

// ReplaceAll deletes every stored account and inserts accs in order.
func (r *AccountRepo) ReplaceAll(ctx context.Context, accs []domain.Account) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return err
	}
	for i, a := range accs {
		history, err := json.Marshal(a.StatusHistory)
		if err != nil {
			return fmt.Errorf("account %s status history: %w", a.ID, err)
		}
		format, err := encodeUploadFormat(a.UploadFormat)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.ID, err)
		}
		_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts(id, position, name, account_type, balance, initial_balance, initial_date,
		 currency, status, status_history, upload_format)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, i, a.Name, string(a.Type), a.Balance.String(), a.InitialBalance.String(), formatDate(a.InitialDate),
			a.Currency, string(a.Status), string(history), format)
		if err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, account_type, balance, initial_balance, COALESCE(initial_date, ''), currency,
	 status, status_history, upload_format
	FROM accounts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Account
	for rows.Next() {
		var (
			a                             domain.Account
			typ, status, history          string
			balance, initial, initialDate string
			format                        sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &typ, &balance, &initial, &initialDate, &a.Currency, &status, &history, &format); err != nil {
			return nil, err
		}
		a.Type, a.Status = domain.AccountType(typ), domain.AccountStatus(status)
		if a.Balance, err = parseDecimal("balance", balance); err != nil {
			return nil, err
		}
		if a.InitialBalance, err = parseDecimal("initial_balance", initial); err != nil {
			return nil, err
		}
		if a.InitialDate, err = parseDate(initialDate); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(history), &a.StatusHistory); err != nil {
			return nil, fmt.Errorf("account %s status history: %w", a.ID, err)
		}
		if a.UploadFormat, err = decodeUploadFormat(format); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
