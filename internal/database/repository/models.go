package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// DBTX is satisfied by *sql.DB and *sql.Tx, so repos work inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const dateLayout = time.DateOnly

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("column %s: %w", column, err)
	}
	return d, nil
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	var out []string
	if s == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// uploadFormat is the stored shape of a domain.UploadFormat: the kind plus
// the one variant it names.
type uploadFormat struct {
	Kind  domain.FormatKind   `json:"kind"`
	PDF   *domain.PDFFormat   `json:"pdf,omitempty"`
	Excel *domain.ExcelFormat `json:"excel,omitempty"`
	CSV   *domain.CSVFormat   `json:"csv,omitempty"`
}

func encodeUploadFormat(f domain.UploadFormat) (sql.NullString, error) {
	var u uploadFormat
	switch v := f.(type) {
	case nil:
		return sql.NullString{}, nil
	case domain.PDFFormat:
		u = uploadFormat{Kind: v.Kind(), PDF: &v}
	case domain.ExcelFormat:
		u = uploadFormat{Kind: v.Kind(), Excel: &v}
	case domain.CSVFormat:
		u = uploadFormat{Kind: v.Kind(), CSV: &v}
	default:
		return sql.NullString{}, fmt.Errorf("unknown upload format %T", f)
	}
	b, err := json.Marshal(u)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeUploadFormat(s sql.NullString) (domain.UploadFormat, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var u uploadFormat
	if err := json.Unmarshal([]byte(s.String), &u); err != nil {
		return nil, fmt.Errorf("upload format: %w", err)
	}
	switch {
	case u.Kind == domain.FormatPDF && u.PDF != nil:
		return *u.PDF, nil
	case u.Kind == domain.FormatExcel && u.Excel != nil:
		return *u.Excel, nil
	case u.Kind == domain.FormatCSV && u.CSV != nil:
		return *u.CSV, nil
	}
	return nil, fmt.Errorf("upload format: kind %q has no matching settings", u.Kind)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
