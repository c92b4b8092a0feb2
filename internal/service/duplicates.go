package service

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// DuplicatePolicy bounds when an imported line looks like a row already in
// the ledger.
type DuplicatePolicy struct {
	WindowDays int
	// MaxDistance is the exclusive upper bound of the normalized edit distance.
	MaxDistance float64
}

// DefaultDuplicatePolicy returns a one week window and a 0.4 distance.
func DefaultDuplicatePolicy() DuplicatePolicy {
	return DuplicatePolicy{WindowDays: 7, MaxDistance: 0.4}
}

type duplicateKey struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Type        domain.TransactionType
	AccountID   string
	Date        time.Time
}

// looksDuplicate reports a probable duplicate: same account, type and
// amount, dates within the window and similar descriptions.
func (p DuplicatePolicy) looksDuplicate(a, b duplicateKey) bool {
	if a.AccountID != b.AccountID || a.Type != b.Type || !a.Amount.Equal(b.Amount) {
		return false
	}
	if daysApart(a.Date, b.Date) > p.WindowDays {
		return false
	}
	return descriptionDistance(a.Description, b.Description) < p.MaxDistance
}

// descriptionDistance is the case-insensitive edit distance divided by the
// longer length, in runes.
func descriptionDistance(a, b string) float64 {
	a, b = strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))
	maxlen := max(len([]rune(a)), len([]rune(b)))
	if maxlen == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(maxlen)
}

func daysApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

func keyOf(t domain.Transaction) duplicateKey {
	return duplicateKey{ID: t.ID, Description: t.Description, Amount: t.Amount, Type: t.Type, AccountID: t.AccountID, Date: t.Date}
}
