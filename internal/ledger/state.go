// Package ledger holds the application state: accounts, transactions,
// budgets and reference data. State changes only through Reduce, which keeps
// account balances and budget totals consistent with the committed
// transactions.
package ledger

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrAccountInUse    = errors.New("account is referenced by transactions")
	ErrAccountArchived = errors.New("account is archived")
)

// State is one immutable version of the ledger. Slices keep insertion order.
type State struct {
	Accounts     []domain.Account
	Transactions []domain.Transaction
	Budgets      []domain.Budget
	Entities     []domain.Entity
	Categories   []domain.Category
	Rules        []domain.AIRule
	Recurring    []domain.RecurringTransaction
}

// Clone copies every slice so the result can be modified without touching s.
// Nested slices are shared; code that changes them must copy first.
func (s State) Clone() State {
	return State{
		Accounts:     slices.Clone(s.Accounts),
		Transactions: slices.Clone(s.Transactions),
		Budgets:      slices.Clone(s.Budgets),
		Entities:     slices.Clone(s.Entities),
		Categories:   slices.Clone(s.Categories),
		Rules:        slices.Clone(s.Rules),
		Recurring:    slices.Clone(s.Recurring),
	}
}

// Account looks an account up by ID.
func (s State) Account(id string) (domain.Account, bool) {
	i := s.accountIndex(id)
	if i < 0 {
		return domain.Account{}, false
	}
	return s.Accounts[i], true
}

// Transaction looks a transaction up by ID.
func (s State) Transaction(id string) (domain.Transaction, bool) {
	i := s.transactionIndex(id)
	if i < 0 {
		return domain.Transaction{}, false
	}
	return s.Transactions[i], true
}

// BudgetFor returns the budget of category covering date, if any.
func (s State) BudgetFor(category string, date time.Time) (domain.Budget, bool) {
	i := s.budgetIndex(category, date.Month(), date.Year(), "")
	if i < 0 {
		return domain.Budget{}, false
	}
	return s.Budgets[i], true
}

func (s State) accountIndex(id string) int {
	return slices.IndexFunc(s.Accounts, func(a domain.Account) bool { return a.ID == id })
}

func (s State) transactionIndex(id string) int {
	return slices.IndexFunc(s.Transactions, func(t domain.Transaction) bool { return t.ID == id })
}

// budgetIndex finds the budget for (category, month, year), ignoring the
// budget with ID except.
func (s State) budgetIndex(category string, month time.Month, year int, except string) int {
	return slices.IndexFunc(s.Budgets, func(b domain.Budget) bool {
		return b.ID != except && b.Month == month && b.Year == year && sameName(b.Category, category)
	})
}

// spentIn sums committed expenses of category within the month.
func (s State) spentIn(category string, month time.Month, year int) decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.Transactions {
		if t.Type == domain.Expense && t.Date.Month() == month && t.Date.Year() == year && sameName(t.Category, category) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

func (s State) accountInUse(id string) bool {
	for _, t := range s.Transactions {
		if t.AccountID == id || t.DestinationAccountID == id {
			return true
		}
	}
	for _, r := range s.Recurring {
		if r.AccountID == id {
			return true
		}
	}
	return false
}

func sameName(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
