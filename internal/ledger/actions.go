package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// Action is a state change understood by Reduce.
type Action interface {
	apply(s *State) error
}

// Reduce returns the state that results from applying a to s. The input
// state is never modified; on error the returned state is s.
func Reduce(s State, a Action) (State, error) {
	if a == nil {
		return s, fmt.Errorf("%w: nil action", domain.ErrValidation)
	}
	next := s.Clone()
	if err := a.apply(&next); err != nil {
		return s, err
	}
	return next, nil
}

type (
	AddTransaction    struct{ Transaction domain.Transaction }
	UpdateTransaction struct{ Transaction domain.Transaction }
	DeleteTransaction struct{ ID string }

	AddAccount    struct{ Account domain.Account }
	UpdateAccount struct{ Account domain.Account }
	DeleteAccount struct{ ID string }

	// SetAccountStatus archives or reactivates an account and records the
	// change in its status history.
	SetAccountStatus struct {
		ID     string
		Status domain.AccountStatus
		At     time.Time
		Reason string
	}

	AddBudget    struct{ Budget domain.Budget }
	UpdateBudget struct{ Budget domain.Budget }
	DeleteBudget struct{ ID string }

	AddRule    struct{ Rule domain.AIRule }
	UpdateRule struct{ Rule domain.AIRule }
	DeleteRule struct{ ID string }

	AddEntity    struct{ Entity domain.Entity }
	DeleteEntity struct{ ID string }

	AddCategory    struct{ Category domain.Category }
	DeleteCategory struct{ ID string }

	AddRecurring    struct{ Recurring domain.RecurringTransaction }
	DeleteRecurring struct{ ID string }
)

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", domain.ErrValidation, kind)
	}
	return nil
}

// transactions

func (a AddTransaction) apply(s *State) error {
	t := a.Transaction
	if err := requireID("transaction", t.ID); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if s.transactionIndex(t.ID) >= 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrDuplicate)
	}
	if err := checkAccounts(s, t); err != nil {
		return err
	}
	if err := s.effect(t, 1); err != nil {
		return err
	}
	s.Transactions = append(s.Transactions, t)
	return nil
}

func (a UpdateTransaction) apply(s *State) error {
	t := a.Transaction
	i := s.transactionIndex(t.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, ErrNotFound)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	old := s.Transactions[i]
	if t.AccountID != old.AccountID || t.DestinationAccountID != old.DestinationAccountID {
		if err := checkAccounts(s, t); err != nil {
			return err
		}
	}
	if err := s.effect(old, -1); err != nil {
		return err
	}
	if err := s.effect(t, 1); err != nil {
		return err
	}
	s.Transactions[i] = t
	return nil
}

func (a DeleteTransaction) apply(s *State) error {
	i := s.transactionIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", a.ID, ErrNotFound)
	}
	if err := s.effect(s.Transactions[i], -1); err != nil {
		return err
	}
	s.Transactions = slices.Delete(s.Transactions, i, i+1)
	return nil
}

// checkAccounts requires the accounts a new transaction touches to exist and
// be active.
func checkAccounts(s *State, t domain.Transaction) error {
	ids := []string{t.AccountID}
	if t.Type == domain.Transfer {
		ids = append(ids, t.DestinationAccountID)
	}
	for _, id := range ids {
		acc, ok := s.Account(id)
		if !ok {
			return fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		if acc.Status == domain.StatusArchived {
			return fmt.Errorf("account %s: %w", acc.Name, ErrAccountArchived)
		}
	}
	return nil
}

// effect applies the balance and budget consequences of t, scaled by sign
// (+1 on commit, -1 to undo). Income adds to the account, expense subtracts
// and counts against the budget covering its date, a transfer moves the
// amount from source to destination.
func (s *State) effect(t domain.Transaction, sign int64) error {
	amt := t.Amount.Mul(decimal.NewFromInt(sign))
	switch t.Type {
	case domain.Income:
		return s.adjustBalance(t.AccountID, amt)
	case domain.Expense:
		if err := s.adjustBalance(t.AccountID, amt.Neg()); err != nil {
			return err
		}
		if i := s.budgetIndex(t.Category, t.Date.Month(), t.Date.Year(), ""); i >= 0 {
			s.Budgets[i].Spent = s.Budgets[i].Spent.Add(amt)
		}
		return nil
	case domain.Transfer:
		if err := s.adjustBalance(t.AccountID, amt.Neg()); err != nil {
			return err
		}
		return s.adjustBalance(t.DestinationAccountID, amt)
	default:
		return fmt.Errorf("%w: type %q", domain.ErrValidation, t.Type)
	}
}

func (s *State) adjustBalance(accountID string, delta decimal.Decimal) error {
	i := s.accountIndex(accountID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	s.Accounts[i].Balance = s.Accounts[i].Balance.Add(delta)
	return nil
}

// accounts

func (a AddAccount) apply(s *State) error {
	acc := a.Account
	if err := requireID("account", acc.ID); err != nil {
		return err
	}
	if err := acc.Validate(); err != nil {
		return err
	}
	if s.accountIndex(acc.ID) >= 0 {
		return fmt.Errorf("account %s: %w", acc.ID, ErrDuplicate)
	}
	if acc.Status == "" {
		acc.Status = domain.StatusActive
	}
	acc.Balance = acc.InitialBalance
	acc.StatusHistory = slices.Clone(acc.StatusHistory)
	s.Accounts = append(s.Accounts, acc)
	return nil
}

// apply keeps the balance derived: a new initial balance shifts it by the
// difference. Status goes through SetAccountStatus.
func (a UpdateAccount) apply(s *State) error {
	acc := a.Account
	i := s.accountIndex(acc.ID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", acc.ID, ErrNotFound)
	}
	if err := acc.Validate(); err != nil {
		return err
	}
	old := s.Accounts[i]
	acc.Balance = old.Balance.Add(acc.InitialBalance.Sub(old.InitialBalance))
	acc.Status = old.Status
	acc.StatusHistory = old.StatusHistory
	s.Accounts[i] = acc
	return nil
}

func (a DeleteAccount) apply(s *State) error {
	i := s.accountIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", a.ID, ErrNotFound)
	}
	if s.accountInUse(a.ID) {
		return fmt.Errorf("account %s: %w", s.Accounts[i].Name, ErrAccountInUse)
	}
	s.Accounts = slices.Delete(s.Accounts, i, i+1)
	return nil
}

func (a SetAccountStatus) apply(s *State) error {
	i := s.accountIndex(a.ID)
	if i < 0 {
		return fmt.Errorf("account %s: %w", a.ID, ErrNotFound)
	}
	if a.Status != domain.StatusActive && a.Status != domain.StatusArchived {
		return fmt.Errorf("%w: status %q", domain.ErrValidation, a.Status)
	}
	acc := &s.Accounts[i]
	if acc.Status == a.Status {
		return nil
	}
	acc.Status = a.Status
	history := slices.Clone(acc.StatusHistory)
	acc.StatusHistory = append(history, domain.StatusChange{Status: a.Status, At: a.At, Reason: a.Reason})
	return nil
}

// budgets

// apply derives Spent from the expenses already committed in the window.
func (a AddBudget) apply(s *State) error {
	b := a.Budget
	if err := requireID("budget", b.ID); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(s.Budgets, func(x domain.Budget) bool { return x.ID == b.ID }) {
		return fmt.Errorf("budget %s: %w", b.ID, ErrDuplicate)
	}
	if s.budgetIndex(b.Category, b.Month, b.Year, "") >= 0 {
		return fmt.Errorf("budget %s %d-%02d: %w", b.Category, b.Year, b.Month, ErrDuplicate)
	}
	b.Spent = s.spentIn(b.Category, b.Month, b.Year)
	s.Budgets = append(s.Budgets, b)
	return nil
}

func (a UpdateBudget) apply(s *State) error {
	b := a.Budget
	i := slices.IndexFunc(s.Budgets, func(x domain.Budget) bool { return x.ID == b.ID })
	if i < 0 {
		return fmt.Errorf("budget %s: %w", b.ID, ErrNotFound)
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if s.budgetIndex(b.Category, b.Month, b.Year, b.ID) >= 0 {
		return fmt.Errorf("budget %s %d-%02d: %w", b.Category, b.Year, b.Month, ErrDuplicate)
	}
	b.Spent = s.spentIn(b.Category, b.Month, b.Year)
	s.Budgets[i] = b
	return nil
}

func (a DeleteBudget) apply(s *State) error {
	i := slices.IndexFunc(s.Budgets, func(x domain.Budget) bool { return x.ID == a.ID })
	if i < 0 {
		return fmt.Errorf("budget %s: %w", a.ID, ErrNotFound)
	}
	s.Budgets = slices.Delete(s.Budgets, i, i+1)
	return nil
}

// rules

func (a AddRule) apply(s *State) error {
	r := a.Rule
	if err := requireID("rule", r.ID); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(s.Rules, func(x domain.AIRule) bool { return x.ID == r.ID }) {
		return fmt.Errorf("rule %s: %w", r.ID, ErrDuplicate)
	}
	s.Rules = append(s.Rules, r)
	return nil
}

func (a UpdateRule) apply(s *State) error {
	i := slices.IndexFunc(s.Rules, func(x domain.AIRule) bool { return x.ID == a.Rule.ID })
	if i < 0 {
		return fmt.Errorf("rule %s: %w", a.Rule.ID, ErrNotFound)
	}
	if err := a.Rule.Validate(); err != nil {
		return err
	}
	s.Rules[i] = a.Rule
	return nil
}

func (a DeleteRule) apply(s *State) error {
	i := slices.IndexFunc(s.Rules, func(x domain.AIRule) bool { return x.ID == a.ID })
	if i < 0 {
		return fmt.Errorf("rule %s: %w", a.ID, ErrNotFound)
	}
	s.Rules = slices.Delete(s.Rules, i, i+1)
	return nil
}

// reference data

func (a AddEntity) apply(s *State) error {
	e := a.Entity
	if err := requireID("entity", e.ID); err != nil {
		return err
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: entity name is required", domain.ErrValidation)
	}
	if slices.ContainsFunc(s.Entities, func(x domain.Entity) bool { return x.ID == e.ID || sameName(x.Name, e.Name) }) {
		return fmt.Errorf("entity %s: %w", e.Name, ErrDuplicate)
	}
	s.Entities = append(s.Entities, e)
	return nil
}

func (a DeleteEntity) apply(s *State) error {
	i := slices.IndexFunc(s.Entities, func(x domain.Entity) bool { return x.ID == a.ID })
	if i < 0 {
		return fmt.Errorf("entity %s: %w", a.ID, ErrNotFound)
	}
	s.Entities = slices.Delete(s.Entities, i, i+1)
	return nil
}

func (a AddCategory) apply(s *State) error {
	c := a.Category
	if err := requireID("category", c.ID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", domain.ErrValidation)
	}
	if slices.ContainsFunc(s.Categories, func(x domain.Category) bool { return x.ID == c.ID || sameName(x.Name, c.Name) }) {
		return fmt.Errorf("category %s: %w", c.Name, ErrDuplicate)
	}
	c.Subcategories = slices.Clone(c.Subcategories)
	s.Categories = append(s.Categories, c)
	return nil
}

// apply leaves transactions and budgets naming the category untouched.
func (a DeleteCategory) apply(s *State) error {
	i := slices.IndexFunc(s.Categories, func(x domain.Category) bool { return x.ID == a.ID })
	if i < 0 {
		return fmt.Errorf("category %s: %w", a.ID, ErrNotFound)
	}
	s.Categories = slices.Delete(s.Categories, i, i+1)
	return nil
}

func (a AddRecurring) apply(s *State) error {
	r := a.Recurring
	if err := requireID("recurring", r.ID); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if slices.ContainsFunc(s.Recurring, func(x domain.RecurringTransaction) bool { return x.ID == r.ID }) {
		return fmt.Errorf("recurring %s: %w", r.ID, ErrDuplicate)
	}
	if r.AccountID != "" && s.accountIndex(r.AccountID) < 0 {
		return fmt.Errorf("account %s: %w", r.AccountID, ErrNotFound)
	}
	s.Recurring = append(s.Recurring, r)
	return nil
}

func (a DeleteRecurring) apply(s *State) error {
	i := slices.IndexFunc(s.Recurring, func(x domain.RecurringTransaction) bool { return x.ID == a.ID })
	if i < 0 {
		return fmt.Errorf("recurring %s: %w", a.ID, ErrNotFound)
	}
	s.Recurring = slices.Delete(s.Recurring, i, i+1)
	return nil
}
