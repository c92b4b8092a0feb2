package ledger

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/jaskledger/internal/domain"
)

// Store owns the current State for the application. All changes go through
// Dispatch; readers get copies.
type Store struct {
	Log zerolog.Logger

	mu    sync.RWMutex
	state State
}

// NewStore wraps initial as the current state.
func NewStore(initial State, l zerolog.Logger) *Store {
	return &Store{Log: l, state: initial.Clone()}
}

// Dispatch reduces a into the current state. The state is unchanged when a
// is rejected.
func (s *Store) Dispatch(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Reduce(s.state, a)
	if err != nil {
		s.Log.Debug().Err(err).Str("action", fmt.Sprintf("%T", a)).Msg("action rejected")
		return err
	}
	s.state = next
	s.Log.Debug().Str("action", fmt.Sprintf("%T", a)).Msg("action applied")
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace swaps the whole state, e.g. after loading a saved snapshot.
func (s *Store) Replace(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.Clone()
}

func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Transactions)
}

func (s *Store) Rules() []domain.AIRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Rules)
}

func (s *Store) Accounts() []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Accounts)
}

func (s *Store) Budgets() []domain.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Budgets)
}

// Account returns the account with id.
func (s *Store) Account(id string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Account(id)
}

// AddTransaction commits t, assigning an ID when it has none.
func (s *Store) AddTransaction(t domain.Transaction) (domain.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.Dispatch(AddTransaction{Transaction: t}); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(t domain.Transaction) error {
	return s.Dispatch(UpdateTransaction{Transaction: t})
}

func (s *Store) DeleteTransaction(id string) error {
	return s.Dispatch(DeleteTransaction{ID: id})
}

// AddAccount creates an account. Without an ID, one is derived from the
// name so the same account declared twice collides.
func (s *Store) AddAccount(a domain.Account) (domain.Account, error) {
	if a.ID == "" {
		a.ID = AccountID(a.Name)
	}
	if err := s.Dispatch(AddAccount{Account: a}); err != nil {
		return domain.Account{}, err
	}
	acc, _ := s.Account(a.ID)
	return acc, nil
}

// ArchiveAccount marks an account archived; it then rejects new transactions.
func (s *Store) ArchiveAccount(id, reason string, at time.Time) error {
	return s.Dispatch(SetAccountStatus{ID: id, Status: domain.StatusArchived, At: at, Reason: reason})
}

// ReactivateAccount reverses ArchiveAccount.
func (s *Store) ReactivateAccount(id, reason string, at time.Time) error {
	return s.Dispatch(SetAccountStatus{ID: id, Status: domain.StatusActive, At: at, Reason: reason})
}

// AddBudget creates a budget, assigning an ID when it has none.
func (s *Store) AddBudget(b domain.Budget) (domain.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := s.Dispatch(AddBudget{Budget: b}); err != nil {
		return domain.Budget{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := slices.IndexFunc(s.state.Budgets, func(x domain.Budget) bool { return x.ID == b.ID }); i >= 0 {
		return s.state.Budgets[i], nil
	}
	return b, nil
}

// AddRule creates a rule, assigning an ID when it has none.
func (s *Store) AddRule(r domain.AIRule) (domain.AIRule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.Dispatch(AddRule{Rule: r}); err != nil {
		return domain.AIRule{}, err
	}
	return r, nil
}

// AccountID derives a stable account ID from its name, ignoring case.
func AccountID(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
