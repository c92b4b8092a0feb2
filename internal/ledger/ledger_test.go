package ledger

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/jaskledger/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seedState(t *testing.T) State {
	t.Helper()
	var s State
	var err error
	for _, a := range []Action{
		AddAccount{Account: domain.Account{ID: "A", Name: "Conta à ordem", Type: domain.Checking, InitialBalance: dec("1000"), Currency: "EUR"}},
		AddAccount{Account: domain.Account{ID: "B", Name: "Poupança", Type: domain.Savings, InitialBalance: dec("500"), Currency: "EUR"}},
		AddBudget{Budget: domain.Budget{ID: "food", Category: "Alimentação", Limit: dec("300"), Month: time.January, Year: 2024}},
	} {
		s, err = Reduce(s, a)
		require.NoError(t, err)
	}
	return s
}

func expense(id, category string, amount string, date time.Time) domain.Transaction {
	return domain.Transaction{ID: id, Type: domain.Expense, Amount: dec(amount), Description: "CONTINENTE LISBOA", Category: category, AccountID: "A", Date: date}
}

func balance(t *testing.T, s State, id string) decimal.Decimal {
	t.Helper()
	a, ok := s.Account(id)
	require.True(t, ok, id)
	return a.Balance
}

func spent(t *testing.T, s State, id string) decimal.Decimal {
	t.Helper()
	for _, b := range s.Budgets {
		if b.ID == id {
			return b.Spent
		}
	}
	t.Fatalf("budget %s not found", id)
	return decimal.Zero
}

func TestExpenseRoundTripRestoresBudgetAndBalance(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	beforeSpent, beforeBal := spent(t, s, "food"), balance(t, s, "A")

	s1, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "45.80", day(2024, time.January, 15))})
	require.NoError(t, err)
	require.True(t, beforeSpent.Add(dec("45.80")).Equal(spent(t, s1, "food")))
	require.True(t, beforeBal.Sub(dec("45.80")).Equal(balance(t, s1, "A")))

	s2, err := Reduce(s1, DeleteTransaction{ID: "t1"})
	require.NoError(t, err)
	require.True(t, beforeSpent.Equal(spent(t, s2, "food")))
	require.True(t, beforeBal.Equal(balance(t, s2, "A")))
	require.Empty(t, s2.Transactions)
	require.Empty(t, Verify(s2))
}

func TestTransferConservesTotal(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	total := balance(t, s, "A").Add(balance(t, s, "B"))
	s1, err := Reduce(s, AddTransaction{Transaction: domain.Transaction{
		ID: "x1", Type: domain.Transfer, Amount: dec("100"), Description: "Poupança mensal",
		AccountID: "A", DestinationAccountID: "B", Date: day(2024, time.January, 2),
	}})
	require.NoError(t, err)
	require.True(t, dec("900").Equal(balance(t, s1, "A")))
	require.True(t, dec("600").Equal(balance(t, s1, "B")))
	require.True(t, total.Equal(balance(t, s1, "A").Add(balance(t, s1, "B"))))
	require.True(t, dec("0").Equal(spent(t, s1, "food")))
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	_, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "10", day(2024, time.January, 3))})
	require.NoError(t, err)
	require.Empty(t, s.Transactions)
	require.True(t, dec("1000").Equal(balance(t, s, "A")))
	require.True(t, spent(t, s, "food").IsZero())
}

func TestBudgetMatchesTransactionMonthOnly(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("feb", "Alimentação", "20", day(2024, time.February, 1))})
	require.NoError(t, err)
	s, err = Reduce(s, AddTransaction{Transaction: expense("other", "Transporte", "5", day(2024, time.January, 10))})
	require.NoError(t, err)
	s, err = Reduce(s, AddTransaction{Transaction: expense("case", "alimentação", "7.5", day(2024, time.January, 10))})
	require.NoError(t, err)
	require.True(t, dec("7.5").Equal(spent(t, s, "food")))

	_, ok := s.BudgetFor("Alimentação", day(2024, time.February, 1))
	require.False(t, ok)
}

func TestUpdateTransactionMovesEffects(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	tx := expense("t1", "Alimentação", "45.80", day(2024, time.January, 15))
	s, err := Reduce(s, AddTransaction{Transaction: tx})
	require.NoError(t, err)

	tx.Type = domain.Income
	tx.Amount = dec("20")
	tx.AccountID = "B"
	s, err = Reduce(s, UpdateTransaction{Transaction: tx})
	require.NoError(t, err)
	require.True(t, dec("1000").Equal(balance(t, s, "A")))
	require.True(t, dec("520").Equal(balance(t, s, "B")))
	require.True(t, spent(t, s, "food").IsZero())
	require.Empty(t, Verify(s))

	_, err = Reduce(s, UpdateTransaction{Transaction: expense("missing", "X", "1", day(2024, 1, 1))})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddTransactionRejections(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "1", day(2024, 1, 1))})
	require.NoError(t, err)

	cases := []struct {
		name string
		tx   domain.Transaction
		want error
	}{
		{"duplicate id", expense("t1", "Alimentação", "1", day(2024, 1, 1)), ErrDuplicate},
		{"missing id", expense("", "Alimentação", "1", day(2024, 1, 1)), domain.ErrValidation},
		{"negative amount", expense("t2", "Alimentação", "-1", day(2024, 1, 1)), domain.ErrValidation},
		{"unknown account", domain.Transaction{ID: "t3", Type: domain.Income, Amount: dec("1"), Description: "x", AccountID: "Z", Date: day(2024, 1, 1)}, ErrNotFound},
		{"transfer to self", domain.Transaction{ID: "t4", Type: domain.Transfer, Amount: dec("1"), Description: "x", AccountID: "A", DestinationAccountID: "A", Date: day(2024, 1, 1)}, domain.ErrValidation},
		{"destination on expense", domain.Transaction{ID: "t5", Type: domain.Expense, Amount: dec("1"), Description: "x", AccountID: "A", DestinationAccountID: "B", Date: day(2024, 1, 1)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		got, err := Reduce(s, AddTransaction{Transaction: tc.tx})
		require.ErrorIs(t, err, tc.want, tc.name)
		require.Len(t, got.Transactions, 1, tc.name)
	}
}

func TestArchivedAccountRejectsNewTransactions(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	at := day(2024, time.March, 1)
	s, err := Reduce(s, SetAccountStatus{ID: "B", Status: domain.StatusArchived, At: at, Reason: "closed"})
	require.NoError(t, err)
	acc, _ := s.Account("B")
	require.Equal(t, domain.StatusArchived, acc.Status)
	require.Equal(t, []domain.StatusChange{{Status: domain.StatusArchived, At: at, Reason: "closed"}}, acc.StatusHistory)

	_, err = Reduce(s, AddTransaction{Transaction: domain.Transaction{
		ID: "x", Type: domain.Transfer, Amount: dec("1"), Description: "x", AccountID: "A", DestinationAccountID: "B", Date: at,
	}})
	require.ErrorIs(t, err, ErrAccountArchived)

	// Same status twice records nothing new.
	s, err = Reduce(s, SetAccountStatus{ID: "B", Status: domain.StatusArchived, At: at})
	require.NoError(t, err)
	acc, _ = s.Account("B")
	require.Len(t, acc.StatusHistory, 1)

	s, err = Reduce(s, SetAccountStatus{ID: "B", Status: domain.StatusActive, At: at.AddDate(0, 0, 1)})
	require.NoError(t, err)
	acc, _ = s.Account("B")
	require.Len(t, acc.StatusHistory, 2)
}

func TestDeleteAccountInUse(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "1", day(2024, 1, 1))})
	require.NoError(t, err)

	_, err = Reduce(s, DeleteAccount{ID: "A"})
	require.ErrorIs(t, err, ErrAccountInUse)

	s, err = Reduce(s, DeleteAccount{ID: "B"})
	require.NoError(t, err)
	_, ok := s.Account("B")
	require.False(t, ok)

	_, err = Reduce(s, DeleteAccount{ID: "B"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccountShiftsBalanceByInitialDelta(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "100", day(2024, 1, 1))})
	require.NoError(t, err)

	acc, _ := s.Account("A")
	acc.InitialBalance = dec("1200")
	acc.Name = "Conta principal"
	acc.Status = domain.StatusArchived
	s, err = Reduce(s, UpdateAccount{Account: acc})
	require.NoError(t, err)

	got, _ := s.Account("A")
	require.Equal(t, "Conta principal", got.Name)
	require.True(t, dec("1100").Equal(got.Balance))
	require.Equal(t, domain.StatusActive, got.Status)
	require.Empty(t, Verify(s))
}

func TestAddBudgetRecomputesSpentAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Transporte", "12.5", day(2024, time.January, 5))})
	require.NoError(t, err)
	s, err = Reduce(s, AddTransaction{Transaction: expense("t2", "Transporte", "7.5", day(2024, time.January, 20))})
	require.NoError(t, err)

	s, err = Reduce(s, AddBudget{Budget: domain.Budget{ID: "car", Category: "Transporte", Limit: dec("15"), Month: time.January, Year: 2024}})
	require.NoError(t, err)
	b, ok := s.BudgetFor("Transporte", day(2024, time.January, 1))
	require.True(t, ok)
	require.True(t, dec("20").Equal(b.Spent))
	require.True(t, b.OverBudget())

	_, err = Reduce(s, AddBudget{Budget: domain.Budget{ID: "car2", Category: "transporte", Limit: dec("1"), Month: time.January, Year: 2024}})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = Reduce(s, UpdateBudget{Budget: domain.Budget{ID: "car", Category: "Alimentação", Limit: dec("1"), Month: time.January, Year: 2024}})
	require.ErrorIs(t, err, ErrDuplicate)

	s, err = Reduce(s, UpdateBudget{Budget: domain.Budget{ID: "car", Category: "Transporte", Limit: dec("15"), Month: time.February, Year: 2024}})
	require.NoError(t, err)
	b, ok = s.BudgetFor("Transporte", day(2024, time.February, 1))
	require.True(t, ok)
	require.True(t, b.Spent.IsZero())

	s, err = Reduce(s, DeleteBudget{ID: "car"})
	require.NoError(t, err)
	require.Len(t, s.Budgets, 1)
}

func TestReferenceDataActions(t *testing.T) {
	t.Parallel()

	var s State
	s, err := Reduce(s, AddRule{Rule: domain.AIRule{ID: "r1", Pattern: "GALP", PatternType: domain.PatternContains, Active: true}})
	require.NoError(t, err)
	_, err = Reduce(s, AddRule{Rule: domain.AIRule{ID: "r1", Pattern: "X", PatternType: domain.PatternContains}})
	require.ErrorIs(t, err, ErrDuplicate)
	s, err = Reduce(s, UpdateRule{Rule: domain.AIRule{ID: "r1", Pattern: "REPSOL", PatternType: domain.PatternContains}})
	require.NoError(t, err)
	require.Equal(t, "REPSOL", s.Rules[0].Pattern)
	s, err = Reduce(s, DeleteRule{ID: "r1"})
	require.NoError(t, err)
	require.Empty(t, s.Rules)

	s, err = Reduce(s, AddEntity{Entity: domain.Entity{ID: "e1", Name: "Continente"}})
	require.NoError(t, err)
	_, err = Reduce(s, AddEntity{Entity: domain.Entity{ID: "e2", Name: "continente"}})
	require.ErrorIs(t, err, ErrDuplicate)
	s, err = Reduce(s, DeleteEntity{ID: "e1"})
	require.NoError(t, err)
	require.Empty(t, s.Entities)

	s, err = Reduce(s, AddCategory{Category: domain.Category{ID: "c1", Name: "Alimentação", Type: domain.Expense, Subcategories: []string{"Supermercado"}}})
	require.NoError(t, err)
	_, err = Reduce(s, AddCategory{Category: domain.Category{ID: "c2"}})
	require.ErrorIs(t, err, domain.ErrValidation)
	s, err = Reduce(s, DeleteCategory{ID: "c1"})
	require.NoError(t, err)
	require.Empty(t, s.Categories)

	_, err = Reduce(s, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMonthSummary(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	for _, tx := range []domain.Transaction{
		expense("t1", "Alimentação", "45.80", day(2024, time.January, 15)),
		expense("t2", "", "4.20", day(2024, time.January, 16)),
		{ID: "t3", Type: domain.Income, Amount: dec("2800"), Description: "SALARIO", Category: "Salário", AccountID: "A", Date: day(2024, time.January, 25)},
		{ID: "t4", Type: domain.Transfer, Amount: dec("100"), Description: "x", AccountID: "A", DestinationAccountID: "B", Date: day(2024, time.January, 26)},
		expense("t5", "Alimentação", "10", day(2024, time.February, 1)),
	} {
		var err error
		s, err = Reduce(s, AddTransaction{Transaction: tx})
		require.NoError(t, err)
	}

	sum := MonthSummary(s, 2024, time.January)
	require.True(t, dec("2800").Equal(sum.Income))
	require.True(t, dec("50").Equal(sum.Expense))
	require.True(t, dec("2750").Equal(sum.Net))
	require.Len(t, sum.ByCategory, 3)
	require.Equal(t, "Alimentação", sum.ByCategory[0].Category)
	require.Equal(t, "Salário", sum.ByCategory[1].Category)
	require.Equal(t, uncategorized, sum.ByCategory[2].Category)
}

func TestVerifyReportsDrift(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddTransaction{Transaction: expense("t1", "Alimentação", "45.80", day(2024, time.January, 15))})
	require.NoError(t, err)
	require.Empty(t, Verify(s))

	s.Accounts[0].Balance = dec("1")
	s.Budgets[0].Spent = dec("0")
	drift := Verify(s)
	require.Len(t, drift, 2)
	require.Equal(t, "account", drift[0].Kind)
	require.True(t, dec("954.20").Equal(drift[0].Want))
	require.Equal(t, "budget", drift[1].Kind)
	require.True(t, dec("45.80").Equal(drift[1].Want))
	require.Contains(t, drift[1].String(), "expected 45.80")
}

func TestRecurringVariance(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddRecurring{Recurring: domain.RecurringTransaction{
		ID: "rent", Description: "Renda", Type: domain.Expense, Amount: dec("750"), Frequency: domain.Monthly,
		AccountID: "A", Category: "Casa", StartDate: day(2024, time.January, 1), Active: true,
	}})
	require.NoError(t, err)
	for _, tx := range []domain.Transaction{
		{ID: "jan", Type: domain.Expense, Amount: dec("750"), Description: "Renda", AccountID: "A", Date: day(2024, time.January, 2), RecurrenceID: "rent"},
		{ID: "mar", Type: domain.Expense, Amount: dec("780"), Description: "Renda", AccountID: "A", Date: day(2024, time.March, 1), RecurrenceID: "rent"},
	} {
		s, err = Reduce(s, AddTransaction{Transaction: tx})
		require.NoError(t, err)
	}

	v, err := RecurringVariance(s, "rent", day(2024, time.January, 1), day(2024, time.March, 31))
	require.NoError(t, err)
	require.Equal(t, 3, v.Expected)
	require.Equal(t, 2, v.Actual)
	require.True(t, dec("2250").Equal(v.ExpectedAmount))
	require.True(t, dec("1530").Equal(v.ActualAmount))
	require.True(t, dec("-720").Equal(v.Difference))
	require.Equal(t, []time.Time{day(2024, time.February, 1)}, v.Missing)

	_, err = RecurringVariance(s, "nope", day(2024, 1, 1), day(2024, 2, 1))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Reduce(s, DeleteAccount{ID: "A"})
	require.ErrorIs(t, err, ErrAccountInUse)
	s, err = Reduce(s, DeleteRecurring{ID: "rent"})
	require.NoError(t, err)
	require.Empty(t, s.Recurring)
}

func TestRecurringVarianceMonthEnd(t *testing.T) {
	t.Parallel()

	s := seedState(t)
	s, err := Reduce(s, AddRecurring{Recurring: domain.RecurringTransaction{
		ID: "card", Description: "Cartão", Type: domain.Expense, Amount: dec("100"), Frequency: domain.Monthly,
		AccountID: "A", StartDate: day(2024, time.January, 31), Active: true,
	}})
	require.NoError(t, err)

	v, err := RecurringVariance(s, "card", day(2024, time.January, 1), day(2024, time.May, 31))
	require.NoError(t, err)
	require.Equal(t, 5, v.Expected)
	require.Equal(t, []time.Time{
		day(2024, time.January, 31),
		day(2024, time.February, 29),
		day(2024, time.March, 31),
		day(2024, time.April, 30),
		day(2024, time.May, 31),
	}, v.Missing)
}

func TestAddMonthsClamped(t *testing.T) {
	t.Parallel()

	require.Equal(t, day(2023, time.February, 28), addMonthsClamped(day(2023, time.January, 31), 1))
	require.Equal(t, day(2025, time.February, 28), addMonthsClamped(day(2024, time.February, 29), 12))
	require.Equal(t, day(2025, time.January, 15), addMonthsClamped(day(2024, time.December, 15), 1))
	require.Equal(t, day(2024, time.November, 30), addMonthsClamped(day(2025, time.January, 30), -2))
}

func TestStoreDispatchAndAccessors(t *testing.T) {
	t.Parallel()

	st := NewStore(State{}, zerolog.Nop())
	acc, err := st.AddAccount(domain.Account{Name: "Main", Type: domain.Checking, InitialBalance: dec("10")})
	require.NoError(t, err)
	require.Equal(t, AccountID("main"), acc.ID)
	require.True(t, dec("10").Equal(acc.Balance))

	_, err = st.AddAccount(domain.Account{Name: " MAIN ", Type: domain.Checking})
	require.ErrorIs(t, err, ErrDuplicate)

	tx, err := st.AddTransaction(domain.Transaction{Type: domain.Income, Amount: dec("5"), Description: "x", AccountID: acc.ID, Date: day(2024, 1, 1)})
	require.NoError(t, err)
	require.NotEmpty(t, tx.ID)

	b, err := st.AddBudget(domain.Budget{Category: "Food", Limit: dec("1"), Month: time.January, Year: 2024})
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)

	r, err := st.AddRule(domain.AIRule{Pattern: "x", PatternType: domain.PatternContains})
	require.NoError(t, err)
	require.Len(t, st.Rules(), 1)
	require.Equal(t, r.ID, st.Rules()[0].ID)

	// Returned slices are copies.
	txs := st.Transactions()
	txs[0].Description = "changed"
	require.Equal(t, "x", st.Transactions()[0].Description)

	got, ok := st.Account(acc.ID)
	require.True(t, ok)
	require.True(t, dec("15").Equal(got.Balance))

	require.NoError(t, st.ArchiveAccount(acc.ID, "closed", day(2024, 2, 1)))
	_, err = st.AddTransaction(domain.Transaction{Type: domain.Income, Amount: dec("5"), Description: "x", AccountID: acc.ID, Date: day(2024, 1, 2)})
	require.ErrorIs(t, err, ErrAccountArchived)
	require.NoError(t, st.ReactivateAccount(acc.ID, "", day(2024, 2, 2)))

	require.NoError(t, st.DeleteTransaction(tx.ID))
	require.Empty(t, st.Transactions())
	require.Len(t, st.Accounts(), 1)
	require.Len(t, st.Budgets(), 1)

	snap := st.Snapshot()
	st.Replace(State{})
	require.Empty(t, st.Accounts())
	require.Len(t, snap.Accounts, 1)
}
