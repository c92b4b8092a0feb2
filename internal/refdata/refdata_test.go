package refdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/jaskledger/internal/domain"
	"github.com/jask/jaskledger/internal/ledger"
)

const sample = `
accounts:
  - name: Conta à ordem
    type: checking
    initial_balance: 1000.50
    initial_date: 2024-01-01
    currency: EUR
    upload_format:
      kind: csv
      delimiter: ";"
      has_header: true
      date_col: 0
      desc_col: 1
      amount_col: 2
  - name: Cartão
    type: credit
    upload_format:
      kind: pdf
      first_page: 2
categories:
  - name: Alimentação
    type: expense
    subcategories: [Supermercado, Restaurantes]
entities:
  - name: Continente
    category: Alimentação
rules:
  - name: fuel
    pattern: GALP
    pattern_type: contains
    category: Transporte
    confidence: 0.9
    priority: 1
  - pattern: "^MB ?WAY"
    pattern_type: regex
    category: Transferências
    active: false
budgets:
  - category: Alimentação
    limit: "300"
    month: 1
    year: 2024
recurring:
  - description: Renda
    type: expense
    amount: 750
    frequency: monthly
    account: Conta à ordem
    category: Casa
    start_date: "2024-01-01"
`

func TestParseAndApply(t *testing.T) {
	t.Parallel()

	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, f.Accounts, 2)
	require.True(t, decimal.RequireFromString("1000.50").Equal(f.Accounts[0].InitialBalance))

	store := ledger.NewStore(ledger.State{}, zerolog.Nop())
	applied, err := Apply(store, f)
	require.NoError(t, err)
	require.Equal(t, Applied{Added: 8}, applied)

	s := store.Snapshot()
	acc, ok := s.Account(ledger.AccountID("conta à ordem"))
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("1000.5").Equal(acc.Balance))
	require.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), acc.InitialDate)
	require.Equal(t, domain.CSVFormat{Delimiter: ';', HasHeader: true, DateCol: 0, DescCol: 1, AmountCol: 2}, acc.UploadFormat)
	require.Equal(t, domain.PDFFormat{FirstPage: 2}, s.Accounts[1].UploadFormat)

	require.Len(t, s.Rules, 2)
	require.Equal(t, 1, s.Rules[0].Priority)
	require.True(t, s.Rules[0].Active)
	require.Equal(t, 1001, s.Rules[1].Priority)
	require.False(t, s.Rules[1].Active)
	require.Equal(t, "regex:^MB ?WAY", s.Rules[1].Name)

	require.Equal(t, []string{"Supermercado", "Restaurantes"}, s.Categories[0].Subcategories)
	require.Equal(t, time.January, s.Budgets[0].Month)
	require.Equal(t, acc.ID, s.Recurring[0].AccountID)

	// Applying the same file again adds nothing.
	applied, err = Apply(store, f)
	require.NoError(t, err)
	require.Equal(t, Applied{Unchanged: 8}, applied)
	require.Len(t, store.Accounts(), 2)
}

func TestApplyUpdatesEditedItems(t *testing.T) {
	t.Parallel()

	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	store := ledger.NewStore(ledger.State{}, zerolog.Nop())
	_, err = Apply(store, f)
	require.NoError(t, err)

	f.Accounts[0].InitialBalance = decimal.RequireFromString("1200.50")
	f.Rules[0].Pattern = "GALP ENERGIA"
	f.Budgets[0].Limit = decimal.RequireFromString("350")
	f.Entities[0].Category = "Casa"

	applied, err := Apply(store, f)
	require.NoError(t, err)
	require.Equal(t, Applied{Updated: 3, Unchanged: 4, Ignored: 1}, applied)

	s := store.Snapshot()
	acc, ok := s.Account(ledger.AccountID("Conta à ordem"))
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("1200.5").Equal(acc.Balance))
	require.Equal(t, "GALP ENERGIA", s.Rules[0].Pattern)
	require.Equal(t, 1, s.Rules[0].Priority)
	require.True(t, decimal.RequireFromString("350").Equal(s.Budgets[0].Limit))
	require.Equal(t, "Alimentação", s.Entities[0].Category)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("acounts: []\n"))
	require.Error(t, err)
}

func TestParseEmptyDocument(t *testing.T) {
	t.Parallel()

	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, f.Accounts)
}

func TestActionsValidateFormats(t *testing.T) {
	t.Parallel()

	f := File{Accounts: []Account{{Name: "x", Type: "checking", UploadFormat: &UploadFormat{Kind: "ofx"}}}}
	_, err := f.Actions()
	require.ErrorIs(t, err, domain.ErrValidation)

	f = File{Accounts: []Account{{Name: "x", Type: "checking", UploadFormat: &UploadFormat{Kind: "csv", Delimiter: ";;"}}}}
	_, err = f.Actions()
	require.ErrorIs(t, err, domain.ErrValidation)

	f = File{Accounts: []Account{{Name: "x", Type: "checking", UploadFormat: &UploadFormat{Kind: "csv", DateCol: -1, DescCol: 1, AmountCol: 2}}}}
	_, err = f.Actions()
	require.ErrorIs(t, err, domain.ErrValidation)

	f = File{Accounts: []Account{{Name: "x", Type: "checking", UploadFormat: &UploadFormat{Kind: "excel", HeaderRows: -1}}}}
	_, err = f.Actions()
	require.ErrorIs(t, err, domain.ErrValidation)

	f = File{Recurring: []Recurring{{Description: "x", StartDate: "01/02/2024"}}}
	_, err = f.Actions()
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestApplyStopsOnInvalidItem(t *testing.T) {
	t.Parallel()

	store := ledger.NewStore(ledger.State{}, zerolog.Nop())
	f := File{
		Accounts: []Account{{Name: "ok", Type: "checking"}},
		Rules:    []Rule{{Pattern: "", PatternType: "contains"}},
	}
	applied, err := Apply(store, f)
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Equal(t, 1, applied.Added)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, f.Rules)

	path := filepath.Join(dir, "refdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	f, err = Load(path)
	require.NoError(t, err)
	require.Len(t, f.Rules, 2)

	require.NoError(t, os.WriteFile(path, []byte("rules: {"), 0o600))
	_, err = Load(path)
	require.ErrorContains(t, err, "refdata.yaml")
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	f := Defaults()
	require.Equal(t, "Income", f.Categories[0].Name)
	require.Equal(t, "income", f.Categories[0].Type)
	require.Equal(t, "Food", f.Categories[1].Name)
	require.Equal(t, []string{"Groceries", "Restaurants"}, f.Categories[1].Subcategories)

	store := ledger.NewStore(ledger.State{}, zerolog.Nop())
	applied, err := Apply(store, f)
	require.NoError(t, err)
	require.Equal(t, len(f.Categories), applied.Added)
}
