// Package refdata loads user-declared accounts, categories, entities, rules,
// budgets and recurring templates from a YAML file into the ledger.
package refdata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jask/jaskledger/internal/domain"
	"github.com/jask/jaskledger/internal/ledger"
)

// File is the YAML document.
type File struct {
	Accounts   []Account   `yaml:"accounts"`
	Categories []Category  `yaml:"categories"`
	Entities   []Entity    `yaml:"entities"`
	Rules      []Rule      `yaml:"rules"`
	Budgets    []Budget    `yaml:"budgets"`
	Recurring  []Recurring `yaml:"recurring"`
}

type Account struct {
	Name           string          `yaml:"name"`
	Type           string          `yaml:"type"`
	InitialBalance decimal.Decimal `yaml:"initial_balance"`
	InitialDate    string          `yaml:"initial_date"`
	Currency       string          `yaml:"currency"`
	UploadFormat   *UploadFormat   `yaml:"upload_format"`
}

// UploadFormat is flat in YAML; Kind selects which fields apply.
type UploadFormat struct {
	Kind         string `yaml:"kind"`
	FirstPage    int    `yaml:"first_page"`
	LastPage     int    `yaml:"last_page"`
	Sheet        string `yaml:"sheet"`
	HeaderRows   int    `yaml:"header_rows"`
	Delimiter    string `yaml:"delimiter"`
	HasHeader    bool   `yaml:"has_header"`
	DateCol      int    `yaml:"date_col"`
	DescCol      int    `yaml:"desc_col"`
	AmountCol    int    `yaml:"amount_col"`
	DateLayout   string `yaml:"date_layout"`
	DecimalComma bool   `yaml:"decimal_comma"`
}

type Category struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Subcategories []string `yaml:"subcategories"`
}

type Entity struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type Rule struct {
	Name        string   `yaml:"name"`
	Pattern     string   `yaml:"pattern"`
	PatternType string   `yaml:"pattern_type"`
	Entity      string   `yaml:"entity"`
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory"`
	Tags        []string `yaml:"tags"`
	Confidence  float64  `yaml:"confidence"`
	Priority    int      `yaml:"priority"`
	// Active defaults to true when omitted.
	Active *bool `yaml:"active"`
}

type Budget struct {
	Category string          `yaml:"category"`
	Limit    decimal.Decimal `yaml:"limit"`
	Month    int             `yaml:"month"`
	Year     int             `yaml:"year"`
}

type Recurring struct {
	Description string          `yaml:"description"`
	Type        string          `yaml:"type"`
	Amount      decimal.Decimal `yaml:"amount"`
	Frequency   string          `yaml:"frequency"`
	Account     string          `yaml:"account"`
	Category    string          `yaml:"category"`
	StartDate   string          `yaml:"start_date"`
	EndDate     string          `yaml:"end_date"`
	Active      *bool           `yaml:"active"`
}

// Load reads path. A missing file yields an empty File.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	if err != nil {
		return File{}, err
	}
	defer f.Close()
	out, err := Parse(f)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Parse decodes a YAML document; unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	return f, nil
}

// ID derives a stable ID for a named item of kind, so loading the same file
// twice produces the same rows.
func ID(kind, name string) string {
	key := kind + ":" + strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Actions converts the file into ledger actions, accounts first so later
// items can reference them by name.
func (f File) Actions() ([]ledger.Action, error) {
	var out []ledger.Action
	for _, a := range f.Accounts {
		acc, err := a.domain()
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Name, err)
		}
		out = append(out, ledger.AddAccount{Account: acc})
	}
	for _, c := range f.Categories {
		out = append(out, ledger.AddCategory{Category: domain.Category{
			ID: ID("category", c.Name), Name: c.Name, Type: domain.TransactionType(c.Type), Subcategories: c.Subcategories,
		}})
	}
	for _, e := range f.Entities {
		out = append(out, ledger.AddEntity{Entity: domain.Entity{ID: ID("entity", e.Name), Name: e.Name, Category: e.Category}})
	}
	for i, r := range f.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("%s:%s", r.PatternType, r.Pattern)
		}
		out = append(out, ledger.AddRule{Rule: domain.AIRule{
			ID:          ID("rule", name),
			Name:        name,
			Pattern:     r.Pattern,
			PatternType: domain.PatternType(r.PatternType),
			Entity:      r.Entity,
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Tags:        r.Tags,
			Confidence:  r.Confidence,
			Priority:    priority(r.Priority, i),
			Active:      r.Active == nil || *r.Active,
		}})
	}
	for _, b := range f.Budgets {
		key := fmt.Sprintf("%s:%d-%02d", b.Category, b.Year, b.Month)
		out = append(out, ledger.AddBudget{Budget: domain.Budget{
			ID: ID("budget", key), Category: b.Category, Limit: b.Limit, Month: time.Month(b.Month), Year: b.Year,
		}})
	}
	for _, r := range f.Recurring {
		rt, err := r.domain()
		if err != nil {
			return nil, fmt.Errorf("recurring %q: %w", r.Description, err)
		}
		out = append(out, ledger.AddRecurring{Recurring: rt})
	}
	return out, nil
}

// priority keeps file order for rules that leave it unset.
func priority(p, index int) int {
	if p != 0 {
		return p
	}
	return 1000 + index
}

func (a Account) domain() (domain.Account, error) {
	date, err := parseDate(a.InitialDate)
	if err != nil {
		return domain.Account{}, err
	}
	acc := domain.Account{
		ID:             ledger.AccountID(a.Name),
		Name:           a.Name,
		Type:           domain.AccountType(a.Type),
		InitialBalance: a.InitialBalance,
		InitialDate:    date,
		Currency:       a.Currency,
	}
	if a.UploadFormat != nil {
		if acc.UploadFormat, err = a.UploadFormat.domain(); err != nil {
			return domain.Account{}, err
		}
	}
	return acc, nil
}

func (u UploadFormat) domain() (domain.UploadFormat, error) {
	switch domain.FormatKind(u.Kind) {
	case domain.FormatPDF:
		return validFormat(domain.PDFFormat{FirstPage: u.FirstPage, LastPage: u.LastPage})
	case domain.FormatExcel:
		return validFormat(domain.ExcelFormat{
			Sheet: u.Sheet, HeaderRows: u.HeaderRows, DateCol: u.DateCol, DescCol: u.DescCol,
			AmountCol: u.AmountCol, DateLayout: u.DateLayout, DecimalComma: u.DecimalComma,
		})
	case domain.FormatCSV:
		var delim rune
		if u.Delimiter != "" {
			r, size := utf8.DecodeRuneInString(u.Delimiter)
			if size != len(u.Delimiter) {
				return nil, fmt.Errorf("%w: delimiter %q must be one character", domain.ErrValidation, u.Delimiter)
			}
			delim = r
		}
		return validFormat(domain.CSVFormat{
			Delimiter: delim, HasHeader: u.HasHeader, DateCol: u.DateCol, DescCol: u.DescCol,
			AmountCol: u.AmountCol, DateLayout: u.DateLayout, DecimalComma: u.DecimalComma,
		})
	default:
		return nil, fmt.Errorf("%w: upload format kind %q is not pdf, excel or csv", domain.ErrValidation, u.Kind)
	}
}

func validFormat(f domain.UploadFormat) (domain.UploadFormat, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (r Recurring) domain() (domain.RecurringTransaction, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return domain.RecurringTransaction{}, err
	}
	rt := domain.RecurringTransaction{
		ID:          ID("recurring", r.Description),
		Description: r.Description,
		Type:        domain.TransactionType(r.Type),
		Amount:      r.Amount,
		Frequency:   domain.Frequency(r.Frequency),
		Category:    r.Category,
		StartDate:   start,
		Active:      r.Active == nil || *r.Active,
	}
	if r.Account != "" {
		rt.AccountID = ledger.AccountID(r.Account)
	}
	if r.EndDate != "" {
		end, err := parseDate(r.EndDate)
		if err != nil {
			return domain.RecurringTransaction{}, err
		}
		rt.EndDate = &end
	}
	return rt, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", domain.ErrValidation, s)
	}
	return t, nil
}

// Applied counts what Apply did with the items of a file.
type Applied struct {
	Added     int
	Updated   int
	Unchanged int
	// Ignored items differ from the ledger but have no update action.
	Ignored int
}

// Apply dispatches every action to store, so applying the same file at every
// start is safe. Accounts, rules and budgets that already exist are updated
// when the file changed them; other kinds are only added.
func Apply(store *ledger.Store, f File) (Applied, error) {
	var res Applied
	actions, err := f.Actions()
	if err != nil {
		return res, err
	}
	for _, a := range actions {
		err := store.Dispatch(a)
		switch {
		case err == nil:
			res.Added++
			continue
		case !errors.Is(err, ledger.ErrDuplicate):
			return res, err
		}
		if err := reconcile(store, a, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// reconcile handles an add that hit an existing item.
func reconcile(store *ledger.Store, a ledger.Action, res *Applied) error {
	s := store.Snapshot()
	var (
		same   bool
		update ledger.Action
		kind   string
		name   string
	)
	switch a := a.(type) {
	case ledger.AddAccount:
		kind, name = "account", a.Account.Name
		if cur, ok := s.Account(a.Account.ID); ok {
			same = sameAccount(cur, a.Account)
			update = ledger.UpdateAccount{Account: a.Account}
		}
	case ledger.AddRule:
		kind, name = "rule", a.Rule.Name
		if i := slices.IndexFunc(s.Rules, func(r domain.AIRule) bool { return r.ID == a.Rule.ID }); i >= 0 {
			same = sameRule(s.Rules[i], a.Rule)
			update = ledger.UpdateRule{Rule: a.Rule}
		}
	case ledger.AddBudget:
		kind, name = "budget", fmt.Sprintf("%s %d-%02d", a.Budget.Category, a.Budget.Year, a.Budget.Month)
		if i := slices.IndexFunc(s.Budgets, func(b domain.Budget) bool { return b.ID == a.Budget.ID }); i >= 0 {
			same = a.Budget.Limit.Equal(s.Budgets[i].Limit)
			update = ledger.UpdateBudget{Budget: a.Budget}
		}
	case ledger.AddEntity:
		kind, name = "entity", a.Entity.Name
		if i := slices.IndexFunc(s.Entities, func(e domain.Entity) bool { return strings.EqualFold(e.Name, a.Entity.Name) }); i >= 0 {
			same = s.Entities[i].Category == a.Entity.Category
		}
	case ledger.AddCategory:
		kind, name = "category", a.Category.Name
		if i := slices.IndexFunc(s.Categories, func(c domain.Category) bool { return strings.EqualFold(c.Name, a.Category.Name) }); i >= 0 {
			c := s.Categories[i]
			same = c.Type == a.Category.Type && slices.Equal(c.Subcategories, a.Category.Subcategories)
		}
	case ledger.AddRecurring:
		kind, name = "recurring", a.Recurring.Description
		if i := slices.IndexFunc(s.Recurring, func(r domain.RecurringTransaction) bool { return r.ID == a.Recurring.ID }); i >= 0 {
			same = sameRecurring(s.Recurring[i], a.Recurring)
		}
	}

	switch {
	case same:
		res.Unchanged++
	case update != nil:
		if err := store.Dispatch(update); err != nil {
			return fmt.Errorf("update %s %q: %w", kind, name, err)
		}
		res.Updated++
	default:
		store.Log.Info().Str("kind", kind).Str("name", name).Msg("reference item differs from ledger; ignored")
		res.Ignored++
	}
	return nil
}

func sameAccount(a, b domain.Account) bool {
	return a.Name == b.Name &&
		a.Type == b.Type &&
		a.InitialBalance.Equal(b.InitialBalance) &&
		a.InitialDate.Equal(b.InitialDate) &&
		a.Currency == b.Currency &&
		a.UploadFormat == b.UploadFormat
}

func sameRule(a, b domain.AIRule) bool {
	return a.Name == b.Name &&
		a.Pattern == b.Pattern &&
		a.PatternType == b.PatternType &&
		a.Entity == b.Entity &&
		a.Category == b.Category &&
		a.Subcategory == b.Subcategory &&
		slices.Equal(a.Tags, b.Tags) &&
		a.Confidence == b.Confidence &&
		a.Priority == b.Priority &&
		a.Active == b.Active
}

func sameRecurring(a, b domain.RecurringTransaction) bool {
	sameEnd := a.EndDate == nil && b.EndDate == nil ||
		a.EndDate != nil && b.EndDate != nil && a.EndDate.Equal(*b.EndDate)
	return a.Description == b.Description &&
		a.Type == b.Type &&
		a.Amount.Equal(b.Amount) &&
		a.Frequency == b.Frequency &&
		a.AccountID == b.AccountID &&
		a.Category == b.Category &&
		a.StartDate.Equal(b.StartDate) &&
		a.Active == b.Active &&
		sameEnd
}
