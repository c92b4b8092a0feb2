package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

// AccountType classifies an account.
type AccountType string

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusArchived AccountStatus = "archived"
)

// PatternType selects how an AIRule pattern is compared to a description.
type PatternType string

const (
	PatternContains   PatternType = "contains"
	PatternStartsWith PatternType = "startsWith"
	PatternEndsWith   PatternType = "endsWith"
	PatternRegex      PatternType = "regex"
)

// Frequency is the period of a recurring transaction.
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Transaction is a committed ledger movement. Amount is always a magnitude;
// Type carries the sign.
type Transaction struct {
	ID                   string
	Type                 TransactionType
	Amount               decimal.Decimal
	Description          string
	Entity               string
	Category             string
	Subcategory          string
	Tags                 []string
	Location             string
	AccountID            string
	DestinationAccountID string
	Date                 time.Time
	RecurrenceID         string
	AIProcessed          bool
	Confidence           float64
}

// StatusChange is one entry of an account's status history.
type StatusChange struct {
	Status AccountStatus
	At     time.Time
	Reason string
}

// Account holds a running balance derived from its initial balance and the
// transactions committed against it.
type Account struct {
	ID             string
	Name           string
	Type           AccountType
	Balance        decimal.Decimal
	InitialBalance decimal.Decimal
	InitialDate    time.Time
	Currency       string
	Status         AccountStatus
	StatusHistory  []StatusChange
	UploadFormat   UploadFormat
}

// Budget caps spending of one category in one calendar month.
type Budget struct {
	ID       string
	Category string
	Limit    decimal.Decimal
	Spent    decimal.Decimal
	Month    time.Month
	Year     int
}

// Remaining is Limit minus Spent; negative when over budget.
func (b Budget) Remaining() decimal.Decimal {
	return b.Limit.Sub(b.Spent)
}

// OverBudget reports whether Spent exceeds Limit.
func (b Budget) OverBudget() bool {
	return b.Spent.GreaterThan(b.Limit)
}

// Progress is Spent/Limit as a float, 0 for a zero limit.
func (b Budget) Progress() float64 {
	if b.Limit.IsZero() {
		return 0
	}
	return b.Spent.Div(b.Limit).InexactFloat64()
}

// Covers reports whether t falls in the budget's month.
func (b Budget) Covers(t time.Time) bool {
	return t.Year() == b.Year && t.Month() == b.Month
}

// Entity is a counterparty transactions can be attributed to.
type Entity struct {
	ID       string
	Name     string
	Category string
}

// Category groups transactions; subcategories are plain names.
type Category struct {
	ID            string
	Name          string
	Type          TransactionType
	Subcategories []string
}

// AIRule maps a description pattern to a categorization suggestion.
// Lower Priority values win.
type AIRule struct {
	ID          string
	Name        string
	Pattern     string
	PatternType PatternType
	Entity      string
	Category    string
	Subcategory string
	Tags        []string
	Confidence  float64
	Priority    int
	Active      bool
}

// RecurringTransaction is a template for an expected periodic movement.
type RecurringTransaction struct {
	ID          string
	Description string
	Type        TransactionType
	Amount      decimal.Decimal
	Frequency   Frequency
	AccountID   string
	Category    string
	StartDate   time.Time
	EndDate     *time.Time
	Active      bool
}
