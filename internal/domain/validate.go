package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped by every field-level validation failure.
var ErrValidation = errors.New("validation failed")

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, msg)
}

// Validate checks the shape of a transaction without looking at other state.
func (t Transaction) Validate() error {
	switch t.Type {
	case Income, Expense, Transfer:
	default:
		return invalid("type", fmt.Sprintf("%q is not income, expense or transfer", t.Type))
	}
	if t.Amount.IsNegative() {
		return invalid("amount", "must not be negative")
	}
	if strings.TrimSpace(t.Description) == "" {
		return invalid("description", "is required")
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return invalid("account", "is required")
	}
	if t.Date.IsZero() {
		return invalid("date", "is required")
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return invalid("confidence", "must be within [0,1]")
	}
	if t.Type == Transfer {
		if t.DestinationAccountID == "" {
			return invalid("destination", "is required for transfers")
		}
		if t.DestinationAccountID == t.AccountID {
			return invalid("destination", "must differ from the source account")
		}
	} else if t.DestinationAccountID != "" {
		return invalid("destination", "is only allowed on transfers")
	}
	return nil
}

// Validate checks required account fields.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", "is required")
	}
	switch a.Type {
	case Checking, Savings, Credit, Investment:
	default:
		return invalid("type", fmt.Sprintf("%q is not a known account type", a.Type))
	}
	switch a.Status {
	case "", StatusActive, StatusArchived:
	default:
		return invalid("status", fmt.Sprintf("%q is not active or archived", a.Status))
	}
	if a.UploadFormat != nil {
		return a.UploadFormat.Validate()
	}
	return nil
}

// Validate checks required budget fields.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category", "is required")
	}
	if b.Limit.IsNegative() {
		return invalid("limit", "must not be negative")
	}
	if b.Month < 1 || b.Month > 12 {
		return invalid("month", "must be within 1..12")
	}
	if b.Year < 1 {
		return invalid("year", "is required")
	}
	return nil
}

// Validate checks required rule fields. A regex pattern that does not compile
// is still a valid rule; it simply never matches.
func (r AIRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return invalid("pattern", "is required")
	}
	switch r.PatternType {
	case PatternContains, PatternStartsWith, PatternEndsWith, PatternRegex:
	default:
		return invalid("pattern_type", fmt.Sprintf("%q is not supported", r.PatternType))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return invalid("confidence", "must be within [0,1]")
	}
	return nil
}

// Validate checks required recurring template fields.
func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return invalid("description", "is required")
	}
	if r.Type != Income && r.Type != Expense {
		return invalid("type", "must be income or expense")
	}
	switch r.Frequency {
	case Weekly, Monthly, Yearly:
	default:
		return invalid("frequency", fmt.Sprintf("%q is not supported", r.Frequency))
	}
	if r.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return invalid("end_date", "is before start_date")
	}
	return nil
}
