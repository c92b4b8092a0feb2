package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// Drift is a stored aggregate that disagrees with the value recomputed from
// committed transactions.
type Drift struct {
	Kind   string // "account" or "budget"
	ID     string
	Name   string
	Stored decimal.Decimal
	Want   decimal.Decimal
}

func (d Drift) String() string {
	return fmt.Sprintf("%s %s: stored %s, expected %s", d.Kind, d.Name, d.Stored.StringFixed(2), d.Want.StringFixed(2))
}

// Verify recomputes every account balance and budget spent total from
// scratch. An empty result means the ledger is consistent.
func Verify(s State) []Drift {
	var out []Drift
	for _, a := range s.Accounts {
		want := a.InitialBalance
		for _, t := range s.Transactions {
			switch {
			case t.Type == domain.Income && t.AccountID == a.ID:
				want = want.Add(t.Amount)
			case t.Type == domain.Expense && t.AccountID == a.ID:
				want = want.Sub(t.Amount)
			case t.Type == domain.Transfer && t.AccountID == a.ID:
				want = want.Sub(t.Amount)
			case t.Type == domain.Transfer && t.DestinationAccountID == a.ID:
				want = want.Add(t.Amount)
			}
		}
		if !want.Equal(a.Balance) {
			out = append(out, Drift{Kind: "account", ID: a.ID, Name: a.Name, Stored: a.Balance, Want: want})
		}
	}
	for _, b := range s.Budgets {
		want := s.spentIn(b.Category, b.Month, b.Year)
		if !want.Equal(b.Spent) {
			out = append(out, Drift{Kind: "budget", ID: b.ID, Name: fmt.Sprintf("%s %d-%02d", b.Category, b.Year, b.Month), Stored: b.Spent, Want: want})
		}
	}
	return out
}

// CategoryTotal is the income and expense of one category in a month.
type CategoryTotal struct {
	Category string
	Income   decimal.Decimal
	Expense  decimal.Decimal
}

// Summary totals one calendar month. Transfers are excluded.
type Summary struct {
	Year       int
	Month      time.Month
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Net        decimal.Decimal
	ByCategory []CategoryTotal
}

const uncategorized = "Uncategorized"

// MonthSummary totals income and expense per category for the month.
// Categories are sorted by name.
func MonthSummary(s State, year int, month time.Month) Summary {
	sum := Summary{Year: year, Month: month}
	idx := map[string]int{}
	for _, t := range s.Transactions {
		if t.Type == domain.Transfer || t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		cat := strings.TrimSpace(t.Category)
		if cat == "" {
			cat = uncategorized
		}
		i, ok := idx[cat]
		if !ok {
			i = len(sum.ByCategory)
			idx[cat] = i
			sum.ByCategory = append(sum.ByCategory, CategoryTotal{Category: cat})
		}
		if t.Type == domain.Income {
			sum.Income = sum.Income.Add(t.Amount)
			sum.ByCategory[i].Income = sum.ByCategory[i].Income.Add(t.Amount)
		} else {
			sum.Expense = sum.Expense.Add(t.Amount)
			sum.ByCategory[i].Expense = sum.ByCategory[i].Expense.Add(t.Amount)
		}
	}
	sum.Net = sum.Income.Sub(sum.Expense)
	slices.SortFunc(sum.ByCategory, func(a, b CategoryTotal) int { return strings.Compare(a.Category, b.Category) })
	return sum
}

// Variance compares a recurring template with the transactions linked to it.
type Variance struct {
	RecurringID    string
	From, To       time.Time
	Expected       int
	Actual         int
	ExpectedAmount decimal.Decimal
	ActualAmount   decimal.Decimal
	// Difference is ActualAmount minus ExpectedAmount.
	Difference decimal.Decimal
	Missing    []time.Time
}

// RecurringVariance counts the occurrences the template expects in [from, to]
// and the linked transactions actually committed in that window. An
// expected date is reported missing when no linked transaction falls within
// half a period of it.
func RecurringVariance(s State, id string, from, to time.Time) (Variance, error) {
	i := slices.IndexFunc(s.Recurring, func(r domain.RecurringTransaction) bool { return r.ID == id })
	if i < 0 {
		return Variance{}, fmt.Errorf("recurring %s: %w", id, ErrNotFound)
	}
	r := s.Recurring[i]
	if to.Before(from) {
		return Variance{}, fmt.Errorf("%w: window ends before it starts", domain.ErrValidation)
	}

	v := Variance{RecurringID: id, From: from, To: to}
	var actual []time.Time
	for _, t := range s.Transactions {
		if t.RecurrenceID != id || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		v.Actual++
		v.ActualAmount = v.ActualAmount.Add(t.Amount)
		actual = append(actual, t.Date)
	}

	tolerance := period(r.Frequency) / 2
	for _, due := range occurrences(r, from, to) {
		v.Expected++
		v.ExpectedAmount = v.ExpectedAmount.Add(r.Amount)
		if !slices.ContainsFunc(actual, func(d time.Time) bool { return absDuration(d.Sub(due)) <= tolerance }) {
			v.Missing = append(v.Missing, due)
		}
	}
	v.Difference = v.ActualAmount.Sub(v.ExpectedAmount)
	return v, nil
}

// occurrences lists due dates of r inside [from, to]. Each date is computed
// from the start date, and a day past the end of a shorter month falls on
// its last day: a template starting Jan 31 is due Feb 29, Mar 31, Apr 30.
func occurrences(r domain.RecurringTransaction, from, to time.Time) []time.Time {
	if !r.Active {
		return nil
	}
	end := to
	if r.EndDate != nil && r.EndDate.Before(end) {
		end = *r.EndDate
	}
	var out []time.Time
	for n := 0; ; n++ {
		due := step(r.StartDate, r.Frequency, n)
		if due.After(end) {
			break
		}
		if !due.Before(from) {
			out = append(out, due)
		}
	}
	return out
}

func step(start time.Time, f domain.Frequency, n int) time.Time {
	switch f {
	case domain.Weekly:
		return start.AddDate(0, 0, 7*n)
	case domain.Yearly:
		return addMonthsClamped(start, 12*n)
	default:
		return addMonthsClamped(start, n)
	}
}

// addMonthsClamped adds months to t without AddDate's overflow into the
// following month.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func period(f domain.Frequency) time.Duration {
	const day = 24 * time.Hour
	switch f {
	case domain.Weekly:
		return 7 * day
	case domain.Yearly:
		return 365 * day
	default:
		return 30 * day
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
