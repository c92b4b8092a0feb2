// Package service runs statement imports: parse, categorize, review, commit.
package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/jaskledger/internal/categorize"
	"github.com/jask/jaskledger/internal/domain"
	"github.com/jask/jaskledger/internal/ledger"
	"github.com/jask/jaskledger/internal/statement"
)

// Draft is a parsed line awaiting review. The editable fields start from the
// categorizer's suggestion.
type Draft struct {
	ID         string
	AccountID  string
	Candidate  statement.Candidate
	Suggestion categorize.Suggestion

	Type        domain.TransactionType
	Entity      string
	Category    string
	Subcategory string
	Tags        []string

	Accepted bool
	// DuplicateOf names the ledger transaction or earlier draft this line
	// resembles.
	DuplicateOf string
}

// Duplicate reports whether the draft resembles an existing row.
func (d Draft) Duplicate() bool { return d.DuplicateOf != "" }

// Transaction builds the ledger row the draft commits as.
func (d Draft) Transaction() domain.Transaction {
	return domain.Transaction{
		ID:          d.ID,
		Type:        d.Type,
		Amount:      d.Candidate.Amount,
		Description: d.Candidate.Description,
		Entity:      d.Entity,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		Tags:        slices.Clone(d.Tags),
		AccountID:   d.AccountID,
		Date:        d.Candidate.Date,
		AIProcessed: d.Suggestion.AIProcessed,
		Confidence:  d.Suggestion.Confidence,
	}
}

// Preview is the reviewable outcome of parsing one statement.
type Preview struct {
	AccountID string
	Drafts    []Draft
	Skipped   []statement.Skipped
}

// IngestResult counts what a commit did. Errors carry the statement line.
type IngestResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImportService wires the parser and categorizer to the ledger store.
type ImportService struct {
	Parser      *statement.Parser
	Categorizer *categorize.Categorizer
	Ledger      *ledger.Store
	Duplicates  DuplicatePolicy
	Log         zerolog.Logger
}

// NewImportService builds a service whose categorizer reads rules and
// history from store.
func NewImportService(store *ledger.Store, policy categorize.Policy, dup DuplicatePolicy, l zerolog.Logger) *ImportService {
	return &ImportService{
		Parser:      statement.NewParser(l),
		Categorizer: categorize.New(store, store, policy, l),
		Ledger:      store,
		Duplicates:  dup,
		Log:         l,
	}
}

// Preview parses pasted statement text for accountID and categorizes each
// candidate, one at a time in line order.
func (s *ImportService) Preview(ctx context.Context, text, accountID string) (Preview, error) {
	if _, err := s.account(accountID); err != nil {
		return Preview{}, err
	}
	return s.preview(ctx, s.Parser.ParseText(text), accountID)
}

// PreviewUpload parses an uploaded file with the account's upload format.
func (s *ImportService) PreviewUpload(ctx context.Context, r io.Reader, size int64, accountID string) (Preview, error) {
	acc, err := s.account(accountID)
	if err != nil {
		return Preview{}, err
	}
	res, err := s.Parser.ParseUpload(r, size, acc.UploadFormat)
	if err != nil {
		return Preview{}, fmt.Errorf("account %s: %w", acc.Name, err)
	}
	return s.preview(ctx, res, accountID)
}

func (s *ImportService) account(id string) (domain.Account, error) {
	acc, ok := s.Ledger.Account(id)
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
	}
	if acc.Status == domain.StatusArchived {
		return domain.Account{}, fmt.Errorf("account %s: %w", acc.Name, ledger.ErrAccountArchived)
	}
	return acc, nil
}

func (s *ImportService) preview(ctx context.Context, res statement.Result, accountID string) (Preview, error) {
	p := Preview{AccountID: accountID, Skipped: res.Skipped()}
	existing := s.Ledger.Transactions()
	for _, c := range res.Candidates() {
		sug, err := s.Categorizer.Categorize(ctx, c.Description, c.Amount)
		if err != nil {
			return Preview{}, fmt.Errorf("line %d: %w", c.Line, err)
		}
		d := Draft{
			ID:          draftID(accountID, c),
			AccountID:   accountID,
			Candidate:   c,
			Suggestion:  sug,
			Type:        c.Type,
			Entity:      sug.Entity,
			Category:    sug.Category,
			Subcategory: sug.Subcategory,
			Tags:        sug.Tags,
			Accepted:    true,
		}
		d.DuplicateOf = s.findDuplicate(d, existing, p.Drafts)
		if d.Duplicate() {
			d.Accepted = false
		}
		p.Drafts = append(p.Drafts, d)
	}
	s.Log.Info().
		Str("account", accountID).
		Int("drafts", len(p.Drafts)).
		Int("skipped", len(p.Skipped)).
		Msg("statement previewed")
	return p, nil
}

func (s *ImportService) findDuplicate(d Draft, existing []domain.Transaction, earlier []Draft) string {
	key := keyOf(d.Transaction())
	for _, t := range existing {
		if t.ID == d.ID || s.Duplicates.looksDuplicate(key, keyOf(t)) {
			return t.ID
		}
	}
	for _, e := range earlier {
		if s.Duplicates.looksDuplicate(key, keyOf(e.Transaction())) {
			return e.ID
		}
	}
	return ""
}

// Commit adds every accepted draft to the ledger. Each draft stands alone:
// a rejected one is reported and the rest still commit. Drafts already in
// the ledger are counted as skipped.
func (s *ImportService) Commit(ctx context.Context, drafts []Draft) (IngestResult, error) {
	res := IngestResult{}
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !d.Accepted {
			res.Skipped++
			continue
		}
		if _, err := s.Ledger.AddTransaction(d.Transaction()); err != nil {
			if errors.Is(err, ledger.ErrDuplicate) {
				res.Skipped++
				continue
			}
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", d.Candidate.Line, err))
			continue
		}
		res.Imported++
	}
	s.Log.Info().
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("errors", len(res.Errors)).
		Msg("import committed")
	return res, nil
}

// draftID is stable for the same line of the same statement, so committing
// a statement twice does not double count it.
func draftID(accountID string, c statement.Candidate) string {
	joined := strings.Join([]string{
		accountID,
		c.Date.Format(time.DateOnly),
		c.Amount.String(),
		string(c.Type),
		c.Description,
		fmt.Sprintf("%d", c.Line),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return uuid.NewSHA1(uuid.NameSpaceURL, sum[:]).String()
}
