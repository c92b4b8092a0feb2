// Package categorize suggests entity, category and tags for a transaction
// description from user rules first and transaction history second.
package categorize

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/jaskledger/internal/domain"
)

// Default policy values.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultConfidenceDamping   = 0.8
)

// Policy holds the tunables of the history fallback.
type Policy struct {
	// SimilarityThreshold is the exclusive lower bound a historical match must exceed.
	SimilarityThreshold float64
	// ConfidenceDamping scales similarity into a suggestion confidence.
	ConfidenceDamping float64
}

// DefaultPolicy returns the stock threshold and damping.
func DefaultPolicy() Policy {
	return Policy{SimilarityThreshold: DefaultSimilarityThreshold, ConfidenceDamping: DefaultConfidenceDamping}
}

// Source is how suggestions are produced.
type Source string

const (
	SourceNone    Source = "none"
	SourceRule    Source = "rule"
	SourceHistory Source = "history"
)

// Suggestion is the categorizer output for one description.
type Suggestion struct {
	Entity      string
	Category    string
	Subcategory string
	Tags        []string
	AIProcessed bool
	Confidence  float64
	Reasoning   string
	Source      Source
	// RuleID or TransactionID identify what produced the suggestion.
	RuleID        string
	TransactionID string
}

// RuleSource lists the current categorization rules.
type RuleSource interface {
	Rules() []domain.AIRule
}

// HistorySource lists committed transactions.
type HistorySource interface {
	Transactions() []domain.Transaction
}

// Categorizer applies rules, then falls back to history similarity.
type Categorizer struct {
	Rules   RuleSource
	History HistorySource
	Policy  Policy
	Matcher *Matcher
	Log     zerolog.Logger
}

// New wires a Categorizer with its own Matcher.
func New(rules RuleSource, history HistorySource, policy Policy, l zerolog.Logger) *Categorizer {
	return &Categorizer{Rules: rules, History: history, Policy: policy, Matcher: NewMatcher(l), Log: l}
}

// Categorize suggests a categorization for description. Every call reads the
// full rule set and history as they are now; nothing is learned or cached.
func (c *Categorizer) Categorize(ctx context.Context, description string, amount decimal.Decimal) (Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return Suggestion{}, err
	}
	if c.Matcher == nil {
		c.Matcher = NewMatcher(c.Log)
	}

	if c.Rules != nil {
		if r, ok := c.Matcher.Match(description, c.Rules.Rules()); ok {
			c.Log.Debug().Str("rule", r.ID).Str("description", description).Msg("rule matched")
			return Suggestion{
				Entity:      r.Entity,
				Category:    r.Category,
				Subcategory: r.Subcategory,
				Tags:        slices.Clone(r.Tags),
				AIProcessed: true,
				Confidence:  r.Confidence,
				Reasoning:   fmt.Sprintf("matched rule %q (%s %q, priority %d)", ruleLabel(r), r.PatternType, r.Pattern, r.Priority),
				Source:      SourceRule,
				RuleID:      r.ID,
			}, nil
		}
	}

	if c.History != nil {
		if best, score, ok := c.bestHistoryMatch(description); ok {
			conf := score * c.Policy.ConfidenceDamping
			c.Log.Debug().Str("transaction", best.ID).Float64("similarity", score).Str("description", description).Msg("history matched")
			return Suggestion{
				Entity:        best.Entity,
				Category:      best.Category,
				Subcategory:   best.Subcategory,
				Tags:          slices.Clone(best.Tags),
				AIProcessed:   true,
				Confidence:    conf,
				Reasoning:     fmt.Sprintf("similar to %q (similarity %.2f)", best.Description, score),
				Source:        SourceHistory,
				TransactionID: best.ID,
			}, nil
		}
	}

	c.Log.Debug().Str("description", description).Str("amount", amount.String()).Msg("no categorization found")
	return Suggestion{
		AIProcessed: false,
		Reasoning:   "no rule or similar transaction found",
		Source:      SourceNone,
	}, nil
}

// bestHistoryMatch scans categorized non-transfer history for the highest
// similarity strictly above the threshold. The earliest row wins ties.
func (c *Categorizer) bestHistoryMatch(description string) (domain.Transaction, float64, bool) {
	var (
		best  domain.Transaction
		score float64
		found bool
	)
	for _, t := range c.History.Transactions() {
		if t.Type == domain.Transfer {
			continue
		}
		if t.Category == "" && t.Entity == "" {
			continue
		}
		s := Similarity(description, t.Description)
		if s <= c.Policy.SimilarityThreshold {
			continue
		}
		if !found || s > score {
			best, score, found = t, s, true
		}
	}
	return best, score, found
}

func ruleLabel(r domain.AIRule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
