package repository

import (
	"context"
	"fmt"

	"github.com/jask/jaskledger/internal/domain"
)

// RuleRepo stores categorization rules.
type RuleRepo struct{ db DBTX }

func NewRuleRepo(db DBTX) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) ReplaceAll(ctx context.Context, rules []domain.AIRule) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return err
	}
	for i, rule := range rules {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO rules(id, position, name, pattern, pattern_type, entity, category, subcategory,
		 tags, confidence, priority, active)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rule.ID, i, rule.Name, rule.Pattern, string(rule.PatternType), rule.Entity, rule.Category,
			rule.Subcategory, encodeList(rule.Tags), rule.Confidence, rule.Priority, boolInt(rule.Active))
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", rule.ID, err)
		}
	}
	return nil
}

// List returns rules in insertion order; priority ordering is the matcher's job.
func (r *RuleRepo) List(ctx context.Context) ([]domain.AIRule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, pattern, pattern_type, entity, category, subcategory, tags, confidence, priority, active
	FROM rules ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AIRule
	for rows.Next() {
		var (
			rule      domain.AIRule
			typ, tags string
			active    int
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Pattern, &typ, &rule.Entity, &rule.Category,
			&rule.Subcategory, &tags, &rule.Confidence, &rule.Priority, &active); err != nil {
			return nil, err
		}
		rule.PatternType = domain.PatternType(typ)
		rule.Active = active != 0
		if rule.Tags, err = decodeList(tags); err != nil {
			return nil, fmt.Errorf("rule %s tags: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
