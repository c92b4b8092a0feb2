package repository

import (
	"context"
	"fmt"

	"github.com/jask/jaskledger/internal/domain"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) ReplaceAll(ctx context.Context, cats []domain.Category) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return err
	}
	for i, c := range cats {
		_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(id, position, name, type, subcategories) VALUES (?, ?, ?, ?, ?)
		`, c.ID, i, c.Name, string(c.Type), encodeList(c.Subcategories))
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.Name, err)
		}
	}
	return nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, subcategories FROM categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		var typ, subs string
		if err := rows.Scan(&c.ID, &c.Name, &typ, &subs); err != nil {
			return nil, err
		}
		c.Type = domain.TransactionType(typ)
		if c.Subcategories, err = decodeList(subs); err != nil {
			return nil, fmt.Errorf("category %s subcategories: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EntityRepo handles entities.
type EntityRepo struct {
	db DBTX
}

func NewEntityRepo(db DBTX) *EntityRepo { return &EntityRepo{db: db} }

func (r *EntityRepo) ReplaceAll(ctx context.Context, ents []domain.Entity) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return err
	}
	for i, e := range ents {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO entities(id, position, name, category) VALUES (?, ?, ?, ?)`,
			e.ID, i, e.Name, e.Category); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.Name, err)
		}
	}
	return nil
}

func (r *EntityRepo) List(ctx context.Context) ([]domain.Entity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, category FROM entities ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Category); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
