package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
)

// ListCategories returns all categories, system-defined first, then by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), system_defined
		 FROM transaction_categories
		 ORDER BY system_defined DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SystemDefined); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategoryByName resolves a category name to its row, case-insensitively.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	c := &domain.Category{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), system_defined
		 FROM transaction_categories
		 WHERE LOWER(name) = LOWER(?)`, name).
		Scan(&c.ID, &c.Name, &c.Description, &c.SystemDefined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategoryByName: %w", err)
	}
	return c, nil
}

// CreateCategory inserts a custom (non-system) category.
func (s *Store) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transaction_categories (name, description, system_defined) VALUES (?, ?, 0)`,
		name, nullable(description))
	if err != nil {
		return nil, fmt.Errorf("CreateCategory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateCategory: last insert id: %w", err)
	}
	return &domain.Category{ID: id, Name: name, Description: description}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
