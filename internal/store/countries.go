package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
)

// GetCountryByCode looks a country up by its code (e.g. "UK", "IN").
func (s *Store) GetCountryByCode(ctx context.Context, code string) (*domain.Country, error) {
	c := &domain.Country{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, currency_code FROM countries WHERE code = ?`, code).
		Scan(&c.ID, &c.Code, &c.Name, &c.CurrencyCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCountryByCode: %w", err)
	}
	return c, nil
}

// ListCountries returns all supported countries ordered by name.
func (s *Store) ListCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, currency_code FROM countries ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("ListCountries: %w", err)
	}
	defer rows.Close()

	var out []domain.Country
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.CurrencyCode); err != nil {
			return nil, fmt.Errorf("ListCountries: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
