package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
)

// FindAccount looks up an existing bank account for (user, bank name, country
// code). Bank name matching is case-insensitive.
func (s *Store) FindAccount(ctx context.Context, userID int64, bankName, countryCode string) (*domain.BankAccount, error) {
	a := &domain.BankAccount{}
	err := s.db.QueryRowContext(ctx,
		`SELECT ba.id, ba.user_id, ba.country_id, ba.bank_name, ba.account_type,
		        COALESCE(ba.account_number_masked, ''), ba.currency, ba.confirmed, ba.is_active, ba.created_at
		 FROM bank_accounts ba
		 JOIN countries c ON ba.country_id = c.id
		 WHERE ba.user_id = ? AND LOWER(ba.bank_name) = LOWER(?) AND c.code = ?`,
		userID, bankName, countryCode).
		Scan(&a.ID, &a.UserID, &a.CountryID, &a.BankName, &a.AccountType,
			&a.AccountNumberMasked, &a.Currency, &a.Confirmed, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccount: %w", err)
	}
	return a, nil
}

// CreateAccount inserts a bank account. The currency is the country's
// currency; accounts created during statement import are confirmed.
func (s *Store) CreateAccount(ctx context.Context, userID int64, country *domain.Country, bankName, accountType string, confirmed bool) (*domain.BankAccount, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_accounts (user_id, country_id, bank_name, account_type, currency, confirmed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, country.ID, bankName, accountType, country.CurrencyCode, confirmed)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: last insert id: %w", err)
	}
	return &domain.BankAccount{
		ID:          id,
		UserID:      userID,
		CountryID:   country.ID,
		BankName:    bankName,
		AccountType: accountType,
		Currency:    country.CurrencyCode,
		Confirmed:   confirmed,
		IsActive:    true,
	}, nil
}

// ListAccountsByCountry returns a user's accounts in a country, newest first.
func (s *Store) ListAccountsByCountry(ctx context.Context, userID int64, countryCode string) ([]domain.BankAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ba.id, ba.user_id, ba.country_id, ba.bank_name, ba.account_type,
		        COALESCE(ba.account_number_masked, ''), ba.currency, ba.confirmed, ba.is_active, ba.created_at
		 FROM bank_accounts ba
		 JOIN countries c ON ba.country_id = c.id
		 WHERE ba.user_id = ? AND c.code = ?
		 ORDER BY ba.created_at DESC, ba.id DESC`,
		userID, countryCode)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsByCountry: %w", err)
	}
	defer rows.Close()

	var out []domain.BankAccount
	for rows.Next() {
		var a domain.BankAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.CountryID, &a.BankName, &a.AccountType,
			&a.AccountNumberMasked, &a.Currency, &a.Confirmed, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAccountsByCountry: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAccounts returns all of a user's accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]domain.BankAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, country_id, bank_name, account_type,
		        COALESCE(account_number_masked, ''), currency, confirmed, is_active, created_at
		 FROM bank_accounts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	defer rows.Close()

	var out []domain.BankAccount
	for rows.Next() {
		var a domain.BankAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.CountryID, &a.BankName, &a.AccountType,
			&a.AccountNumberMasked, &a.Currency, &a.Confirmed, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateManualAccount inserts an account added through the accounts page,
// with an optional masked account number.
func (s *Store) CreateManualAccount(ctx context.Context, userID int64, country *domain.Country, bankName, accountType, accountNumberMasked string, confirmed bool) (*domain.BankAccount, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_accounts
		 (user_id, country_id, bank_name, account_type, account_number_masked, currency, confirmed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, country.ID, bankName, accountType, nullable(accountNumberMasked), country.CurrencyCode, confirmed)
	if err != nil {
		return nil, fmt.Errorf("CreateManualAccount: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateManualAccount: last insert id: %w", err)
	}
	return &domain.BankAccount{
		ID:                  id,
		UserID:              userID,
		CountryID:           country.ID,
		BankName:            bankName,
		AccountType:         accountType,
		AccountNumberMasked: accountNumberMasked,
		Currency:            country.CurrencyCode,
		Confirmed:           confirmed,
		IsActive:            true,
	}, nil
}
