package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanveerk/finhub/internal/domain"
)

// ImportStatus is the per-row outcome of a statement import.
type ImportStatus string

const (
	ImportInserted         ImportStatus = "inserted"
	ImportSkippedDuplicate ImportStatus = "skipped_duplicate"
	ImportFailed           ImportStatus = "failed"
)

// ImportOutcome records what happened to one candidate during import.
type ImportOutcome struct {
	Index         int          `json:"index"`
	Status        ImportStatus `json:"status"`
	TransactionID int64        `json:"transactionId,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// ImportResult summarizes an import batch. Inserted + SkippedDuplicates +
// Failed always equals len(Outcomes).
type ImportResult struct {
	Outcomes          []ImportOutcome `json:"outcomes"`
	Inserted          int             `json:"inserted"`
	SkippedDuplicates int             `json:"skippedDuplicates"`
	Failed            int             `json:"failed"`
}

const dateLayout = "2006-01-02"

// InsertTransactions persists candidates that are not already present.
//
// A candidate is a duplicate when an existing row for the same account matches
// its date and amount and either text field. The comparison is intentionally
// loose on the text side so that re-importing the same statement is caught
// even when only one of description/merchant survived the earlier import.
//
// Inserts run one row at a time in autocommit mode and a failed row does not
// abort the batch; the outcome list reports every row's fate to the caller.
func (s *Store) InsertTransactions(ctx context.Context, userID, accountID int64, currency string, candidates []domain.TransactionCandidate) (*ImportResult, error) {
	result := &ImportResult{Outcomes: make([]ImportOutcome, 0, len(candidates))}

	for i, c := range candidates {
		date := c.Date.Format(dateLayout)
		amount := c.Amount.StringFixed(2)

		var existing int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM transactions
			 WHERE bank_account_id = ?
			   AND transaction_date = ?
			   AND amount = ?
			   AND (description = ? OR merchant = ?)
			 LIMIT 1`,
			accountID, date, amount, c.Description, c.Merchant).Scan(&existing)
		switch {
		case err == nil:
			result.Outcomes = append(result.Outcomes, ImportOutcome{Index: i, Status: ImportSkippedDuplicate})
			result.SkippedDuplicates++
			continue
		case !errors.Is(err, sql.ErrNoRows):
			// Lookup failures count against the row, not the batch.
			result.Outcomes = append(result.Outcomes, ImportOutcome{
				Index: i, Status: ImportFailed,
				Reason: fmt.Sprintf("duplicate check: %v", err),
			})
			result.Failed++
			continue
		}

		res, err := s.db.ExecContext(ctx,
			`INSERT INTO transactions
			 (user_id, bank_account_id, transaction_date, amount, currency,
			  description, merchant, transaction_type, category_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, accountID, date, amount, currency,
			c.Description, c.Merchant, c.Type, c.CategoryID)
		if err != nil {
			result.Outcomes = append(result.Outcomes, ImportOutcome{
				Index: i, Status: ImportFailed, Reason: err.Error(),
			})
			result.Failed++
			continue
		}

		id, _ := res.LastInsertId()
		result.Outcomes = append(result.Outcomes, ImportOutcome{Index: i, Status: ImportInserted, TransactionID: id})
		result.Inserted++
	}

	return result, nil
}

// SpendSummary returns total debit spend for the last N days in a country,
// as a positive magnitude.
func (s *Store) SpendSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error) {
	return s.flowSummary(ctx, userID, countryCode, days, domain.TransactionDebit)
}

// IncomeSummary returns total credit income for the last N days in a country.
func (s *Store) IncomeSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error) {
	return s.flowSummary(ctx, userID, countryCode, days, domain.TransactionCredit)
}

func (s *Store) flowSummary(ctx context.Context, userID int64, countryCode string, days int, txType string) (float64, error) {
	since := time.Now().AddDate(0, 0, -days).Format(dateLayout)

	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(t.amount)), 0)
		 FROM transactions t
		 JOIN bank_accounts ba ON t.bank_account_id = ba.id
		 JOIN countries c ON ba.country_id = c.id
		 WHERE t.user_id = ? AND c.code = ? AND t.transaction_type = ?
		   AND t.transaction_date >= ?`,
		userID, countryCode, txType, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("flowSummary: %w", err)
	}
	return total, nil
}

// RecentTransactions returns a user's most recent transactions in a country.
func (s *Store) RecentTransactions(ctx context.Context, userID int64, countryCode string, limit int) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.bank_account_id, t.transaction_date, t.amount,
		        t.currency, t.description, t.merchant, t.transaction_type, t.category_id, t.created_at
		 FROM transactions t
		 JOIN bank_accounts ba ON t.bank_account_id = ba.id
		 JOIN countries c ON ba.country_id = c.id
		 WHERE t.user_id = ? AND c.code = ?
		 ORDER BY t.transaction_date DESC, t.id DESC
		 LIMIT ?`,
		userID, countryCode, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentTransactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// CategorySpend is one row of a category breakdown.
type CategorySpend struct {
	Category string  `json:"category"`
	Spend    float64 `json:"spend"`
}

// CategoryBreakdown returns debit spend grouped by category for a country,
// optionally bounded by an inclusive date range. Uncategorized rows group
// under an empty category name.
func (s *Store) CategoryBreakdown(ctx context.Context, userID int64, countryCode string, fromDate, toDate string) ([]CategorySpend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(tc.name, ''),
		        COALESCE(SUM(CASE WHEN t.transaction_type = 'debit' THEN ABS(t.amount) ELSE 0 END), 0) AS spend
		 FROM transactions t
		 JOIN bank_accounts ba ON t.bank_account_id = ba.id
		 JOIN countries c ON ba.country_id = c.id
		 LEFT JOIN transaction_categories tc ON t.category_id = tc.id
		 WHERE t.user_id = ? AND c.code = ?
		   AND (? = '' OR t.transaction_date >= ?)
		   AND (? = '' OR t.transaction_date <= ?)
		 GROUP BY tc.name
		 ORDER BY spend DESC`,
		userID, countryCode, fromDate, fromDate, toDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("CategoryBreakdown: %w", err)
	}
	defer rows.Close()

	var out []CategorySpend
	for rows.Next() {
		var cs CategorySpend
		if err := rows.Scan(&cs.Category, &cs.Spend); err != nil {
			return nil, fmt.Errorf("CategoryBreakdown: scan: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.UserID, &t.BankAccountID, &t.Date, &amount,
			&t.Currency, &t.Description, &t.Merchant, &t.Type, &t.CategoryID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanTransactions: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("scanTransactions: amount %q: %w", amount, err)
		}
		t.Amount = dec
		out = append(out, t)
	}
	return out, rows.Err()
}
