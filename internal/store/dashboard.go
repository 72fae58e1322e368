package store

import (
	"context"
	"fmt"
)

// MonthlyFlow is one month's debit/credit totals.
type MonthlyFlow struct {
	Month  string  `json:"month"`
	Spend  float64 `json:"spend"`
	Income float64 `json:"income"`
}

// MonthlyTotals returns per-month spend and income for a country over the
// last N months, oldest first.
func (s *Store) MonthlyTotals(ctx context.Context, userID int64, countryCode string, months int) ([]MonthlyFlow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', t.transaction_date) AS month,
		        COALESCE(SUM(CASE WHEN t.transaction_type = 'debit' THEN ABS(t.amount) ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN t.transaction_type = 'credit' THEN ABS(t.amount) ELSE 0 END), 0)
		 FROM transactions t
		 JOIN bank_accounts ba ON t.bank_account_id = ba.id
		 JOIN countries c ON ba.country_id = c.id
		 WHERE t.user_id = ? AND c.code = ?
		   AND t.transaction_date >= date('now', ?)
		 GROUP BY month
		 ORDER BY month ASC`,
		userID, countryCode, fmt.Sprintf("-%d months", months))
	if err != nil {
		return nil, fmt.Errorf("MonthlyTotals: %w", err)
	}
	defer rows.Close()

	var out []MonthlyFlow
	for rows.Next() {
		var m MonthlyFlow
		if err := rows.Scan(&m.Month, &m.Spend, &m.Income); err != nil {
			return nil, fmt.Errorf("MonthlyTotals: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
