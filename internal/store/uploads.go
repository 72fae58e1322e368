package store

import (
	"context"
	"fmt"
)

// RecordUpload writes the audit row for a completed statement import.
func (s *Store) RecordUpload(ctx context.Context, userID, accountID int64, fileName, bankDetected string, transactionCount int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_uploads (user_id, bank_account_id, file_name, bank_detected, transaction_count, upload_status)
		 VALUES (?, ?, ?, ?, ?, 'processed')`,
		userID, accountID, fileName, bankDetected, transactionCount)
	if err != nil {
		return fmt.Errorf("RecordUpload: %w", err)
	}
	return nil
}
