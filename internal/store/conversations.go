package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
)

// CreateConversation inserts a conversation for a user.
func (s *Store) CreateConversation(ctx context.Context, userID int64, title, pageRoute string) (*domain.Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_conversations (user_id, title, page_route) VALUES (?, ?, ?)`,
		userID, nullable(title), nullable(pageRoute))
	if err != nil {
		return nil, fmt.Errorf("CreateConversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateConversation: last insert id: %w", err)
	}
	return s.GetConversation(ctx, userID, id)
}

// GetConversation fetches a conversation scoped to its owner. A conversation
// belonging to another user is ErrNotFound, not a permission error.
func (s *Store) GetConversation(ctx context.Context, userID, conversationID int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(title, ''), COALESCE(page_route, ''), created_at, updated_at
		 FROM ai_conversations
		 WHERE id = ? AND user_id = ?`,
		conversationID, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.PageRoute, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConversation: %w", err)
	}
	return c, nil
}

// ListConversations returns a user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID int64, limit int) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, COALESCE(title, ''), COALESCE(page_route, ''), created_at, updated_at
		 FROM ai_conversations
		 WHERE user_id = ?
		 ORDER BY updated_at DESC, id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListConversations: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.PageRoute, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListConversations: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TouchConversation bumps updated_at so the conversation sorts to the top of
// recency-ordered lists.
func (s *Store) TouchConversation(ctx context.Context, conversationID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE ai_conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		conversationID); err != nil {
		return fmt.Errorf("TouchConversation: %w", err)
	}
	return nil
}
