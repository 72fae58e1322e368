package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
)

// AddMessage appends a message to a conversation. The autoincrement id is the
// conversation's replay order.
func (s *Store) AddMessage(ctx context.Context, conversationID int64, role, content, toolName, toolPayload string) (*domain.ChatMessage, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_messages (conversation_id, role, content, tool_name, tool_payload)
		 VALUES (?, ?, ?, ?, ?)`,
		conversationID, role, content, nullable(toolName), nullable(toolPayload))
	if err != nil {
		return nil, fmt.Errorf("AddMessage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("AddMessage: last insert id: %w", err)
	}

	m := &domain.ChatMessage{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, COALESCE(tool_name, ''), COALESCE(tool_payload, ''), created_at
		 FROM ai_messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ToolName, &m.ToolPayload, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("AddMessage: read back: %w", err)
	}
	return m, nil
}

// GetMessages returns a conversation's full transcript in creation order.
func (s *Store) GetMessages(ctx context.Context, conversationID int64) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, COALESCE(tool_name, ''), COALESCE(tool_payload, ''), created_at
		 FROM ai_messages
		 WHERE conversation_id = ?
		 ORDER BY id ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("GetMessages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetRecentMessages returns the most recent N messages, oldest first.
func (s *Store) GetRecentMessages(ctx context.Context, conversationID int64, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, COALESCE(tool_name, ''), COALESCE(tool_payload, ''), created_at
		 FROM ai_messages
		 WHERE conversation_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetRecentMessages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func scanMessages(rows *sql.Rows) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ToolName, &m.ToolPayload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanMessages: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
