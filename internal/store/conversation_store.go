package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-assistant/internal/model"
)

// CreateConversation inserts a new conversation for the given user.
func (s *SQLiteStore) CreateConversation(
	ctx context.Context,
	userID, title string,
) (*model.Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}

	now := time.Now().UTC()
	conv := model.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, pending_flow, pending_task_id, created_at, updated_at)
		VALUES (?, ?, ?, '', NULL, ?, ?)`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return &conv, nil
}

// GetConversation retrieves a conversation by ID, scoped to its owner.
func (s *SQLiteStore) GetConversation(
	ctx context.Context,
	conversationID, userID string,
) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.GetContext(ctx, &conv,
		"SELECT * FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

// GetUserConversations retrieves all conversations for a user, newest first.
func (s *SQLiteStore) GetUserConversations(
	ctx context.Context,
	userID string,
) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.SelectContext(ctx, &convs,
		"SELECT * FROM conversations WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	return convs, nil
}

// UpdateConversationTitle sets the title of a conversation. Owner-scoped.
func (s *SQLiteStore) UpdateConversationTitle(
	ctx context.Context,
	conversationID, userID, title string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		title, time.Now().UTC(), conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation %s title: %w", conversationID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetConversationFlow records (or clears) the pending multi-turn flow marker.
func (s *SQLiteStore) SetConversationFlow(
	ctx context.Context,
	conversationID, flow string,
	pendingTaskID *string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET pending_flow = ?, pending_task_id = ?, updated_at = ?
		WHERE id = ?`,
		flow, pendingTaskID, time.Now().UTC(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("setting conversation %s flow: %w", conversationID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage appends a message to a conversation. The timestamp is
// clamped to be non-decreasing relative to the latest message in the thread.
func (s *SQLiteStore) CreateMessage(
	ctx context.Context,
	conversationID, role, content string,
	metadata map[string]any,
) (*model.Message, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling message metadata: %w", err)
	}

	now := time.Now().UTC()
	var latest time.Time
	err = s.db.GetContext(ctx, &latest, `
		SELECT timestamp FROM messages WHERE conversation_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`,
		conversationID,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading latest message timestamp: %w", err)
	}
	if err == nil && now.Before(latest) {
		now = latest
	}

	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		Timestamp:      now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, string(metadataJSON), msg.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	return &msg, nil
}

// GetConversationMessages retrieves all messages for a conversation in
// chronological order.
func (s *SQLiteStore) GetConversationMessages(
	ctx context.Context,
	conversationID string,
) ([]model.Message, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetLatestMessages retrieves the newest limit messages for a conversation,
// returned in chronological order.
func (s *SQLiteStore) GetLatestMessages(
	ctx context.Context,
	conversationID string,
	limit int,
) ([]model.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryxContext(ctx, `
		SELECT * FROM (
			SELECT * FROM messages WHERE conversation_id = ?
			ORDER BY timestamp DESC, id DESC LIMIT ?
		) ORDER BY timestamp ASC, id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying latest messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// scanMessages scans message rows, decoding the metadata JSON column.
func scanMessages(rows *sqlx.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var (
			msg          model.Message
			metadataJSON string
		)
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&metadataJSON, &msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
