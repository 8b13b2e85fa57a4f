package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maya/opportunity-hub/internal/models"
)

// EnsureThread lazily persists a thread. Thread IDs are client
// generated, so the row may already exist; first write wins.
func (s *Store) EnsureThread(ctx context.Context, thread models.Thread) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO threads (id, user_id, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, thread.ID, thread.UserID, thread.Title)
	if err != nil {
		return fmt.Errorf("thread insert failed: %w", err)
	}
	return nil
}

func (s *Store) GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	var t models.Thread
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at FROM threads WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("thread not found: %w", err)
	}
	return &t, nil
}

func (s *Store) ListThreads(ctx context.Context, userID uuid.UUID) ([]models.Thread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, created_at
		FROM threads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("thread query failed: %w", err)
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.ChatMessage) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (thread_id, user_id, role, content, show_canvas)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, msg.ThreadID, msg.UserID, msg.Role, msg.Content, msg.ShowCanvas).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("message insert failed: %w", err)
	}
	return id, nil
}

// ListMessages returns the most recent limit messages of a thread in
// display order. The store reads newest-first, then the slice is
// reversed so callers render oldest-first.
func (s *Store) ListMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, thread_id, user_id, role, content, show_canvas, created_at
		FROM chat_messages
		WHERE thread_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("message query failed: %w", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.UserID, &m.Role, &m.Content, &m.ShowCanvas, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
