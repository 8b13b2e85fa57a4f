package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in a thread transcript. Messages are stored
// append-only and ordered by CreatedAt; retrieval is most-recent-first
// with a limit, then reversed for display.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	ThreadID   uuid.UUID `json:"thread_id"`
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ShowCanvas bool      `json:"show_canvas"` // invites navigation to the canvas
	CreatedAt  time.Time `json:"created_at"`
}

// Thread groups a chat transcript with at most one in-progress
// opportunity draft. IDs may be client-generated; the row is persisted
// lazily when the first message is sent.
type Thread struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
