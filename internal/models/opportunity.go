package models

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity statuses. Transitions are limited to draft<->published.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Canonical section keys used in the sections mapping.
const (
	SectionRoles       = "roles"
	SectionNextSteps   = "nextSteps"
	SectionConnections = "connections"
)

// Section is a named group of items inside an opportunity canvas,
// e.g. the "Who I'm Looking to Collaborate With" list.
type Section struct {
	Heading string   `json:"heading"`
	Items   []string `json:"items"`
}

type Opportunity struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Content         string             `json:"content"` // rendered HTML body
	Sections        map[string]Section `json:"sections"`
	Tags            []string           `json:"tags"`
	Status          string             `json:"status"`
	CreatedBy       uuid.UUID          `json:"created_by"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	EngagementCount int                `json:"engagement_count"`
	LikeCount       int                `json:"like_count"`
}

// ValidStatusTransition reports whether an opportunity may move from
// one status to another. Only draft->published and published->draft
// are allowed; same-status writes are fine.
func ValidStatusTransition(from, to string) bool {
	if to != StatusDraft && to != StatusPublished {
		return false
	}
	if from == "" {
		return true
	}
	return from == StatusDraft || from == StatusPublished
}
