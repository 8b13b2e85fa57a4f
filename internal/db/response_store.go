package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maya/opportunity-hub/internal/models"
)

// AddResponse appends a collaboration message to a published
// opportunity and bumps its engagement counter in the same transaction.
func (s *Store) AddResponse(ctx context.Context, r *models.Response) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM opportunities WHERE id = $1", r.OpportunityID).Scan(&status)
	if err != nil {
		return uuid.Nil, fmt.Errorf("opportunity not found: %w", err)
	}
	if status != models.StatusPublished {
		return uuid.Nil, fmt.Errorf("opportunity is not published")
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO responses (opportunity_id, responder_id, responder_email, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.OpportunityID, r.ResponderID, r.ResponderEmail, r.Message).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("response insert failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE opportunities SET engagement_count = engagement_count + 1 WHERE id = $1
	`, r.OpportunityID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("engagement update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit failed: %w", err)
	}

	return id, nil
}

// ListResponses returns an opportunity's responses, newest first.
func (s *Store) ListResponses(ctx context.Context, opportunityID uuid.UUID) ([]models.Response, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, opportunity_id, responder_id, responder_email, message, created_at
		FROM responses
		WHERE opportunity_id = $1
		ORDER BY created_at DESC
	`, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("response query failed: %w", err)
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.ID, &r.OpportunityID, &r.ResponderID, &r.ResponderEmail, &r.Message, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}
