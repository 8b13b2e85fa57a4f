package models

import (
	"time"

	"github.com/google/uuid"
)

// Response is a collaboration message attached to a published
// opportunity. Append-only; displayed newest first.
type Response struct {
	ID             uuid.UUID `json:"id"`
	OpportunityID  uuid.UUID `json:"opportunity_id"`
	ResponderID    uuid.UUID `json:"responder_id"`
	ResponderEmail string    `json:"responder_email"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
