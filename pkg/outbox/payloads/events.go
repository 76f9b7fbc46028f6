package payloads

import (
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	"github.com/google/uuid"
)

// QuoteSubmittedEvent is emitted once a quote email has been dispatched.
type QuoteSubmittedEvent struct {
	QuoteID           uuid.UUID               `json:"quote_id"`
	SessionID         string                  `json:"session_id,omitempty"`
	ClientName        string                  `json:"client_name"`
	Email             string                  `json:"email"`
	Phone             string                  `json:"phone"`
	ContactPreference enums.ContactPreference `json:"contact_preference"`
	LineCount         int                     `json:"line_count"`
	TotalItems        int                     `json:"total_items"`
	TotalAmount       string                  `json:"total_amount"`
	ArchivePath       string                  `json:"archive_path,omitempty"`
	SubmittedAt       time.Time               `json:"submitted_at"`
}
