package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
)

// QuoteRequest is the audit record of a dispatched quote.
type QuoteRequest struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	SessionID         *string                 `gorm:"column:session_id"`
	FirstName         string                  `gorm:"column:first_name;not null"`
	LastName          string                  `gorm:"column:last_name;not null"`
	Email             string                  `gorm:"column:email;not null"`
	Phone             string                  `gorm:"column:phone;not null"`
	ContactPreference enums.ContactPreference `gorm:"column:contact_preference;type:varchar(16);not null"`
	Items             json.RawMessage         `gorm:"column:items;type:jsonb;not null"`
	TotalItems        int                     `gorm:"column:total_items;not null"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(14,2);not null"`
	AttachmentName    string                  `gorm:"column:attachment_name;not null"`
	ArchivePath       *string                 `gorm:"column:archive_path"`
	SubmittedAt       time.Time               `gorm:"column:submitted_at;not null"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (QuoteRequest) TableName() string { return "quote_requests" }

func (q *QuoteRequest) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
