package models

import "time"

// CartSnapshot holds the serialized cart of one session under a storage key.
type CartSnapshot struct {
	SessionID  string    `gorm:"column:session_id;primaryKey"`
	StorageKey string    `gorm:"column:storage_key;primaryKey"`
	Payload    string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (CartSnapshot) TableName() string { return "cart_snapshots" }
