package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message to a user
type Notification struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	Read        bool       `gorm:"not null;default:false" json:"read"`
	ReadAt      *time.Time `gorm:"type:timestamptz" json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
