package model

import "time"

// File is an uploaded blob. Content is kept in the database when no cloud
// bucket is configured, otherwise ObjectName points into the bucket.
type File struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Content    []byte    `json:"-"`
	ObjectName *string   `gorm:"type:text"`
	Extension  string    `gorm:"type:text;not null"`
	Category   string    `gorm:"type:text;not null"`
	OwnerID    *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
