// Package model contain gorm model for recording data to database
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role of user
const (
	RoleAdmin     = "admin"
	RoleApplicant = "applicant"
)

// ContactInfo is the delivery address of a user for external notification channels
type ContactInfo struct {
	Tel   *string `gorm:"type:text" json:"tel"`
	Email *string `gorm:"type:text" json:"email"`
}

// User is a caller known to the system. Authentication happens elsewhere;
// the id is the subject of the access token presented to the API.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Username string    `gorm:"type:text;uniqueIndex;not null" json:"username"`
	Role     string    `gorm:"type:text;not null;check:role IN ('admin', 'applicant')" json:"role"`
	ContactInfo
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsAdmin reports whether the user has the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
