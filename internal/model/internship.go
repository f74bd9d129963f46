package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EditableInternshipInfo is part of internship listing that admin can edit
type EditableInternshipInfo struct {
	Title           string          `gorm:"type:text;not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	Domain          string          `gorm:"type:text" json:"domain"`
	RegistrationFee decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"registration_fee"`
	IsAccepting     bool            `gorm:"not null" json:"is_accepting"`
}

// Internship is a listing with a limited number of seats.
// CurrentRegistrations is the single authoritative seat counter and is only
// changed through the capacity ledger.
type Internship struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	EditableInternshipInfo
	TotalPositions       int       `gorm:"not null;check:total_positions >= 0" json:"total_positions"`
	CurrentRegistrations int       `gorm:"not null;default:0;check:chk_internship_seats,current_registrations >= 0 AND current_registrations <= total_positions" json:"current_registrations"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FreeSeats returns number of seats not yet consumed
func (i Internship) FreeSeats() int {
	free := i.TotalPositions - i.CurrentRegistrations
	if free < 0 {
		return 0
	}
	return free
}
