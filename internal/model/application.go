package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationStatus is the closed set of review states of an application
type ApplicationStatus string

const (
	// ApplicationStatusPending indicates that the application is waiting for admin review
	ApplicationStatusPending ApplicationStatus = "pending"
	// ApplicationStatusApproved indicates that the application consumed a seat
	ApplicationStatusApproved ApplicationStatus = "approved"
	// ApplicationStatusOffered indicates that an approved applicant has been promoted to an offer
	ApplicationStatusOffered ApplicationStatus = "offered"
	// ApplicationStatusRejected indicates that the application has been rejected
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is a known application status
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusOffered, ApplicationStatusRejected:
		return true
	}
	return false
}

// HoldsSeat reports whether an application in this status occupies a seat
func (s ApplicationStatus) HoldsSeat() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusOffered
}

// Application is a payment-claim application against an internship
type Application struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"applicant_id"`
	Applicant    User       `gorm:"foreignKey:ApplicantID;references:ID" json:"-"`
	InternshipID uint       `gorm:"not null;index" json:"internship_id"`
	Internship   Internship `gorm:"foreignKey:InternshipID;references:ID" json:"-"`

	DurationWeeks    int    `gorm:"not null" json:"duration_weeks"`
	CertificateName  string `gorm:"type:text;not null" json:"certificate_name"`
	PaymentReference string `gorm:"type:text;not null" json:"payment_reference"`
	PaymentProofRef  string `gorm:"type:text;not null" json:"payment_proof_ref"`

	Status          ApplicationStatus `gorm:"type:text;not null;default:'pending';check:status IN ('pending', 'approved', 'offered', 'rejected')" json:"status"`
	RejectionReason *string           `gorm:"type:text" json:"rejection_reason,omitempty"`

	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null;<-:create" json:"amount"`
	DateApplied time.Time       `gorm:"type:timestamptz;not null;<-:create" json:"date_applied"`
	WithdrawnAt *time.Time      `gorm:"type:timestamptz" json:"withdrawn_at,omitempty"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Active reports whether the application is approved or offered and not withdrawn
func (a Application) Active() bool {
	return a.WithdrawnAt == nil && a.Status.HoldsSeat()
}

// ApplicationReview is an audit record of one status transition
type ApplicationReview struct {
	ID            uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID uint              `gorm:"not null;index" json:"application_id"`
	Application   Application       `gorm:"foreignKey:ApplicationID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	ReviewerID    uuid.UUID         `gorm:"type:uuid;not null" json:"reviewer_id"`
	Action        string            `gorm:"type:text;not null" json:"action"`
	FromStatus    ApplicationStatus `gorm:"type:text;not null" json:"from_status"`
	ToStatus      ApplicationStatus `gorm:"type:text;not null" json:"to_status"`
	Note          string            `gorm:"type:text" json:"note"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
