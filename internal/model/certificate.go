package model

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the immutable proof of completion of an internship.
// Only one may exist for an applicant and internship pair.
type Certificate struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ApplicantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_pair" json:"applicant_id"`
	InternshipID    uint      `gorm:"not null;uniqueIndex:idx_certificate_pair" json:"internship_id"`
	CertificateID   string    `gorm:"type:text;not null;uniqueIndex:idx_certificates_certificate_id" json:"certificate_id"`
	HolderName      string    `gorm:"type:text;not null" json:"holder_name"`
	InternshipTitle string    `gorm:"type:text;not null" json:"internship_title"`
	CompletionDate  time.Time `gorm:"type:timestamptz;not null" json:"completion_date"`
	DurationLabel   string    `gorm:"type:text;not null" json:"duration_label"`
	FileURL         string    `gorm:"type:text;not null" json:"file_url"`
	IssuedAt        time.Time `gorm:"type:timestamptz;not null" json:"issued_at"`
}

// CertificateRevocation is a tombstone for a certificate that must no longer verify
type CertificateRevocation struct {
	CertificateID string    `gorm:"type:text;primaryKey" json:"certificate_id"`
	RevokedBy     uuid.UUID `gorm:"type:uuid;not null" json:"revoked_by"`
	Reason        string    `gorm:"type:text;not null" json:"reason"`
	RevokedAt     time.Time `gorm:"autoCreateTime" json:"revoked_at"`
}
