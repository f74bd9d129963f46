// Package certificate issues completion certificates and verifies them publicly.
package certificate

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/render"
)

const (
	idLength    = 10
	maxAttempts = 5
	crockford   = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
)

var (
	idPattern     = regexp.MustCompile(`^[A-Z0-9]+-[0-9A-HJKMNP-TV-Z]{10}$`)
	prefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// Notifier receives a message for a user. It must not fail.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string)
}

// Service is the certificate issuance engine.
type Service struct {
	db       *gorm.DB
	renderer render.Renderer
	notifier Notifier
	prefix   string
	log      logrus.FieldLogger
	now      func() time.Time
	newID    func(prefix string) (string, error)
}

// NewService creates a certificate service minting ids with the given prefix.
func NewService(db *gorm.DB, renderer render.Renderer, notifier Notifier, prefix string, log logrus.FieldLogger) *Service {
	return &Service{
		db:       db,
		renderer: renderer,
		notifier: notifier,
		prefix:   strings.ToUpper(prefix),
		log:      log,
		now:      time.Now,
		newID:    generateID,
	}
}

// Eligibility is the task aggregate of an applicant for an internship.
type Eligibility struct {
	Eligible       bool `json:"eligible"`
	TotalTasks     int  `json:"total_tasks"`
	CompletedTasks int  `json:"completed_tasks"`
	Approved       bool `json:"approved"`
}

// Verification is the public answer to a certificate lookup. Only Valid is
// set when the id does not verify.
type Verification struct {
	Valid           bool       `json:"valid"`
	CertificateID   string     `json:"certificate_id,omitempty"`
	HolderName      string     `json:"holder_name,omitempty"`
	InternshipTitle string     `json:"internship_title,omitempty"`
	CompletionDate  *time.Time `json:"completion_date,omitempty"`
	DurationLabel   string     `json:"duration_label,omitempty"`
	FileURL         string     `json:"file_url,omitempty"`
}

// Eligible computes eligibility from the current task state.
func (s *Service) Eligible(ctx context.Context, applicantID uuid.UUID, internshipID uint) (Eligibility, error) {
	e, _, _, err := s.eligibility(s.db.WithContext(ctx), applicantID, internshipID)
	return e, err
}

func (s *Service) eligibility(db *gorm.DB, applicantID uuid.UUID, internshipID uint) (Eligibility, *model.Application, time.Time, error) {
	var tasks []model.AssignedTask
	if err := db.Where("applicant_id = ? AND internship_id = ?", applicantID, internshipID).Find(&tasks).Error; err != nil {
		return Eligibility{}, nil, time.Time{}, apperror.Internal("failed to load tasks", err)
	}
	e := Eligibility{TotalTasks: len(tasks)}
	var completedAt time.Time
	for _, t := range tasks {
		if t.Status != model.TaskStatusCompleted {
			continue
		}
		e.CompletedTasks++
		if t.UpdatedAt.After(completedAt) {
			completedAt = t.UpdatedAt
		}
	}

	var app model.Application
	err := db.Where("applicant_id = ? AND internship_id = ?", applicantID, internshipID).
		Where("status IN ? AND withdrawn_at IS NULL", []model.ApplicationStatus{model.ApplicationStatusApproved, model.ApplicationStatusOffered}).
		Order("id ASC").
		First(&app).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return Eligibility{}, nil, time.Time{}, apperror.Internal("failed to load application", err)
	default:
		e.Approved = true
	}

	e.Eligible = e.Approved && e.TotalTasks > 0 && e.CompletedTasks == e.TotalTasks
	if !e.Approved {
		return e, nil, completedAt, nil
	}
	return e, &app, completedAt, nil
}

// IssueCertificate returns the certificate of the pair, minting it when the
// applicant is eligible and none exists yet. Repeated calls return the same record.
func (s *Service) IssueCertificate(ctx context.Context, applicantID uuid.UUID, internshipID uint) (*model.Certificate, error) {
	cert, created, err := s.issue(ctx, applicantID, internshipID)
	entry := s.log.WithFields(logrus.Fields{"applicant_id": applicantID, "internship_id": internshipID})
	switch {
	case err != nil:
		metrics.RecordIssuance(string(apperror.KindOf(err)))
		if apperror.Is(err, apperror.KindInternal) || apperror.Is(err, apperror.KindRenderingFailed) {
			entry.WithError(err).Error("certificate issuance failed")
		} else {
			entry.WithField("kind", apperror.KindOf(err)).Info("certificate issuance refused")
		}
		return nil, err
	case !created:
		metrics.RecordIssuance("existing")
		entry.WithField("certificate_id", cert.CertificateID).Debug("certificate already issued")
		return cert, nil
	}
	metrics.RecordIssuance("issued")
	entry.WithField("certificate_id", cert.CertificateID).Info("certificate issued")
	s.notifier.Notify(ctx, applicantID, fmt.Sprintf("Congratulations! Your certificate for %s is ready. Certificate ID: %s", cert.InternshipTitle, cert.CertificateID))
	return cert, nil
}

func (s *Service) issue(ctx context.Context, applicantID uuid.UUID, internshipID uint) (*model.Certificate, bool, error) {
	db := s.db.WithContext(ctx)
	e, app, completedAt, err := s.eligibility(db, applicantID, internshipID)
	if err != nil {
		return nil, false, err
	}
	if !e.Eligible {
		return nil, false, apperror.New(apperror.KindNotEligible,
			fmt.Sprintf("Complete all assigned tasks first (%d of %d completed)", e.CompletedTasks, e.TotalTasks))
	}

	if existing, err := s.find(db, applicantID, internshipID); err != nil || existing != nil {
		return existing, false, err
	}

	var listing model.Internship
	if err := db.Select("id", "title").First(&listing, internshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperror.New(apperror.KindNotFound, "Internship not found")
		}
		return nil, false, apperror.Internal("failed to load internship", err)
	}

	now := s.now().UTC()
	if completedAt.IsZero() {
		completedAt = now
	}
	cert := model.Certificate{
		ApplicantID:     applicantID,
		InternshipID:    internshipID,
		HolderName:      app.CertificateName,
		InternshipTitle: listing.Title,
		CompletionDate:  completedAt.UTC(),
		DurationLabel:   fmt.Sprintf("%d Weeks", app.DurationWeeks),
		IssuedAt:        now,
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		id, err := s.newID(s.prefix)
		if err != nil {
			return nil, false, apperror.Internal("failed to generate certificate id", err)
		}
		cert.CertificateID = id

		// the document carries the id, so it is rendered again for every candidate
		fileURL, err := s.renderer.Render(ctx, render.Fields{
			CertificateID:   cert.CertificateID,
			HolderName:      cert.HolderName,
			InternshipTitle: cert.InternshipTitle,
			CompletionDate:  cert.CompletionDate,
			DurationLabel:   cert.DurationLabel,
		})
		if err != nil {
			return nil, false, apperror.Wrap(apperror.KindRenderingFailed, "Certificate could not be rendered, please retry", err)
		}
		cert.FileURL = fileURL

		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "applicant_id"}, {Name: "internship_id"}},
			DoNothing: true,
		}).Create(&cert)
		if database.IsUniqueViolation(res.Error, database.CertificateIDIndex) {
			s.log.WithField("certificate_id", id).Warn("certificate id collision, retrying")
			cert.ID = 0
			continue
		}
		if res.Error != nil {
			return nil, false, apperror.Internal("failed to save certificate", res.Error)
		}
		if res.RowsAffected == 0 {
			// a concurrent request won the pair
			winner, err := s.find(db, applicantID, internshipID)
			if err == nil && winner == nil {
				err = apperror.Internal("certificate vanished after conflict", nil)
			}
			return winner, false, err
		}
		return &cert, true, nil
	}
	return nil, false, apperror.Internal("could not allocate a unique certificate id", nil)
}

func (s *Service) find(db *gorm.DB, applicantID uuid.UUID, internshipID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := db.Where("applicant_id = ? AND internship_id = ?", applicantID, internshipID).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal("failed to load certificate", err)
	}
	return &cert, nil
}

// Verify looks a certificate up by its public id. It never reports why an id
// is not valid.
func (s *Service) Verify(ctx context.Context, certificateID string) Verification {
	id := strings.ToUpper(strings.TrimSpace(certificateID))
	if !idPattern.MatchString(id) {
		metrics.RecordVerification(false)
		return Verification{}
	}

	var cert model.Certificate
	err := s.db.WithContext(ctx).
		Where("certificate_id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM certificate_revocations r WHERE r.certificate_id = certificates.certificate_id)").
		First(&cert).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).Error("certificate verification lookup failed")
		}
		metrics.RecordVerification(false)
		return Verification{}
	}
	metrics.RecordVerification(true)
	completed := cert.CompletionDate
	return Verification{
		Valid:           true,
		CertificateID:   cert.CertificateID,
		HolderName:      cert.HolderName,
		InternshipTitle: cert.InternshipTitle,
		CompletionDate:  &completed,
		DurationLabel:   cert.DurationLabel,
		FileURL:         cert.FileURL,
	}
}

// ListMine returns the certificates held by an applicant.
func (s *Service) ListMine(ctx context.Context, applicantID uuid.UUID) ([]model.Certificate, error) {
	var out []model.Certificate
	if err := s.db.WithContext(ctx).Where("applicant_id = ?", applicantID).Order("issued_at DESC").Find(&out).Error; err != nil {
		return nil, apperror.Internal("failed to list certificates", err)
	}
	return out, nil
}

// Revoke records a tombstone for a certificate. The certificate row itself is
// left untouched; revoking twice keeps the first tombstone.
func (s *Service) Revoke(ctx context.Context, certificateID string, adminID uuid.UUID, reason string) (*model.CertificateRevocation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation("A reason is required", map[string]string{"reason": "Reason is required"})
	}
	id := strings.ToUpper(strings.TrimSpace(certificateID))

	var (
		cert       model.Certificate
		revocation model.CertificateRevocation
		created    bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("certificate_id = ?", id).First(&cert).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.KindNotFound, "Certificate not found")
			}
			return apperror.Internal("failed to load certificate", err)
		}
		candidate := model.CertificateRevocation{CertificateID: id, RevokedBy: adminID, Reason: reason}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate)
		if res.Error != nil {
			return apperror.Internal("failed to revoke certificate", res.Error)
		}
		created = res.RowsAffected == 1
		if err := tx.First(&revocation, "certificate_id = ?", id).Error; err != nil {
			return apperror.Internal("failed to load revocation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.log.WithFields(logrus.Fields{"certificate_id": id, "revoked_by": adminID}).Warn("certificate revoked")
		s.notifier.Notify(ctx, cert.ApplicantID, fmt.Sprintf("Your certificate %s for %s has been revoked: %s", id, cert.InternshipTitle, reason))
	}
	return &revocation, nil
}

// generateID returns "<prefix>-" followed by random Crockford base32 characters.
func generateID(prefix string) (string, error) {
	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("certificate prefix %q would not verify", prefix)
	}
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, idLength)
	for i, b := range buf {
		out[i] = crockford[int(b)%len(crockford)]
	}
	return prefix + "-" + string(out), nil
}
