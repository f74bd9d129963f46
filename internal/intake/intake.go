// Package intake records payment-claim applications.
//
// Submission never touches the seat counter. A free seat is only required to
// accept the claim; the seat itself is consumed when an admin approves it.
package intake

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/blob"
	"InternHub-backend/internal/capacity"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
)

// InternshipGetter looks up internship listings.
type InternshipGetter interface {
	GetInternship(ctx context.Context, id uint) (*model.Internship, error)
}

// ProofChecker reports whether an uploaded file reference belongs to owner.
type ProofChecker interface {
	OwnedBy(ctx context.Context, ref, category string, owner uuid.UUID) (bool, error)
}

// SubmitInput is an application as submitted by an applicant.
type SubmitInput struct {
	ApplicantID      uuid.UUID
	InternshipID     uint
	DurationWeeks    int
	CertificateName  string
	PaymentReference string
	PaymentProofRef  string
}

// Service implements application intake.
type Service struct {
	db        *gorm.DB
	catalog   InternshipGetter
	ledger    *capacity.Ledger
	proofs    ProofChecker
	durations []int
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates an intake service accepting the given durations in weeks.
func NewService(db *gorm.DB, catalog InternshipGetter, ledger *capacity.Ledger, proofs ProofChecker, durations []int, log logrus.FieldLogger) *Service {
	return &Service{
		db:        db,
		catalog:   catalog,
		ledger:    ledger,
		proofs:    proofs,
		durations: durations,
		log:       log,
		now:       time.Now,
	}
}

// SubmitApplication validates and records a pending application.
func (s *Service) SubmitApplication(ctx context.Context, in SubmitInput) (*model.Application, error) {
	app, err := s.submit(ctx, in)
	metrics.RecordApplication(string(apperror.KindOf(err)))
	if err != nil {
		entry := s.log.WithFields(logrus.Fields{"internship_id": in.InternshipID, "kind": apperror.KindOf(err)})
		if apperror.Is(err, apperror.KindInternal) {
			entry.WithError(err).Error("application submission failed")
		} else {
			entry.Info("application refused")
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"application_id": app.ID, "internship_id": app.InternshipID}).Info("application submitted")
	return app, nil
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (*model.Application, error) {
	listing, err := s.catalog.GetInternship(ctx, in.InternshipID)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, apperror.New(apperror.KindCapacityExhausted, "This internship is not accepting applications or has no seats left")
	}
	if err != nil {
		return nil, err
	}
	if !s.ledger.HasFreeSeat(*listing) {
		return nil, apperror.New(apperror.KindCapacityExhausted, "This internship is not accepting applications or has no seats left")
	}

	if !slices.Contains(s.durations, in.DurationWeeks) {
		return nil, apperror.New(apperror.KindInvalidDuration, "Requested duration is not offered")
	}

	certificateName := strings.TrimSpace(in.CertificateName)
	paymentReference := strings.TrimSpace(in.PaymentReference)
	proofRef := strings.TrimSpace(in.PaymentProofRef)
	fields := map[string]string{}
	if certificateName == "" {
		fields["certificate_name"] = "Certificate name is required"
	}
	if paymentReference == "" {
		fields["payment_reference"] = "Payment reference is required"
	}
	if proofRef == "" {
		fields["payment_proof_ref"] = "Payment proof is required"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid application", fields)
	}
	ok, err := s.proofs.OwnedBy(ctx, proofRef, blob.CategoryPaymentProof, in.ApplicantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Validation("Invalid application", map[string]string{
			"payment_proof_ref": "Payment proof not found",
		})
	}

	claimed, err := s.referenceClaimed(ctx, in.InternshipID, paymentReference)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, duplicateReference()
	}

	app := &model.Application{
		ApplicantID:      in.ApplicantID,
		InternshipID:     listing.ID,
		DurationWeeks:    in.DurationWeeks,
		CertificateName:  certificateName,
		PaymentReference: paymentReference,
		PaymentProofRef:  proofRef,
		Status:           model.ApplicationStatusPending,
		Amount:           listing.RegistrationFee,
		DateApplied:      s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		// a concurrent claim won the race past the check above
		if database.IsUniqueViolation(err, database.PaymentReferenceIndex) {
			return nil, duplicateReference()
		}
		return nil, apperror.Internal("failed to create application", err)
	}
	return app, nil
}

func (s *Service) referenceClaimed(ctx context.Context, internshipID uint, reference string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("internship_id = ? AND payment_reference = ?", internshipID, reference).
		Where("status <> ? AND withdrawn_at IS NULL", model.ApplicationStatusRejected).
		Count(&count).Error
	if err != nil {
		return false, apperror.Internal("failed to check payment reference", err)
	}
	return count > 0, nil
}

func duplicateReference() error {
	return apperror.New(apperror.KindDuplicatePaymentReference, "This payment reference has already been used for this internship")
}

// ListMine returns the applications of applicantID, newest first.
func (s *Service) ListMine(ctx context.Context, applicantID uuid.UUID) ([]model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Where("applicant_id = ?", applicantID).
		Order("date_applied DESC, id DESC").
		Find(&apps).Error
	if err != nil {
		return nil, apperror.Internal("failed to list applications", err)
	}
	return apps, nil
}

// Withdraw soft-withdraws a pending application of applicantID. Applications
// of other applicants read as not found.
func (s *Service) Withdraw(ctx context.Context, applicantID uuid.UUID, applicationID uint) (*model.Application, error) {
	var app model.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND applicant_id = ?", applicationID, applicantID).
			First(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.KindNotFound, "Application not found")
		}
		if err != nil {
			return apperror.Internal("failed to load application", err)
		}
		if app.WithdrawnAt != nil {
			return nil
		}
		if app.Status != model.ApplicationStatusPending {
			return apperror.New(apperror.KindInvalidTransition, "Only pending applications can be withdrawn")
		}
		now := s.now().UTC()
		if err := tx.Model(&app).Update("withdrawn_at", now).Error; err != nil {
			return apperror.Internal("failed to withdraw application", err)
		}
		app.WithdrawnAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("application_id", app.ID).Info("application withdrawn")
	return &app, nil
}
