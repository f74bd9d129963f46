// Package review is the admin state machine for applications.
//
//	pending  -> approved  (consumes a seat)
//	pending  -> rejected
//	approved -> offered
//	approved -> rejected  (releases the seat)
//	rejected -> pending   (explicit reopen, audited)
//
// Each transition runs in one transaction holding the application row lock.
// Repeating the decision an application already carries is a successful no-op.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/capacity"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
)

// Decision is an admin verdict on an application.
type Decision string

// Review decisions
const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionOffer   Decision = "offer"

	actionReopen = "reopen"
)

// Notifier receives a message for a user. It must not fail.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string)
}

// ReviewInput is one admin decision.
type ReviewInput struct {
	ApplicationID   uint
	ReviewerID      uuid.UUID
	Decision        Decision
	RejectionReason string
}

// ReopenInput returns a rejected application to review.
type ReopenInput struct {
	ApplicationID uint
	ReviewerID    uuid.UUID
	Note          string
}

// Service implements the review state machine.
type Service struct {
	db       *gorm.DB
	ledger   *capacity.Ledger
	notifier Notifier
	log      logrus.FieldLogger
}

// NewService creates a review service.
func NewService(db *gorm.DB, ledger *capacity.Ledger, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{db: db, ledger: ledger, notifier: notifier, log: log}
}

type outcome struct {
	app     model.Application
	title   string
	changed bool
}

// Review applies a decision to an application.
func (s *Service) Review(ctx context.Context, in ReviewInput) (*model.Application, error) {
	res, err := s.review(ctx, in)
	metrics.RecordReview(string(in.Decision), string(apperror.KindOf(err)))
	entry := s.log.WithFields(logrus.Fields{"application_id": in.ApplicationID, "decision": in.Decision})
	if err != nil {
		if apperror.Is(err, apperror.KindInternal) {
			entry.WithError(err).Error("review failed")
		} else {
			entry.WithField("kind", apperror.KindOf(err)).Info("review refused")
		}
		return nil, err
	}
	if !res.changed {
		entry.Debug("review replayed, nothing to do")
		return &res.app, nil
	}
	entry.WithField("status", res.app.Status).Info("application reviewed")
	s.notifier.Notify(ctx, res.app.ApplicantID, decisionMessage(in.Decision, res.title, in.RejectionReason))
	return &res.app, nil
}

func (s *Service) review(ctx context.Context, in ReviewInput) (outcome, error) {
	reason := strings.TrimSpace(in.RejectionReason)
	switch in.Decision {
	case DecisionApprove, DecisionOffer:
	case DecisionReject:
		if reason == "" {
			return outcome{}, apperror.Validation("Rejection reason is required", map[string]string{
				"rejection_reason": "Rejection reason is required",
			})
		}
	default:
		return outcome{}, apperror.Validation("Unknown decision", map[string]string{
			"decision": "Decision must be one of approve, reject, offer",
		})
	}

	var res outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := lockApplication(tx, in.ApplicationID)
		if err != nil {
			return err
		}
		res.app = *app

		from := app.Status
		to, err := nextStatus(from, in.Decision)
		if err != nil {
			return err
		}
		if to == from {
			return nil
		}
		if app.WithdrawnAt != nil {
			return apperror.New(apperror.KindInvalidTransition, "Application has been withdrawn")
		}

		switch {
		case to == model.ApplicationStatusApproved:
			if err := s.ledger.Reserve(tx, app.InternshipID); err != nil {
				return err
			}
		case to == model.ApplicationStatusRejected && from == model.ApplicationStatusApproved:
			if err := s.ledger.Release(tx, app.InternshipID); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"status": to}
		note := ""
		if to == model.ApplicationStatusRejected {
			updates["rejection_reason"] = reason
			note = reason
		}
		if err := tx.Model(app).Updates(updates).Error; err != nil {
			return apperror.Internal("failed to update application", err)
		}
		if err := appendAudit(tx, app.ID, in.ReviewerID, string(in.Decision), from, to, note); err != nil {
			return err
		}

		title, err := internshipTitle(tx, app.InternshipID)
		if err != nil {
			return err
		}

		app.Status = to
		if to == model.ApplicationStatusRejected {
			app.RejectionReason = &reason
		}
		res = outcome{app: *app, title: title, changed: true}
		return nil
	})
	return res, err
}

// nextStatus returns the status a decision leads to from the current status.
func nextStatus(from model.ApplicationStatus, decision Decision) (model.ApplicationStatus, error) {
	var to model.ApplicationStatus
	switch decision {
	case DecisionApprove:
		to = model.ApplicationStatusApproved
	case DecisionReject:
		to = model.ApplicationStatusRejected
	case DecisionOffer:
		to = model.ApplicationStatusOffered
	}
	if from == to {
		return to, nil
	}
	if !allowed[from][to] {
		return "", apperror.New(apperror.KindInvalidTransition, fmt.Sprintf("Cannot %s an application that is %s", decision, from))
	}
	return to, nil
}

var allowed = map[model.ApplicationStatus]map[model.ApplicationStatus]bool{
	model.ApplicationStatusPending: {
		model.ApplicationStatusApproved: true,
		model.ApplicationStatusRejected: true,
	},
	model.ApplicationStatusApproved: {
		model.ApplicationStatusOffered:  true,
		model.ApplicationStatusRejected: true,
	},
}

// Reopen moves a rejected application back to pending.
func (s *Service) Reopen(ctx context.Context, in ReopenInput) (*model.Application, error) {
	note := strings.TrimSpace(in.Note)
	if note == "" {
		return nil, apperror.Validation("A note is required to reopen an application", map[string]string{
			"note": "Note is required",
		})
	}

	var res outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := lockApplication(tx, in.ApplicationID)
		if err != nil {
			return err
		}
		res.app = *app
		if app.Status == model.ApplicationStatusPending {
			return nil
		}
		if app.Status != model.ApplicationStatusRejected {
			return apperror.New(apperror.KindInvalidTransition, fmt.Sprintf("Cannot reopen an application that is %s", app.Status))
		}

		err = tx.Model(app).Updates(map[string]interface{}{
			"status":           model.ApplicationStatusPending,
			"rejection_reason": nil,
		}).Error
		if database.IsUniqueViolation(err, database.PaymentReferenceIndex) {
			return apperror.New(apperror.KindDuplicatePaymentReference, "The payment reference of this application has since been claimed by another application")
		}
		if err != nil {
			return apperror.Internal("failed to reopen application", err)
		}
		if err := appendAudit(tx, app.ID, in.ReviewerID, actionReopen, model.ApplicationStatusRejected, model.ApplicationStatusPending, note); err != nil {
			return err
		}
		title, err := internshipTitle(tx, app.InternshipID)
		if err != nil {
			return err
		}
		app.Status = model.ApplicationStatusPending
		app.RejectionReason = nil
		res = outcome{app: *app, title: title, changed: true}
		return nil
	})
	metrics.RecordReview(actionReopen, string(apperror.KindOf(err)))
	if err != nil {
		return nil, err
	}
	if res.changed {
		s.log.WithField("application_id", res.app.ID).Info("application reopened")
		s.notifier.Notify(ctx, res.app.ApplicantID, fmt.Sprintf("Your application for %s is under review again.", res.title))
	}
	return &res.app, nil
}

// History returns the audit trail of an application, oldest first.
func (s *Service) History(ctx context.Context, applicationID uint) ([]model.ApplicationReview, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Application{}).Where("id = ?", applicationID).Count(&count).Error; err != nil {
		return nil, apperror.Internal("failed to load application", err)
	}
	if count == 0 {
		return nil, apperror.New(apperror.KindNotFound, "Application not found")
	}
	var trail []model.ApplicationReview
	if err := s.db.WithContext(ctx).Where("application_id = ?", applicationID).Order("id ASC").Find(&trail).Error; err != nil {
		return nil, apperror.Internal("failed to load review history", err)
	}
	return trail, nil
}

// ListForInternship returns the applications of an internship, optionally
// filtered by status, oldest first.
func (s *Service) ListForInternship(ctx context.Context, internshipID uint, status string) ([]model.Application, error) {
	q := s.db.WithContext(ctx).Where("internship_id = ?", internshipID)
	if status != "" {
		st := model.ApplicationStatus(status)
		if !st.Valid() {
			return nil, apperror.Validation("Unknown status", map[string]string{"status": "Unknown application status"})
		}
		q = q.Where("status = ?", st)
	}
	var apps []model.Application
	if err := q.Order("date_applied ASC, id ASC").Find(&apps).Error; err != nil {
		return nil, apperror.Internal("failed to list applications", err)
	}
	return apps, nil
}

func lockApplication(tx *gorm.DB, id uint) (*model.Application, error) {
	var app model.Application
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.New(apperror.KindNotFound, "Application not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load application", err)
	}
	return &app, nil
}

func appendAudit(tx *gorm.DB, applicationID uint, reviewer uuid.UUID, action string, from, to model.ApplicationStatus, note string) error {
	entry := model.ApplicationReview{
		ApplicationID: applicationID,
		ReviewerID:    reviewer,
		Action:        action,
		FromStatus:    from,
		ToStatus:      to,
		Note:          note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return apperror.Internal("failed to record review", err)
	}
	return nil
}

func internshipTitle(tx *gorm.DB, id uint) (string, error) {
	var listing model.Internship
	if err := tx.Select("id", "title").First(&listing, id).Error; err != nil {
		return "", apperror.Internal("failed to load internship", err)
	}
	return listing.Title, nil
}

func decisionMessage(decision Decision, title, reason string) string {
	switch decision {
	case DecisionApprove:
		return fmt.Sprintf("Your application for %s has been approved.", title)
	case DecisionOffer:
		return fmt.Sprintf("Congratulations! You have received an offer for %s.", title)
	default:
		return fmt.Sprintf("Your application for %s was rejected: %s", title, strings.TrimSpace(reason))
	}
}
