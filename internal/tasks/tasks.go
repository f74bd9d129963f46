// Package tasks tracks work assigned to approved applicants and the
// submissions made against it.
//
// Overdue is never stored. It is derived from the due date whenever a task
// is read.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/blob"
	"InternHub-backend/internal/model"
)

// Notifier receives a message for a user. It must not fail.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string)
}

// FileChecker reports whether an uploaded file reference belongs to owner.
type FileChecker interface {
	OwnedBy(ctx context.Context, ref, category string, owner uuid.UUID) (bool, error)
}

// Service implements the task tracker.
type Service struct {
	db       *gorm.DB
	notifier Notifier
	files    FileChecker
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a task tracker.
func NewService(db *gorm.DB, notifier Notifier, files FileChecker, log logrus.FieldLogger) *Service {
	return &Service{db: db, notifier: notifier, files: files, log: log, now: time.Now}
}

// AssignInput describes a new task.
type AssignInput struct {
	InternshipID uint
	ApplicantID  uuid.UUID
	Title        string
	Description  string
	Domain       string
	DueDate      time.Time
}

// SubmissionInput is work submitted by an applicant for an assigned task.
type SubmissionInput struct {
	AssignedTaskID uint
	ApplicantID    uuid.UUID
	FileLinks      []string
	ProjectFileRef string
}

// SubmissionReviewInput is the admin verdict on a submission.
type SubmissionReviewInput struct {
	SubmissionID uint
	Approve      bool
	Note         string
}

// AssignTask gives a task to an applicant holding an approved application for the internship.
func (s *Service) AssignTask(ctx context.Context, in AssignInput) (*model.AssignedTask, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "Title is required"
	}
	if in.DueDate.IsZero() {
		fields["due_date"] = "Due date is required"
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("Invalid task", fields)
	}

	task := &model.AssignedTask{
		InternshipID: in.InternshipID,
		ApplicantID:  in.ApplicantID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Domain:       in.Domain,
		DueDate:      in.DueDate.UTC(),
		Status:       model.TaskStatusAssigned,
	}
	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := activeApplication(tx, in.ApplicantID, in.InternshipID)
		if err != nil {
			return err
		}
		if app == nil {
			return apperror.New(apperror.KindNotAuthorized, "Applicant has no approved application for this internship")
		}
		if err := tx.Create(task).Error; err != nil {
			return apperror.Internal("failed to assign task", err)
		}
		var listing model.Internship
		if err := tx.Select("id", "title").First(&listing, in.InternshipID).Error; err != nil {
			return apperror.Internal("failed to load internship", err)
		}
		title = listing.Title
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": task.ID, "internship_id": task.InternshipID}).Info("task assigned")
	s.notifier.Notify(ctx, task.ApplicantID, fmt.Sprintf("New task for %s: %s (due %s)", title, task.Title, task.DueDate.Format("2006-01-02")))
	return task, nil
}

// RecordSubmission stores the applicant's work for a task. A later submission
// for the same task replaces the earlier one and goes back to pending review.
func (s *Service) RecordSubmission(ctx context.Context, in SubmissionInput) (*model.TaskSubmission, error) {
	links, fields := cleanLinks(in.FileLinks)
	projectRef := strings.TrimSpace(in.ProjectFileRef)

	var submission model.TaskSubmission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.AssignedTask
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, in.AssignedTaskID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && task.ApplicantID != in.ApplicantID) {
			return apperror.New(apperror.KindNotAuthorized, "Task is not assigned to you")
		}
		if err != nil {
			return apperror.Internal("failed to load task", err)
		}
		app, err := activeApplication(tx, in.ApplicantID, task.InternshipID)
		if err != nil {
			return err
		}
		if app == nil {
			return apperror.New(apperror.KindNotAuthorized, "You have no approved application for this internship")
		}

		if len(links) == 0 && projectRef == "" {
			fields["file_links"] = "Provide at least one link or a project file"
		}
		if len(fields) > 0 {
			return apperror.Validation("Invalid submission", fields)
		}
		if projectRef != "" {
			ok, err := s.files.OwnedBy(ctx, projectRef, blob.CategoryProject, in.ApplicantID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Validation("Invalid submission", map[string]string{"project_file_ref": "Project file not found"})
			}
		}
		if task.Status == model.TaskStatusCompleted {
			return apperror.New(apperror.KindInvalidTransition, "Task is already completed")
		}

		submission = model.TaskSubmission{
			AssignedTaskID: task.ID,
			ApplicantID:    in.ApplicantID,
			InternshipID:   task.InternshipID,
			Title:          task.Title,
			FileLinks:      pq.StringArray(links),
			SubmittedAt:    s.now().UTC(),
			ReviewStatus:   model.ReviewStatusPending,
		}
		if projectRef != "" {
			submission.ProjectFileRef = &projectRef
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assigned_task_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_links", "project_file_ref", "submitted_at", "review_status", "review_note", "title"}),
		}).Create(&submission).Error
		if err != nil {
			return apperror.Internal("failed to save submission", err)
		}
		var saved model.TaskSubmission
		if err := tx.Where("assigned_task_id = ?", task.ID).First(&saved).Error; err != nil {
			return apperror.Internal("failed to reload submission", err)
		}
		submission = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": submission.AssignedTaskID, "submission_id": submission.ID}).Info("task submission recorded")
	return &submission, nil
}

func cleanLinks(raw []string) ([]string, map[string]string) {
	fields := map[string]string{}
	links := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		u, err := url.ParseRequestURI(l)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			fields["file_links"] = fmt.Sprintf("Invalid link: %s", l)
			continue
		}
		links = append(links, l)
	}
	if len(links) > model.MaxFileLinks {
		fields["file_links"] = fmt.Sprintf("At most %d links are allowed", model.MaxFileLinks)
	}
	return links, fields
}

var adminTransitions = map[model.TaskStatus]map[model.TaskStatus]bool{
	model.TaskStatusAssigned: {
		model.TaskStatusInProgress: true,
		model.TaskStatusCompleted:  true,
	},
	model.TaskStatusInProgress: {
		model.TaskStatusAssigned:  true,
		model.TaskStatusCompleted: true,
	},
	model.TaskStatusCompleted: {
		model.TaskStatusAssigned: true,
	},
}

// SetTaskStatus is the admin status change of a task. Moving a task back to
// assigned is how rejected work is returned to the applicant.
func (s *Service) SetTaskStatus(ctx context.Context, taskID uint, status model.TaskStatus) (*model.AssignedTask, error) {
	if !status.Storable() {
		return nil, apperror.Validation("Invalid status", map[string]string{"status": "Status must be one of assigned, in_progress, completed"})
	}
	task, changed, err := s.transition(ctx, taskID, nil, status, adminTransitions)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifier.Notify(ctx, task.ApplicantID, statusMessage(task))
	}
	return task, nil
}

// StartTask lets an applicant move an own assigned task to in progress.
func (s *Service) StartTask(ctx context.Context, applicantID uuid.UUID, taskID uint) (*model.AssignedTask, error) {
	task, _, err := s.transition(ctx, taskID, &applicantID, model.TaskStatusInProgress, map[model.TaskStatus]map[model.TaskStatus]bool{
		model.TaskStatusAssigned: {model.TaskStatusInProgress: true},
	})
	return task, err
}

func (s *Service) transition(ctx context.Context, taskID uint, owner *uuid.UUID, to model.TaskStatus, rules map[model.TaskStatus]map[model.TaskStatus]bool) (*model.AssignedTask, bool, error) {
	var task model.AssignedTask
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, taskID).Error
		if owner != nil && (errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && task.ApplicantID != *owner)) {
			return apperror.New(apperror.KindNotAuthorized, "Task is not assigned to you")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.KindNotFound, "Task not found")
		}
		if err != nil {
			return apperror.Internal("failed to load task", err)
		}
		if task.Status == to {
			return nil
		}
		if !rules[task.Status][to] {
			return apperror.New(apperror.KindInvalidTransition, fmt.Sprintf("Cannot move task from %s to %s", task.Status, to))
		}
		if err := tx.Model(&task).Update("status", to).Error; err != nil {
			return apperror.Internal("failed to update task", err)
		}
		task.Status = to
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.log.WithFields(logrus.Fields{"task_id": task.ID, "status": task.Status}).Info("task status changed")
	}
	return &task, changed, nil
}

// ReviewSubmission accepts or rejects submitted work. Acceptance completes the
// task; rejection sends it back to assigned.
func (s *Service) ReviewSubmission(ctx context.Context, in SubmissionReviewInput) (*model.TaskSubmission, error) {
	note := strings.TrimSpace(in.Note)
	if !in.Approve && note == "" {
		return nil, apperror.Validation("A note is required to reject a submission", map[string]string{"note": "Note is required"})
	}

	var (
		submission model.TaskSubmission
		task       model.AssignedTask
		changed    bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&submission, in.SubmissionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.KindNotFound, "Submission not found")
		}
		if err != nil {
			return apperror.Internal("failed to load submission", err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, submission.AssignedTaskID).Error; err != nil {
			return apperror.Internal("failed to load task", err)
		}

		verdict, taskStatus := model.ReviewStatusRejected, model.TaskStatusAssigned
		if in.Approve {
			verdict, taskStatus = model.ReviewStatusApproved, model.TaskStatusCompleted
		}
		if submission.ReviewStatus == verdict {
			return nil
		}
		if submission.ReviewStatus != model.ReviewStatusPending {
			return apperror.New(apperror.KindInvalidTransition, fmt.Sprintf("Submission is already %s", submission.ReviewStatus))
		}

		if err := tx.Model(&submission).Updates(map[string]interface{}{"review_status": verdict, "review_note": note}).Error; err != nil {
			return apperror.Internal("failed to review submission", err)
		}
		if err := tx.Model(&task).Update("status", taskStatus).Error; err != nil {
			return apperror.Internal("failed to update task", err)
		}
		submission.ReviewStatus, submission.ReviewNote = verdict, note
		task.Status = taskStatus
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		msg := fmt.Sprintf("Your submission for %q was accepted.", task.Title)
		if !in.Approve {
			msg = fmt.Sprintf("Your submission for %q needs changes: %s", task.Title, note)
		}
		s.notifier.Notify(ctx, submission.ApplicantID, msg)
	}
	return &submission, nil
}

// ListForApplicant returns the tasks of an applicant with their derived status.
// internshipID zero lists every internship.
func (s *Service) ListForApplicant(ctx context.Context, applicantID uuid.UUID, internshipID uint) ([]model.TaskView, error) {
	q := s.db.WithContext(ctx).Where("applicant_id = ?", applicantID)
	if internshipID != 0 {
		q = q.Where("internship_id = ?", internshipID)
	}
	return s.list(q)
}

// ListForInternship returns all tasks of an internship with their derived status.
func (s *Service) ListForInternship(ctx context.Context, internshipID uint) ([]model.TaskView, error) {
	return s.list(s.db.WithContext(ctx).Where("internship_id = ?", internshipID))
}

// Overdue returns every task past its due date that is not completed.
func (s *Service) Overdue(ctx context.Context) ([]model.TaskView, error) {
	q := s.db.WithContext(ctx).
		Where("status <> ? AND due_date < ?", model.TaskStatusCompleted, s.now().UTC())
	return s.list(q)
}

func (s *Service) list(q *gorm.DB) ([]model.TaskView, error) {
	var rows []model.AssignedTask
	if err := q.Order("due_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, apperror.Internal("failed to list tasks", err)
	}
	now := s.now()
	out := make([]model.TaskView, 0, len(rows))
	for _, t := range rows {
		out = append(out, model.NewTaskView(t, now))
	}
	return out, nil
}

// ListSubmissions returns the submissions of an internship, optionally only pending ones.
func (s *Service) ListSubmissions(ctx context.Context, internshipID uint, pendingOnly bool) ([]model.TaskSubmission, error) {
	q := s.db.WithContext(ctx).Where("internship_id = ?", internshipID)
	if pendingOnly {
		q = q.Where("review_status = ?", model.ReviewStatusPending)
	}
	var out []model.TaskSubmission
	if err := q.Order("submitted_at ASC").Find(&out).Error; err != nil {
		return nil, apperror.Internal("failed to list submissions", err)
	}
	return out, nil
}

// activeApplication returns the approved or offered application of the pair, or nil.
func activeApplication(tx *gorm.DB, applicantID uuid.UUID, internshipID uint) (*model.Application, error) {
	var app model.Application
	err := tx.Where("applicant_id = ? AND internship_id = ?", applicantID, internshipID).
		Where("status IN ? AND withdrawn_at IS NULL", []model.ApplicationStatus{model.ApplicationStatusApproved, model.ApplicationStatusOffered}).
		Order("id ASC").
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal("failed to load application", err)
	}
	return &app, nil
}

func statusMessage(task *model.AssignedTask) string {
	switch task.Status {
	case model.TaskStatusCompleted:
		return fmt.Sprintf("Task %q has been marked completed.", task.Title)
	case model.TaskStatusInProgress:
		return fmt.Sprintf("Task %q is now in progress.", task.Title)
	default:
		return fmt.Sprintf("Task %q was returned to you for more work.", task.Title)
	}
}
