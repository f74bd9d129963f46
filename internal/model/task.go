package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskStatus is the stored status of an assigned task
type TaskStatus string

const (
	// TaskStatusAssigned is the initial status of a task
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress means the applicant started working on the task
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted means the task was accepted
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusOverdue is only ever displayed, never stored
	TaskStatusOverdue TaskStatus = "overdue"
)

// Storable reports whether the status may be persisted
func (s TaskStatus) Storable() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ReviewStatus is the admin verdict on a task submission
type ReviewStatus string

// Submission review status
const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// MaxFileLinks is the maximum number of links in a submission
const MaxFileLinks = 5

// AssignedTask is a unit of work given to an applicant for an internship
type AssignedTask struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	InternshipID uint       `gorm:"not null;index:idx_task_pair" json:"internship_id"`
	Internship   Internship `gorm:"foreignKey:InternshipID;references:ID" json:"-"`
	ApplicantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_task_pair" json:"applicant_id"`
	Applicant    User       `gorm:"foreignKey:ApplicantID;references:ID" json:"-"`
	Title        string     `gorm:"type:text;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Domain       string     `gorm:"type:text" json:"domain"`
	DueDate      time.Time  `gorm:"type:timestamptz;not null" json:"due_date"`
	Status       TaskStatus `gorm:"type:text;not null;default:'assigned';check:status IN ('assigned', 'in_progress', 'completed')" json:"status"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayStatus derives the status shown to callers at time now.
// A task past its due date that is not completed reads as overdue.
func (t AssignedTask) DisplayStatus(now time.Time) TaskStatus {
	if t.Status != TaskStatusCompleted && t.DueDate.Before(now) {
		return TaskStatusOverdue
	}
	return t.Status
}

// TaskView is an assigned task together with its derived status
type TaskView struct {
	AssignedTask
	DisplayStatus TaskStatus `json:"display_status"`
}

// NewTaskView derives the displayed status of t at time now
func NewTaskView(t AssignedTask, now time.Time) TaskView {
	return TaskView{AssignedTask: t, DisplayStatus: t.DisplayStatus(now)}
}

// TaskSubmission is the latest work submitted for an assigned task.
// Resubmission edits this row.
type TaskSubmission struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	AssignedTaskID uint           `gorm:"not null;uniqueIndex" json:"assigned_task_id"`
	AssignedTask   AssignedTask   `gorm:"foreignKey:AssignedTaskID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	ApplicantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"applicant_id"`
	InternshipID   uint           `gorm:"not null;index" json:"internship_id"`
	Title          string         `gorm:"type:text" json:"title"`
	FileLinks      pq.StringArray `gorm:"type:text[]" json:"file_links"`
	ProjectFileRef *string        `gorm:"type:text" json:"project_file_ref,omitempty"`
	SubmittedAt    time.Time      `gorm:"type:timestamptz;not null" json:"submitted_at"`
	ReviewStatus   ReviewStatus   `gorm:"type:text;not null;default:'pending';check:review_status IN ('pending', 'approved', 'rejected')" json:"review_status"`
	ReviewNote     string         `gorm:"type:text" json:"review_note,omitempty"`
}
