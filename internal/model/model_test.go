package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	past := AssignedTask{DueDate: now.Add(-time.Hour), Status: TaskStatusInProgress}
	assert.Equal(t, TaskStatusOverdue, past.DisplayStatus(now))
	assert.Equal(t, TaskStatusInProgress, past.Status, "stored status must stay untouched")

	done := AssignedTask{DueDate: now.Add(-time.Hour), Status: TaskStatusCompleted}
	assert.Equal(t, TaskStatusCompleted, done.DisplayStatus(now))

	future := AssignedTask{DueDate: now.Add(time.Hour), Status: TaskStatusAssigned}
	assert.Equal(t, TaskStatusAssigned, future.DisplayStatus(now))

	view := NewTaskView(past, now)
	assert.Equal(t, TaskStatusOverdue, view.DisplayStatus)
}

func TestTaskStatusStorable(t *testing.T) {
	assert.True(t, TaskStatusAssigned.Storable())
	assert.True(t, TaskStatusInProgress.Storable())
	assert.True(t, TaskStatusCompleted.Storable())
	assert.False(t, TaskStatusOverdue.Storable())
	assert.False(t, TaskStatus("done").Storable())
}

func TestApplicationStatus(t *testing.T) {
	assert.True(t, ApplicationStatusOffered.Valid())
	assert.False(t, ApplicationStatus("in consideration").Valid())

	assert.True(t, ApplicationStatusApproved.HoldsSeat())
	assert.True(t, ApplicationStatusOffered.HoldsSeat())
	assert.False(t, ApplicationStatusPending.HoldsSeat())
	assert.False(t, ApplicationStatusRejected.HoldsSeat())

	withdrawn := time.Now()
	assert.True(t, Application{Status: ApplicationStatusApproved}.Active())
	assert.False(t, Application{Status: ApplicationStatusApproved, WithdrawnAt: &withdrawn}.Active())
}

func TestFreeSeats(t *testing.T) {
	assert.Equal(t, 2, Internship{TotalPositions: 3, CurrentRegistrations: 1}.FreeSeats())
	assert.Equal(t, 0, Internship{TotalPositions: 1, CurrentRegistrations: 1}.FreeSeats())
}
