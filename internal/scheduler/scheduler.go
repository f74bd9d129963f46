// Package scheduler runs periodic jobs of the lifecycle, currently the
// overdue task reminder.
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/model"
)

// OverdueLister returns the tasks that are past due and not completed.
type OverdueLister interface {
	Overdue(ctx context.Context) ([]model.TaskView, error)
}

// Notifier receives a message for a user. It must not fail.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string)
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron     *cron.Cron
	tasks    OverdueLister
	notifier Notifier
	log      logrus.FieldLogger
}

// New creates a scheduler that sends overdue reminders on schedule, a standard
// five field cron expression. An empty schedule disables the reminder.
func New(schedule string, tasks OverdueLister, notifier Notifier, log logrus.FieldLogger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		tasks:    tasks,
		notifier: notifier,
		log:      log,
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RemindOverdue(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid overdue reminder schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.log.WithField("jobs", len(s.cron.Entries())).Info("scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// RemindOverdue notifies every applicant with overdue tasks and returns how
// many reminders were sent.
func (s *Scheduler) RemindOverdue(ctx context.Context) int {
	overdue, err := s.tasks.Overdue(ctx)
	if err != nil {
		s.log.WithError(err).Error("could not list overdue tasks")
		return 0
	}
	for _, t := range overdue {
		s.notifier.Notify(ctx, t.ApplicantID, fmt.Sprintf("Reminder: task %q was due on %s and is overdue.", t.Title, t.DueDate.Format("2006-01-02")))
	}
	s.log.WithField("count", len(overdue)).Info("overdue reminders sent")
	return len(overdue)
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
