package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jholhewres/buddy/pkg/buddy/metrics"
)

// Reminders turns "set reminder" requests into jobs and delivers them to the
// owner's inbox when they fire. One-off times become one-shot jobs;
// "daily at 9am" and "every monday at 10am" become recurring ones.
type Reminders struct {
	sched   *Scheduler
	inbox   *Inbox
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// PendingReminder describes a scheduled reminder of one user.
type PendingReminder struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Label     string    `json:"label"`
	Recurring bool      `json:"recurring"`
	NextRun   time.Time `json:"next_run"`
}

// NewReminders creates the reminder service. Pass its Deliver method as the
// scheduler's JobHandler, then call Bind with that scheduler.
func NewReminders(inbox *Inbox, m *metrics.Metrics, logger *slog.Logger) *Reminders {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminders{
		inbox:   inbox,
		metrics: m,
		logger:  logger.With("component", "reminders"),
		now:     time.Now,
	}
}

// Bind attaches the scheduler that runs reminder jobs.
func (r *Reminders) Bind(s *Scheduler) {
	r.sched = s
}

// Schedule parses timeText and, when it names a time, schedules task for
// user. ok is false when the text is not a recognizable time; the reminder
// is then only listed, never delivered.
//
// The reminder store is keyed by the time text, so a new reminder replaces
// any scheduled one with the same time text.
func (r *Reminders) Schedule(user, task, timeText string) (due time.Time, ok bool, err error) {
	if r == nil || r.sched == nil {
		return time.Time{}, false, nil
	}

	now := r.now().In(r.sched.Location())
	job := &Job{
		ID:      "reminder-" + uuid.NewString(),
		Message: task,
		User:    user,
		Label:   timeText,
		Enabled: true,
	}

	if p, recurring := ParseRecurring(timeText); recurring {
		job.Schedule, job.Type = p.Schedule, p.Type
		if due, ok = job.NextRun(now); !ok {
			return time.Time{}, false, nil
		}
	} else if due, ok = ParseReminderTime(timeText, now); ok {
		job.Schedule, job.Type = due.Format(time.RFC3339), TypeAt
	} else {
		return time.Time{}, false, nil
	}

	r.replace(timeText)

	if err := r.sched.Add(job); err != nil {
		return time.Time{}, false, fmt.Errorf("scheduling reminder: %w", err)
	}
	r.metrics.ObserveReminder("scheduled")
	r.logger.Debug("reminder scheduled",
		"user", user, "type", job.Type, "due", due.Format(time.RFC3339))
	return due, true, nil
}

// replace removes scheduled reminders labelled timeText, including ones
// written to shared storage by another process.
func (r *Reminders) replace(timeText string) {
	if _, _, err := r.sched.Sync(); err != nil {
		r.logger.Warn("reading reminder jobs", "error", err)
	}
	for _, j := range r.sched.List() {
		if j.Label != timeText || j.fn != nil {
			continue
		}
		if err := r.sched.Remove(j.ID); err == nil {
			r.logger.Debug("reminder replaced", "id", j.ID, "label", timeText)
		}
	}
}

// Deliver is the JobHandler for reminder jobs.
func (r *Reminders) Deliver(_ context.Context, job *Job) error {
	if job.User == "" {
		return fmt.Errorf("reminder %q has no owner", job.ID)
	}
	r.inbox.Push(job.User, Notification{
		ID:      job.ID,
		Message: fmt.Sprintf("⏰ Reminder: %s (%s)", job.Message, job.Label),
		Task:    job.Message,
		Label:   job.Label,
		FiredAt: r.now(),
	})
	r.metrics.ObserveReminder("fired")
	r.logger.Info("reminder delivered", "id", job.ID, "user", job.User)
	return nil
}

// Pending returns the scheduled reminders of user, soonest first.
func (r *Reminders) Pending(user string) []PendingReminder {
	if r == nil || r.sched == nil {
		return nil
	}
	now := r.now().In(r.sched.Location())

	var out []PendingReminder
	for _, j := range r.sched.ListByUser(user) {
		next, ok := j.NextRun(now)
		if !ok {
			continue
		}
		out = append(out, PendingReminder{
			ID:        j.ID,
			Task:      j.Message,
			Label:     j.Label,
			Recurring: j.Type != TypeAt,
			NextRun:   next,
		})
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].NextRun.Before(out[k].NextRun) })
	return out
}
