// Package scheduler runs reminder deliveries and housekeeping jobs.
// Uses robfig/cron for recurring schedules and timers for one-shot jobs,
// with pluggable persistence so pending reminders survive restarts.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job types.
const (
	TypeCron  = "cron"
	TypeEvery = "every"
	TypeAt    = "at"
)

// Scheduler manages scheduled jobs.
type Scheduler struct {
	// jobs stores registered jobs indexed by ID.
	jobs map[string]*Job

	// cron is the real cron scheduler from robfig/cron.
	cron *cron.Cron

	// cronIDs maps job IDs to their cron entry IDs for removal.
	cronIDs map[string]cron.EntryID

	// runningJobs prevents a job from overlapping with its previous run.
	runningJobs map[string]bool

	// removed remembers persisted jobs this process removed, so a storage
	// read that raced the removal does not bring them back.
	removed map[string]bool

	storage JobStorage
	handler JobHandler

	// jobTimeout bounds a single execution. Defaults to 1 minute.
	jobTimeout time.Duration

	// loc is the timezone used to interpret wall-clock schedules.
	loc *time.Location

	logger *slog.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Job is a scheduled unit of work.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id"`

	// Schedule is a cron expression, an interval ("5m", "@every 1m") or, for
	// one-shot jobs, an absolute time or a delay.
	Schedule string `json:"schedule"`

	// Type is "cron" (recurring), "every" (interval) or "at" (one-shot).
	Type string `json:"type"`

	// Message is the payload delivered when the job fires (the reminder text).
	Message string `json:"message"`

	// User owns the job; fired reminders go to this user's inbox.
	User string `json:"user,omitempty"`

	// Label is the free-form time text the user typed ("5pm").
	Label string `json:"label,omitempty"`

	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int        `json:"run_count"`

	// TimeoutSeconds overrides the scheduler-wide job timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// fn runs instead of the handler for in-process housekeeping jobs.
	// Such jobs are never persisted.
	fn func(ctx context.Context) error
}

// JobHandler is called when a persisted job fires.
type JobHandler func(ctx context.Context, job *Job) error

// JobStorage defines the persistence interface for jobs.
type JobStorage interface {
	Save(job *Job) error
	Delete(id string) error
	LoadAll() ([]*Job, error)
}

// New creates a Scheduler. storage may be nil for an in-memory scheduler.
func New(storage JobStorage, handler JobHandler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:        make(map[string]*Job),
		cronIDs:     make(map[string]cron.EntryID),
		runningJobs: make(map[string]bool),
		removed:     make(map[string]bool),
		storage:     storage,
		handler:     handler,
		jobTimeout:  time.Minute,
		loc:         time.Local,
		logger:      logger,
	}
}

// SetLocation sets the timezone for wall-clock schedules. Call before Start.
func (s *Scheduler) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc
}

// Location returns the scheduler timezone.
func (s *Scheduler) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

// Add registers a new job.
func (s *Scheduler) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	if job.Schedule == "" {
		return fmt.Errorf("job schedule is required")
	}

	job.CreatedAt = time.Now()
	if job.Type == "" {
		job.Type = TypeCron
	}

	// Register with cron if running and job is enabled.
	if s.cron != nil && job.Enabled {
		if err := s.scheduleJob(job); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", job.Schedule, err)
		}
	}

	s.jobs[job.ID] = job

	if s.storage != nil && job.fn == nil {
		if err := s.storage.Save(job); err != nil {
			s.logger.Error("failed to persist job", "id", job.ID, "error", err)
		}
	}

	s.logger.Info("job added",
		"id", job.ID,
		"schedule", job.Schedule,
		"type", job.Type,
		"user", job.User,
	)
	return nil
}

// AddFunc registers an in-process recurring job that is not persisted.
func (s *Scheduler) AddFunc(id, schedule string, fn func(ctx context.Context) error) error {
	jobType := TypeCron
	if len(schedule) > 0 && schedule[0] == '@' {
		jobType = TypeEvery
	}
	return s.Add(&Job{
		ID:       id,
		Schedule: schedule,
		Type:     jobType,
		Enabled:  true,
		fn:       fn,
	})
}

// Remove deletes a job by ID.
func (s *Scheduler) Remove(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %q not found", jobID)
	}

	s.unscheduleJob(jobID)
	delete(s.jobs, jobID)

	if s.storage != nil && job.fn == nil {
		s.removed[jobID] = true
		if err := s.storage.Delete(jobID); err != nil {
			s.logger.Error("failed to remove job from storage", "id", jobID, "error", err)
		}
	}

	s.logger.Info("job removed", "id", jobID)
	return nil
}

// List returns all registered jobs ordered by creation time.
func (s *Scheduler) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result
}

// ListByUser returns the jobs owned by user.
func (s *Scheduler) ListByUser(user string) []*Job {
	var out []*Job
	for _, j := range s.List() {
		if j.User == user {
			out = append(out, j)
		}
	}
	return out
}

// Get returns a job by ID.
func (s *Scheduler) Get(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j, ok
}

// Sync reconciles the registered jobs with storage, for storage shared with
// other processes: persisted jobs that appeared there are registered (and
// scheduled when running), and persisted jobs deleted there are dropped.
// Jobs added after the storage read began are kept.
func (s *Scheduler) Sync() (added, dropped int, err error) {
	if s.storage == nil {
		return 0, 0, nil
	}

	readAt := time.Now()
	stored, err := s.storage.LoadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("loading jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inStorage := make(map[string]bool, len(stored))
	for _, job := range stored {
		inStorage[job.ID] = true
		if _, exists := s.jobs[job.ID]; exists || s.removed[job.ID] {
			continue
		}
		s.jobs[job.ID] = job
		added++
		if s.cron != nil && job.Enabled {
			if err := s.scheduleJob(job); err != nil {
				s.logger.Warn("skipping job with invalid schedule",
					"id", job.ID, "schedule", job.Schedule, "error", err)
			}
		}
	}

	for id, job := range s.jobs {
		if job.fn != nil || inStorage[id] || job.CreatedAt.After(readAt) {
			continue
		}
		s.unscheduleJob(id)
		delete(s.jobs, id)
		dropped++
	}

	if added > 0 || dropped > 0 {
		s.logger.Info("jobs synced from storage", "added", added, "dropped", dropped)
	}
	return added, dropped, nil
}

// Start initializes the cron scheduler, loads persisted jobs and schedules
// everything registered so far.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithParser(cronParser),
	)
	s.mu.Unlock()

	if s.storage != nil {
		jobs, err := s.storage.LoadAll()
		if err != nil {
			s.logger.Error("failed to load jobs", "error", err)
		} else {
			s.mu.Lock()
			for _, job := range jobs {
				if _, exists := s.jobs[job.ID]; !exists {
					s.jobs[job.ID] = job
				}
			}
			s.mu.Unlock()
			s.logger.Info("jobs loaded from storage", "count", len(jobs))
		}
	}

	s.mu.Lock()
	for _, job := range s.jobs {
		if !job.Enabled {
			continue
		}
		if err := s.scheduleJob(job); err != nil {
			s.logger.Warn("skipping job with invalid schedule",
				"id", job.ID, "schedule", job.Schedule, "error", err)
		}
	}
	jobCount := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()

	s.logger.Info("scheduler started",
		"jobs", jobCount,
		"cron_entries", len(s.cron.Entries()),
	)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
			s.logger.Warn("scheduler stop timed out")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// NextRun returns when the job fires next after now, in now's zone.
func (j *Job) NextRun(now time.Time) (time.Time, bool) {
	if j.Type == TypeAt {
		t, err := parseOneShotTime(j.Schedule, now)
		if err != nil {
			return time.Time{}, false
		}
		return t.In(now.Location()), true
	}

	spec := j.Schedule
	if j.Type == TypeEvery && spec != "" && spec[0] != '@' {
		spec = "@every " + spec
	}
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(now), true
}

// ---------- Internal ----------

// cronParser accepts five-field expressions and descriptors such as
// "@daily" and "@every 1h".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// unscheduleJob drops the cron entry of a job (caller holds mu). Pending
// one-shot timers notice the job is gone when they fire.
func (s *Scheduler) unscheduleJob(jobID string) {
	if entryID, ok := s.cronIDs[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.cronIDs, jobID)
	}
}

// scheduleJob registers a job with cron or a one-shot timer (caller holds mu).
func (s *Scheduler) scheduleJob(job *Job) error {
	schedule := job.Schedule

	if job.Type == TypeAt {
		target, err := parseOneShotTime(schedule, time.Now().In(s.loc))
		if err != nil {
			return err
		}
		go s.runOneShotJob(s.ctx, job, target)
		return nil
	}

	if job.Type == TypeEvery && schedule[0] != '@' {
		schedule = "@every " + schedule
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return err
	}

	s.cronIDs[job.ID] = entryID
	return nil
}

// runOneShotJob waits until target and runs the job once, then removes it.
func (s *Scheduler) runOneShotJob(ctx context.Context, job *Job, target time.Time) {
	delay := time.Until(target)
	if delay <= 0 {
		s.logger.Warn("one-shot time is in the past, executing immediately", "id", job.ID)
		if _, ok := s.Get(job.ID); ok {
			s.executeJob(job)
			s.Remove(job.ID)
		}
		return
	}

	s.logger.Info("one-shot job scheduled", "id", job.ID,
		"fires_at", target.Format(time.RFC3339), "fires_in", delay.String())

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		if _, ok := s.Get(job.ID); !ok {
			s.logger.Info("one-shot job was removed before firing", "id", job.ID)
			return
		}
		s.executeJob(job)
		s.Remove(job.ID)
	case <-ctx.Done():
	}
}

// parseOneShotTime parses the one-shot schedule formats relative to now:
// a positive duration ("5m"), Unix epoch seconds, RFC3339,
// "2006-01-02T15:04:05", "2006-01-02 15:04" and "15:04" (today or tomorrow).
func parseOneShotTime(timeStr string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(timeStr); err == nil && d > 0 {
		return now.Add(d), nil
	}

	if len(timeStr) >= 10 {
		if epoch, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
			return time.Unix(epoch, 0), nil
		}
	}

	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02T15:04:05", timeStr, now.Location()); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", timeStr, now.Location()); err == nil {
		return t, nil
	}

	if t, err := time.Parse("15:04", timeStr); err == nil {
		return nextWallClock(now, t.Hour(), t.Minute()), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", timeStr)
}

// nextWallClock returns the next occurrence of hour:minute at or after now.
func nextWallClock(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if target.Before(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// minJobInterval is the minimum time between consecutive executions of the
// same job, guarding against cron firing twice within one second.
const minJobInterval = 2 * time.Second

// executeJob runs a job with an overlap guard, a spin-loop guard, panic
// recovery and a timeout.
func (s *Scheduler) executeJob(job *Job) {
	s.mu.Lock()
	if s.runningJobs[job.ID] {
		s.mu.Unlock()
		s.logger.Warn("skipping job (already running)", "id", job.ID)
		return
	}
	if job.LastRunAt != nil && time.Since(*job.LastRunAt) < minJobInterval {
		s.mu.Unlock()
		s.logger.Debug("skipping job (ran too recently)", "id", job.ID)
		return
	}
	s.runningJobs[job.ID] = true
	now := time.Now()
	job.LastRunAt = &now
	job.RunCount++
	persist := s.storage != nil && job.fn == nil
	parent := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.runningJobs, job.ID)
		s.mu.Unlock()

		if r := recover(); r != nil {
			s.mu.Lock()
			job.LastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
			s.logger.Error("scheduled job panicked", "id", job.ID, "panic", r)
		}
	}()

	// Persist LastRunAt first so a crash mid-run does not re-fire on restart.
	if persist {
		if err := s.storage.Save(job); err != nil {
			s.logger.Warn("failed to persist job state", "id", job.ID, "error", err)
		}
	}

	timeout := s.jobTimeout
	if job.TimeoutSeconds > 0 {
		timeout = time.Duration(job.TimeoutSeconds) * time.Second
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.logger.Debug("executing scheduled job", "id", job.ID)

	var err error
	start := time.Now()
	switch {
	case job.fn != nil:
		err = job.fn(ctx)
	case s.handler != nil:
		err = s.handler(ctx, job)
	default:
		err = fmt.Errorf("no handler configured")
	}
	duration := time.Since(start)

	s.mu.Lock()
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	_, stillExists := s.jobs[job.ID]
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "id", job.ID, "error", err, "duration", duration)
	} else {
		s.logger.Debug("scheduled job completed", "id", job.ID, "duration", duration)
	}

	if persist && stillExists {
		if err := s.storage.Save(job); err != nil {
			s.logger.Warn("failed to persist job state", "id", job.ID, "error", err)
		}
	}
}
