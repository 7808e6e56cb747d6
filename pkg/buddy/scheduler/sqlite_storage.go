// Package scheduler – sqlite_storage.go implements JobStorage on the shared
// buddy.db database used by the sqlite store backend.
package scheduler

import (
	"database/sql"
	"fmt"
	"time"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS reminder_jobs (
	id              TEXT PRIMARY KEY,
	schedule        TEXT NOT NULL,
	type            TEXT NOT NULL,
	message         TEXT NOT NULL DEFAULT '',
	owner           TEXT NOT NULL DEFAULT '',
	label           TEXT NOT NULL DEFAULT '',
	enabled         INTEGER NOT NULL DEFAULT 1,
	created_at      TEXT NOT NULL,
	last_run_at     TEXT,
	last_error      TEXT NOT NULL DEFAULT '',
	run_count       INTEGER NOT NULL DEFAULT 0,
	timeout_seconds INTEGER NOT NULL DEFAULT 0
)`

// SQLiteJobStorage persists jobs in the "reminder_jobs" table.
type SQLiteJobStorage struct {
	db *sql.DB
}

// NewSQLiteJobStorage creates the jobs table if needed.
func NewSQLiteJobStorage(db *sql.DB) (*SQLiteJobStorage, error) {
	if _, err := db.Exec(jobsSchema); err != nil {
		return nil, fmt.Errorf("create reminder_jobs table: %w", err)
	}
	return &SQLiteJobStorage{db: db}, nil
}

// Save persists a job (insert or update).
func (s *SQLiteJobStorage) Save(job *Job) error {
	var lastRunAt sql.NullString
	if job.LastRunAt != nil {
		lastRunAt = sql.NullString{String: job.LastRunAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO reminder_jobs
			(id, schedule, type, message, owner, label, enabled,
			 created_at, last_run_at, last_error, run_count, timeout_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Schedule,
		job.Type,
		job.Message,
		job.User,
		job.Label,
		boolToInt(job.Enabled),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		lastRunAt,
		job.LastError,
		job.RunCount,
		job.TimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("save job %q: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job by ID.
func (s *SQLiteJobStorage) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM reminder_jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete job %q: %w", id, err)
	}
	return nil
}

// LoadAll reads all persisted jobs ordered by creation time.
func (s *SQLiteJobStorage) LoadAll() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, schedule, type, message, owner, label, enabled,
		       created_at, last_run_at, last_error, run_count, timeout_seconds
		FROM reminder_jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			j         Job
			enabled   int
			createdAt string
			lastRunAt sql.NullString
		)
		if err := rows.Scan(
			&j.ID, &j.Schedule, &j.Type, &j.Message, &j.User, &j.Label, &enabled,
			&createdAt, &lastRunAt, &j.LastError, &j.RunCount, &j.TimeoutSeconds,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		j.Enabled = enabled != 0
		j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if lastRunAt.Valid {
			t, _ := time.Parse(time.RFC3339, lastRunAt.String)
			j.LastRunAt = &t
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
