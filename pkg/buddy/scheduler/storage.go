// Package scheduler – storage.go provides a JSON file-based JobStorage
// implementation that persists pending reminders to disk.
package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileJobStorage persists jobs as a JSON object keyed by job ID.
type FileJobStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileJobStorage creates a file-based job storage at the given path.
// Creates the parent directory if it doesn't exist.
func NewFileJobStorage(path string) (*FileJobStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileJobStorage{path: path}, nil
}

// Save persists a job to the storage file.
func (s *FileJobStorage) Save(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.readAll()
	if err != nil {
		jobs = make(map[string]*Job)
	}
	jobs[job.ID] = job
	return s.writeAll(jobs)
}

// Delete removes a job from the storage file.
func (s *FileJobStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.readAll()
	if err != nil {
		return nil // Nothing to delete.
	}
	if _, ok := jobs[id]; !ok {
		return nil
	}
	delete(jobs, id)
	return s.writeAll(jobs)
}

// LoadAll reads all persisted jobs ordered by creation time.
func (s *FileJobStorage) LoadAll() ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs, err := s.readAll()
	if err != nil {
		return nil, err
	}

	result := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// readAll reads all jobs from the file (caller must hold mu).
func (s *FileJobStorage) readAll() (map[string]*Job, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Job), nil
		}
		return nil, err
	}

	jobs := make(map[string]*Job)
	if len(data) == 0 {
		return jobs, nil
	}
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parsing jobs file: %w", err)
	}
	return jobs, nil
}

// writeAll writes all jobs to the file via a temp file (caller must hold mu).
func (s *FileJobStorage) writeAll(jobs map[string]*Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling jobs: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing jobs: %w", err)
	}
	return os.Rename(tmp, s.path)
}
