package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job represents a migrate, rollback or verify run started through the HTTP
// control surface. Serialize it through Snapshot.
type Job struct {
	ID         string
	Type       string // "migrate", "rollback", "verify"
	RunID      string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
	Stats      []StageStatistics
	Output     []string
	mu         sync.Mutex
	cancel     context.CancelFunc
}

// SetCancel registers the function that stops the job's run.
func (j *Job) SetCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel stops a running job. It reports false when there is nothing to stop.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != JobRunning || j.cancel == nil {
		return false
	}
	j.cancel()
	return true
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// State returns the current status.
func (j *Job) State() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// SetRun attaches the run ID and statistics produced by the job.
func (j *Job) SetRun(runID string, stats []StageStatistics) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RunID = runID
	j.Stats = stats
}

// Complete marks the job as completed.
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = JobCompleted
	now := time.Now()
	j.FinishedAt = &now
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = JobFailed
	j.Error = err
	now := time.Now()
	j.FinishedAt = &now
}

// JobView is the serializable state of a Job.
type JobView struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	RunID      string            `json:"run_id,omitempty"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Stats      []StageStatistics `json:"stats,omitempty"`
	Output     []string          `json:"output"`
}

// Snapshot returns a copy safe to serialize while the job is still running.
func (j *Job) Snapshot() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobView{
		ID:         j.ID,
		Type:       j.Type,
		RunID:      j.RunID,
		Status:     j.Status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Stats:      append([]StageStatistics(nil), j.Stats...),
		Output:     append([]string(nil), j.Output...),
	}
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(jobType)
}

// CreateExclusive creates a job only when no other job is running. Runs
// against the same target must not overlap.
func (s *JobStore) CreateExclusive(jobType string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running() {
		return nil, false
	}
	return s.create(jobType), true
}

func (s *JobStore) create(jobType string) *Job {
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    JobRunning,
		StartedAt: time.Now(),
		Output:    []string{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// Running reports whether any job is still in progress.
func (s *JobStore) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running()
}

func (s *JobStore) running() bool {
	for _, j := range s.jobs {
		if j.State() == JobRunning {
			return true
		}
	}
	return false
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
