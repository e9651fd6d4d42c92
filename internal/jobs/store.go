package jobs

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrTerminal is returned when mutating a completed or failed job.
	ErrTerminal = errors.New("job is in a terminal state")
)

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	Status Status // Filter by status (empty = all)
	Limit  int    // Max results (0 = no limit)
}

// MemoryStore holds jobs in memory. Reads return copies and may run
// concurrently with the single writer that owns each job.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		jobs:   make(map[string]*Job),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create records a new pending job and returns a copy of it.
func (s *MemoryStore) Create(req Request) *Job {
	job := &Job{
		ID:          uuid.New().String(),
		Status:      StatusPending,
		CurrentStep: "Initializing",
		Request:     req,
		CreatedAt:   s.now(),
	}
	job.Request.Languages = slices.Clone(req.Languages)
	job.Request.CharacterIDs = slices.Clone(req.CharacterIDs)

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info("job created", "job_id", job.ID, "pages", req.Pages, "languages", req.Languages)
	return job.Clone()
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job.Clone(), nil
}

// List returns copies of matching jobs, newest first.
func (s *MemoryStore) List(filter ListFilter) []*Job {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// update applies fn to the live job under the write lock after checking the
// state machine. fn must not retain the pointer.
func (s *MemoryStore) update(id string, to Status, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Status.Terminal() {
		s.logger.Warn("rejected mutation of terminal job", "job_id", id, "status", job.Status, "to", to)
		return fmt.Errorf("%w: %s is %s", ErrTerminal, id, job.Status)
	}
	if !canTransition(job.Status, to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", id, job.Status, to)
	}
	if job.Status == StatusPending && to != StatusPending {
		now := s.now()
		job.StartedAt = &now
	}
	job.Status = to
	fn(job)
	return nil
}

// Advance moves the job to processing and records a step. Progress never
// decreases; a lower value is clamped to the current one.
func (s *MemoryStore) Advance(id string, progress int, step string) error {
	return s.update(id, StatusProcessing, func(j *Job) {
		progress = min(max(progress, 0), 100)
		if progress < j.Progress {
			s.logger.Debug("progress regression clamped", "job_id", id, "from", j.Progress, "to", progress)
			progress = j.Progress
		}
		j.Progress = progress
		j.CurrentStep = step
	})
}

// Warn appends a non-fatal warning to a running job.
func (s *MemoryStore) Warn(id, warning string) error {
	s.mu.RLock()
	status := StatusProcessing
	if job, ok := s.jobs[id]; ok && job.Status == StatusPending {
		status = StatusPending
	}
	s.mu.RUnlock()
	return s.update(id, status, func(j *Job) {
		j.Warnings = append(j.Warnings, warning)
	})
}

// Complete marks the job completed with one output per language.
func (s *MemoryStore) Complete(id string, outputs map[string]string) error {
	if len(outputs) == 0 {
		return fmt.Errorf("job %s: completion requires at least one output", id)
	}
	return s.update(id, StatusCompleted, func(j *Job) {
		now := s.now()
		j.Progress = 100
		j.CurrentStep = fmt.Sprintf("Completed (%d language(s))", len(outputs))
		j.Outputs = maps.Clone(outputs)
		j.CompletedAt = &now
	})
}

// Fail marks the job failed. Progress stays where the last step left it.
func (s *MemoryStore) Fail(id string, cause error) error {
	if cause == nil {
		cause = errors.New("unknown failure")
	}
	return s.update(id, StatusFailed, func(j *Job) {
		now := s.now()
		j.CurrentStep = "Failed: " + j.CurrentStep
		j.Error = Describe(cause)
		j.CompletedAt = &now
	})
}
