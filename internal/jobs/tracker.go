package jobs

import (
	"log/slog"
)

// Tracker reports one job's progress. It is owned by the goroutine running
// the job.
type Tracker struct {
	store  *MemoryStore
	id     string
	logger *slog.Logger
}

// Tracker returns a progress reporter for job id.
func (s *MemoryStore) Tracker(id string) *Tracker {
	return &Tracker{store: s, id: id, logger: s.logger.With("job_id", id)}
}

// ID returns the tracked job id.
func (t *Tracker) ID() string {
	return t.id
}

// Step records progress and the step about to run.
func (t *Tracker) Step(progress int, step string) error {
	t.logger.Info("job step", "progress", progress, "step", step)
	return t.store.Advance(t.id, progress, step)
}

// Warn records a degraded but non-fatal outcome.
func (t *Tracker) Warn(warning string) {
	t.logger.Warn("job warning", "warning", warning)
	if err := t.store.Warn(t.id, warning); err != nil {
		t.logger.Warn("record warning", "error", err)
	}
}

// Complete finishes the job.
func (t *Tracker) Complete(outputs map[string]string) error {
	if err := t.store.Complete(t.id, outputs); err != nil {
		return err
	}
	t.logger.Info("job completed", "languages", len(outputs))
	return nil
}

// Fail finishes the job with cause.
func (t *Tracker) Fail(cause error) {
	t.logger.Error("job failed", "error", cause)
	if err := t.store.Fail(t.id, cause); err != nil {
		t.logger.Warn("record failure", "error", err)
	}
}

// Span maps step i of n onto the progress range [from, to].
func Span(from, to, i, n int) int {
	if n <= 0 {
		return to
	}
	i = min(max(i, 0), n)
	return from + (to-from)*i/n
}
