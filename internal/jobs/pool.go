package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrQueueFull is returned when the pool cannot accept more work.
var ErrQueueFull = errors.New("job queue full")

// ErrPoolStopped is returned when submitting to a pool that has shut down.
var ErrPoolStopped = errors.New("job pool stopped")

// Task is one job's background unit of work.
type Task struct {
	JobID string
	Run   func(ctx context.Context)
}

// Pool runs tasks on a fixed set of workers pulling from one shared queue.
type Pool struct {
	name      string
	logger    *slog.Logger
	workers   int
	queue     chan Task
	inFlight  atomic.Int32
	completed atomic.Int64
	started   atomic.Bool
	stopped   atomic.Bool
	wg        sync.WaitGroup
}

// PoolConfig configures a new pool.
type PoolConfig struct {
	Name      string
	Logger    *slog.Logger
	Workers   int // Concurrent jobs (default: 2)
	QueueSize int // Queued jobs before Submit fails (default: 100)
}

// PoolStatus reports a pool's current state.
type PoolStatus struct {
	Name       string `json:"name"`
	Workers    int    `json:"workers"`
	InFlight   int    `json:"in_flight"`
	QueueDepth int    `json:"queue_depth"`
	Completed  int64  `json:"completed"`
	Running    bool   `json:"running"`
}

// NewPool creates a pool. Tasks may be submitted before Start.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "jobs"
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		name:    name,
		logger:  logger.With("pool", name, "workers", workers),
		workers: workers,
		queue:   make(chan Task, queueSize),
	}
}

// Start runs the workers and blocks until ctx is cancelled and every worker
// has returned.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Warn("pool already started")
		return
	}
	p.logger.Info("pool starting")
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	<-ctx.Done()
	p.stopped.Store(true)
	p.wg.Wait()
	p.logger.Info("pool stopped", "dropped", len(p.queue))
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.run(ctx, id, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker_id", id, "job_id", task.JobID, "panic", r)
		}
	}()
	p.logger.Debug("worker picked up job", "worker_id", id, "job_id", task.JobID)
	task.Run(ctx)
	p.completed.Add(1)
}

// Submit queues a task without blocking.
func (p *Pool) Submit(task Task) error {
	if p.stopped.Load() {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		p.logger.Debug("job queued", "job_id", task.JobID, "queue_len", len(p.queue))
		return nil
	default:
		p.logger.Warn("job queue full", "job_id", task.JobID)
		return fmt.Errorf("%w: %s", ErrQueueFull, p.name)
	}
}

// Status returns current pool status.
func (p *Pool) Status() PoolStatus {
	return PoolStatus{
		Name:       p.name,
		Workers:    p.workers,
		InFlight:   int(p.inFlight.Load()),
		QueueDepth: len(p.queue),
		Completed:  p.completed.Load(),
		Running:    p.started.Load() && !p.stopped.Load(),
	}
}
