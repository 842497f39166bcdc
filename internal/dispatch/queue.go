package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/populate"
)

// Status is a task's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailure
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// ErrClosed is returned by Enqueue after the queue has shut down.
var ErrClosed = errors.New("task queue closed")

// Runner executes one population batch.
type Runner interface {
	PopulateSystems(ctx context.Context, systems []string) ([]populate.SystemOutcome, error)
}

// Config holds queue configuration.
type Config struct {
	Workers       int           // Worker pool size (default: 4)
	RetainFor     time.Duration // How long finished task records live (default: 24h)
	SweepInterval time.Duration // How often to prune finished tasks (default: 1h)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		RetainFor:     24 * time.Hour,
		SweepInterval: time.Hour,
	}
}

type task struct {
	id         uuid.UUID
	systems    []string
	status     Status
	outcomes   []populate.SystemOutcome
	finishedAt time.Time
}

// Queue is an in-process task queue with a bounded worker pool.
type Queue struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	buf *GrowableBuffer[uuid.UUID]

	mu    sync.RWMutex
	tasks map[uuid.UUID]*task

	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Queue.
func New(cfg Config, runner Runner, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.RetainFor == 0 {
		cfg.RetainFor = def.RetainFor
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	return &Queue{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		buf:    NewGrowableBuffer[uuid.UUID](64),
		tasks:  make(map[uuid.UUID]*task),
		now:    time.Now,
	}
}

// Start launches the worker pool and the sweep loop.
func (q *Queue) Start(ctx context.Context) error {
	q.ctx, q.cancel = context.WithCancel(ctx)

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.workerLoop()
	}

	q.wg.Add(1)
	go q.sweepLoop()

	q.logger.Info("task queue started",
		"workers", q.cfg.Workers,
		"retain_for", q.cfg.RetainFor,
	)
	return nil
}

// Stop drains dispatched work and shuts the pool down. Queued tasks that
// have not started yet fail with the shutdown error.
func (q *Queue) Stop(ctx context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}
	q.buf.Close()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue stopped")
		return nil
	case <-ctx.Done():
		q.logger.Warn("task queue stop timed out")
		return ctx.Err()
	}
}

// Enqueue submits a population batch and returns its handle.
func (q *Queue) Enqueue(systems []string) (uuid.UUID, error) {
	t := &task{
		id:      uuid.New(),
		systems: systems,
		status:  StatusPending,
	}

	q.mu.Lock()
	q.tasks[t.id] = t
	q.mu.Unlock()

	if !q.buf.Send(t.id) {
		q.mu.Lock()
		delete(q.tasks, t.id)
		q.mu.Unlock()
		return uuid.Nil, ErrClosed
	}

	metrics.QueueDepth.Set(float64(q.buf.Len()))
	return t.id, nil
}

// Status returns the task's current state.
func (q *Queue) Status(id uuid.UUID) (Status, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[id]
	if !ok {
		return StatusPending, false
	}
	return t.status, true
}

// Result returns the per-system outcomes of a finished task.
func (q *Queue) Result(id uuid.UUID) ([]populate.SystemOutcome, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[id]
	if !ok || (t.status != StatusSuccess && t.status != StatusFailure) {
		return nil, false
	}
	return t.outcomes, true
}

func (q *Queue) workerLoop() {
	defer q.wg.Done()

	for {
		id, ok := q.buf.Receive()
		if !ok {
			return
		}
		metrics.QueueDepth.Set(float64(q.buf.Len()))
		q.run(id)
	}
}

func (q *Queue) run(id uuid.UUID) {
	q.mu.Lock()
	t, ok := q.tasks[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	t.status = StatusRunning
	systems := t.systems
	q.mu.Unlock()

	start := q.now()
	outcomes, err := q.runner.PopulateSystems(q.ctx, systems)

	q.mu.Lock()
	t.outcomes = outcomes
	t.finishedAt = q.now()
	if err != nil {
		t.status = StatusFailure
	} else {
		t.status = StatusSuccess
	}
	status := t.status
	q.mu.Unlock()

	metrics.TasksFinished.WithLabelValues(status.String()).Inc()

	if err != nil {
		q.logger.Warn("population task failed",
			"task_id", id,
			"systems", len(systems),
			"err", err,
		)
		return
	}
	q.logger.Debug("population task finished",
		"task_id", id,
		"systems", len(systems),
		"duration", q.now().Sub(start),
	)
}

// sweepLoop prunes finished task records past the retention window.
func (q *Queue) sweepLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

func (q *Queue) sweep() {
	cutoff := q.now().Add(-q.cfg.RetainFor)

	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.tasks {
		finished := t.status == StatusSuccess || t.status == StatusFailure
		if finished && t.finishedAt.Before(cutoff) {
			delete(q.tasks, id)
		}
	}
}
