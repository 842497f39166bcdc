package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/dispatch"
	"github.com/skelsey/galmarket/internal/model"
	"github.com/skelsey/galmarket/internal/shells"
)

// SystemSource finds the systems a scan will cover.
type SystemSource interface {
	SystemsInSphere(ctx context.Context, origin string, radius, minRadius float64) ([]model.System, error)
}

// TaskQueue dispatches population batches. Tasks are fire-and-forget;
// the orchestrator never cancels or re-dispatches them.
type TaskQueue interface {
	Enqueue(systems []string) (uuid.UUID, error)
	Status(id uuid.UUID) (dispatch.Status, bool)
}

// Config holds orchestrator configuration.
type Config struct {
	BatchSize int // Systems per population task (default: 10)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{BatchSize: 10}
}

// Orchestrator plans scans and reports their progress.
type Orchestrator struct {
	cfg    Config
	source SystemSource
	queue  TaskQueue
	cache  cache.Store
	store  Store
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, source SystemSource, queue TaskQueue, cacheStore cache.Store, store Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Orchestrator{
		cfg:    cfg,
		source: source,
		queue:  queue,
		cache:  cacheStore,
		store:  store,
		logger: logger,
	}
}

// StartScan fetches every system within maxRadius of origin, buckets
// them into equal-volume shells, and dispatches population tasks for
// the systems that are not known-fresh, nearest shells first. The
// persisted record carries the full system list so status stays
// answerable after the queue forgets its tasks.
func (o *Orchestrator) StartScan(ctx context.Context, origin string, initialRadius, maxRadius float64) (*ScanRequest, error) {
	plan, err := shells.Plan(initialRadius, maxRadius)
	if err != nil {
		return nil, fmt.Errorf("plan shells: %w", err)
	}

	systems, err := o.source.SystemsInSphere(ctx, origin, maxRadius, 0)
	if err != nil {
		return nil, fmt.Errorf("sphere lookup for %q: %w", origin, err)
	}

	buckets := make([][]model.System, len(plan))
	for _, sys := range systems {
		idx, ok := shells.Index(plan, sys.Distance)
		if !ok {
			continue
		}
		buckets[idx] = append(buckets[idx], sys)
	}

	req := &ScanRequest{
		ID:            uuid.New(),
		Origin:        origin,
		InitialRadius: initialRadius,
		MaxRadius:     maxRadius,
		CreatedAt:     time.Now().UTC(),
		Systems:       systems,
	}

	for shellIdx, bucket := range buckets {
		stale, err := o.staleSystems(ctx, bucket)
		if err != nil {
			return nil, err
		}
		for _, batch := range partition(stale, o.cfg.BatchSize) {
			taskID, err := o.queue.Enqueue(batch)
			if err != nil {
				return nil, fmt.Errorf("enqueue shell %d batch: %w", shellIdx, err)
			}
			req.Tasks = append(req.Tasks, TaskRecord{
				ID:      taskID,
				Shell:   shellIdx,
				Systems: batch,
			})
		}
	}

	if err := o.store.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("persist scan: %w", err)
	}

	o.logger.Info("scan started",
		"scan_id", req.ID,
		"origin", origin,
		"max_radius", maxRadius,
		"shells", len(plan),
		"systems", len(systems),
		"tasks", len(req.Tasks),
	)
	return req, nil
}

// staleSystems filters a shell bucket down to the systems whose market
// data is not Clean, ordered nearest first.
func (o *Orchestrator) staleSystems(ctx context.Context, bucket []model.System) ([]string, error) {
	stale := make([]model.System, 0, len(bucket))
	for _, sys := range bucket {
		state, err := o.cache.SystemState(ctx, sys.Name)
		if err != nil {
			return nil, fmt.Errorf("system state for %q: %w", sys.Name, err)
		}
		if state != cache.Clean {
			stale = append(stale, sys)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].Distance < stale[j].Distance
	})

	names := make([]string, len(stale))
	for i, sys := range stale {
		names[i] = sys.Name
	}
	return names, nil
}

// partition splits names into consecutive chunks of at most size.
func partition(names []string, size int) [][]string {
	var batches [][]string
	for len(names) > size {
		batches = append(batches, names[:size])
		names = names[size:]
	}
	if len(names) > 0 {
		batches = append(batches, names)
	}
	return batches
}

// ScanStatus recomputes a scan's progress from the freshness cache.
// Nothing is read from stored progress, so feed invalidations that
// arrive after a task finished are reflected immediately.
func (o *Orchestrator) ScanStatus(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	req, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ID:    req.ID,
		Total: len(req.Systems),
		Tasks: make(map[string]int),
	}

	unfinished := make([]model.System, 0)
	for _, sys := range req.Systems {
		state, err := o.cache.SystemState(ctx, sys.Name)
		if err != nil {
			return nil, fmt.Errorf("system state for %q: %w", sys.Name, err)
		}
		switch state {
		case cache.Clean:
			report.Complete++
		case cache.Dirty:
			report.Partial++
			unfinished = append(unfinished, sys)
		default:
			report.Pending++
			unfinished = append(unfinished, sys)
		}
	}

	sort.Slice(unfinished, func(i, j int) bool {
		return unfinished[i].Distance < unfinished[j].Distance
	})
	report.Unfinished = make([]string, len(unfinished))
	for i, sys := range unfinished {
		report.Unfinished[i] = sys.Name
	}

	for _, task := range req.Tasks {
		status, ok := o.queue.Status(task.ID)
		if !ok {
			report.Tasks["Expired"]++
			continue
		}
		report.Tasks[status.String()]++
	}

	if report.Total > 0 {
		report.Percent = 100 * float64(report.Complete) / float64(report.Total)
	} else {
		report.Percent = 100
	}

	switch {
	case report.Complete == report.Total:
		report.State = StateComplete
	case len(req.Tasks) > 0:
		report.State = StateRunning
	default:
		report.State = StateCreated
	}

	return report, nil
}
