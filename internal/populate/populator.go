package populate

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/model"
)

// MarketSource fetches station and market data from the data provider.
type MarketSource interface {
	Stations(ctx context.Context, system string) ([]model.Station, error)
	StationMarket(ctx context.Context, system string, station model.Station) (model.MarketSnapshot, error)
}

// Archiver receives accepted snapshots for durable storage. Implementations
// must not block.
type Archiver interface {
	Record(snap model.MarketSnapshot)
}

// Config holds populator configuration.
type Config struct {
	Concurrency     int      // Max concurrent market fetches per system (default: 6)
	DisallowedTypes []string // Station types never populated
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 6,
		DisallowedTypes: []string{
			"Fleet Carrier",
			"Odyssey Settlement",
		},
	}
}

// StationFailure records one station fetch that did not produce a snapshot.
type StationFailure struct {
	Station string `json:"station"`
	Reason  string `json:"reason"`
}

// SystemOutcome summarizes one system's population pass.
type SystemOutcome struct {
	System    string           `json:"system"`
	Stations  int              `json:"stations"` // Eligible stations attempted
	Succeeded int              `json:"succeeded"`
	Rejected  int              `json:"rejected"` // Writes refused by source priority
	Failures  []StationFailure `json:"failures,omitempty"`
}

// Complete reports whether every eligible station was fetched and written.
func (o SystemOutcome) Complete() bool {
	return len(o.Failures) == 0
}

// Populator repopulates market data for batches of systems.
type Populator struct {
	cfg        Config
	source     MarketSource
	store      cache.Store
	archiver   Archiver // may be nil
	logger     *slog.Logger
	disallowed map[string]bool
}

// New creates a Populator.
func New(cfg Config, source MarketSource, store cache.Store, archiver Archiver, logger *slog.Logger) *Populator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	disallowed := make(map[string]bool, len(cfg.DisallowedTypes))
	for _, t := range cfg.DisallowedTypes {
		disallowed[t] = true
	}

	return &Populator{
		cfg:        cfg,
		source:     source,
		store:      store,
		archiver:   archiver,
		logger:     logger,
		disallowed: disallowed,
	}
}

// PopulateSystems repopulates every system in the batch. The returned
// error is non-nil only when the context ends; per-station trouble is
// recorded in the outcomes instead.
func (p *Populator) PopulateSystems(ctx context.Context, systems []string) ([]SystemOutcome, error) {
	outcomes := make([]SystemOutcome, 0, len(systems))

	for _, system := range systems {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, p.populateSystem(ctx, system))
	}

	return outcomes, nil
}

// populateSystem fetches every eligible station market in one system.
func (p *Populator) populateSystem(ctx context.Context, system string) SystemOutcome {
	outcome := SystemOutcome{System: system}

	stations, err := p.source.Stations(ctx, system)
	if err != nil {
		p.logger.Warn("failed to list stations",
			"system", system,
			"err", err,
		)
		outcome.Failures = append(outcome.Failures, StationFailure{
			Station: "",
			Reason:  "station list: " + err.Error(),
		})
		return outcome
	}

	eligible := stations[:0:0]
	for _, st := range stations {
		if !p.disallowed[st.Type] {
			eligible = append(eligible, st)
		}
	}
	outcome.Stations = len(eligible)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for _, st := range eligible {
		st := st
		g.Go(func() error {
			snap, err := p.source.StationMarket(gctx, system, st)
			if err != nil {
				mu.Lock()
				outcome.Failures = append(outcome.Failures, StationFailure{
					Station: st.Name,
					Reason:  err.Error(),
				})
				mu.Unlock()
				return nil // one station never sinks the batch
			}

			accepted, err := p.store.Put(gctx, snap)
			if err != nil {
				mu.Lock()
				outcome.Failures = append(outcome.Failures, StationFailure{
					Station: st.Name,
					Reason:  "cache write: " + err.Error(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			if accepted {
				outcome.Succeeded++
			} else {
				// Fresher feed data already present; key is Clean either way.
				outcome.Rejected++
				outcome.Succeeded++
			}
			mu.Unlock()

			if accepted && p.archiver != nil {
				p.archiver.Record(snap)
			}
			return nil
		})
	}

	g.Wait()
	sort.Slice(outcome.Failures, func(i, j int) bool {
		return outcome.Failures[i].Station < outcome.Failures[j].Station
	})

	if outcome.Complete() {
		if err := p.store.MarkSystemClean(ctx, system); err != nil {
			p.logger.Warn("failed to clear system aggregate",
				"system", system,
				"err", err,
			)
		}
	}

	p.logger.Debug("populated system",
		"system", system,
		"stations", outcome.Stations,
		"succeeded", outcome.Succeeded,
		"failures", len(outcome.Failures),
	)

	return outcome
}
