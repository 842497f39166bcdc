package cache

import (
	"context"
	"time"

	"github.com/skelsey/galmarket/internal/model"
)

// Freshness is the per-key dirty state.
type Freshness int

const (
	// Unknown means the key has never been populated.
	Unknown Freshness = iota
	// Clean means the key holds current data.
	Clean
	// Dirty means the key was populated and later invalidated.
	Dirty
)

// String returns the completion-facing name of the state.
func (f Freshness) String() string {
	switch f {
	case Clean:
		return "Clean"
	case Dirty:
		return "Dirty"
	default:
		return "Unknown"
	}
}

// DefaultTTL bounds cache growth; entries silently expire after it.
// Chosen retention policy: market data a week old is useless for selling
// anyway, and the dirty aggregate must not outlive its snapshots.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the freshness cache. The only shared mutable resource in the
// system; all implementations apply the source-priority rule in Put.
type Store interface {
	// Get returns the current snapshot for a key, stale or not.
	Get(ctx context.Context, key model.Key) (model.MarketSnapshot, bool, error)

	// Put writes a snapshot and reports whether the write was accepted.
	// Accepted writes transition the key to Clean; rejected writes leave
	// state unchanged.
	Put(ctx context.Context, snap model.MarketSnapshot) (bool, error)

	// MarkDirty invalidates a key and flags its system. No-op on Unknown.
	MarkDirty(ctx context.Context, key model.Key) error

	// State returns the key's freshness.
	State(ctx context.Context, key model.Key) (Freshness, error)

	// SystemState returns the per-system dirty aggregate.
	SystemState(ctx context.Context, system string) (Freshness, error)

	// MarkSystemClean clears the per-system aggregate after a full
	// population pass.
	MarkSystemClean(ctx context.Context, system string) error

	// StationsIn lists station names with cached snapshots in a system.
	StationsIn(ctx context.Context, system string) ([]string, error)

	Close() error
}

// accepts applies the source-priority invariant: feed data is only
// displaced by a bulk dump when the dump is strictly newer.
func accepts(existing model.MarketSnapshot, haveExisting bool, incoming model.MarketSnapshot) bool {
	if !haveExisting {
		return true
	}
	if existing.Source == model.SourceFeed && incoming.Source == model.SourceBulkDump {
		return incoming.UpdatedAt.After(existing.UpdatedAt)
	}
	return true
}
