package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/model"
)

// MemoryStore is an in-process Store. Expired entries are dropped lazily
// on access.
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	snapshots map[model.Key]memSnapshot
	dirtyKeys map[model.Key]time.Time    // key -> expiry; presence means Dirty
	systems   map[string]memSystemState  // per-system aggregate
	stations  map[string]map[string]bool // system -> station names
}

type memSnapshot struct {
	snap      model.MarketSnapshot
	expiresAt time.Time
}

type memSystemState struct {
	dirty     bool
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL overrides the retention TTL. Zero disables expiry.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithClock injects a time source, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-memory freshness cache.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		ttl:       DefaultTTL,
		now:       time.Now,
		snapshots: make(map[model.Key]memSnapshot),
		dirtyKeys: make(map[model.Key]time.Time),
		systems:   make(map[string]memSystemState),
		stations:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) expiry() time.Time {
	if s.ttl == 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func expired(at time.Time, now time.Time) bool {
	return !at.IsZero() && now.After(at)
}

// Get returns the current snapshot for a key, stale or not.
func (s *MemoryStore) Get(_ context.Context, key model.Key) (model.MarketSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.snapshots[key]
	if !ok {
		return model.MarketSnapshot{}, false, nil
	}
	if expired(entry.expiresAt, s.now()) {
		delete(s.snapshots, key)
		delete(s.dirtyKeys, key)
		return model.MarketSnapshot{}, false, nil
	}
	return entry.snap, true, nil
}

// Put writes a snapshot, enforcing the source-priority rule.
func (s *MemoryStore) Put(_ context.Context, snap model.MarketSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, have := s.snapshots[snap.Key]
	if have && expired(existing.expiresAt, now) {
		have = false
	}

	ok := accepts(existing.snap, have, snap)
	metrics.CacheWrites.WithLabelValues(string(snap.Source), strconv.FormatBool(ok)).Inc()
	if !ok {
		return false, nil
	}

	s.snapshots[snap.Key] = memSnapshot{snap: snap, expiresAt: s.expiry()}
	delete(s.dirtyKeys, snap.Key)

	set := s.stations[snap.Key.System]
	if set == nil {
		set = make(map[string]bool)
		s.stations[snap.Key.System] = set
	}
	set[snap.Key.Station] = true

	return true, nil
}

// MarkDirty invalidates a populated key. Unknown keys are untouched.
func (s *MemoryStore) MarkDirty(_ context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, have := s.snapshots[key]
	if have && expired(entry.expiresAt, now) {
		delete(s.snapshots, key)
		delete(s.dirtyKeys, key)
		have = false
	}
	if _, alreadyDirty := s.dirtyKeys[key]; !have && !alreadyDirty {
		return nil // nothing to invalidate
	}

	s.dirtyKeys[key] = s.expiry()
	s.systems[key.System] = memSystemState{dirty: true, expiresAt: s.expiry()}
	return nil
}

// State returns the key's freshness.
func (s *MemoryStore) State(_ context.Context, key model.Key) (Freshness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.dirtyKeys[key]; ok {
		if expired(at, now) {
			delete(s.dirtyKeys, key)
		} else {
			return Dirty, nil
		}
	}
	if entry, ok := s.snapshots[key]; ok {
		if expired(entry.expiresAt, now) {
			delete(s.snapshots, key)
		} else {
			return Clean, nil
		}
	}
	return Unknown, nil
}

// SystemState returns the per-system dirty aggregate.
func (s *MemoryStore) SystemState(_ context.Context, system string) (Freshness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.systems[system]
	if !ok {
		return Unknown, nil
	}
	if expired(st.expiresAt, s.now()) {
		delete(s.systems, system)
		return Unknown, nil
	}
	if st.dirty {
		return Dirty, nil
	}
	return Clean, nil
}

// MarkSystemClean clears the per-system aggregate.
func (s *MemoryStore) MarkSystemClean(_ context.Context, system string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[system] = memSystemState{dirty: false, expiresAt: s.expiry()}
	return nil
}

// StationsIn lists station names with cached snapshots, sorted.
func (s *MemoryStore) StationsIn(_ context.Context, system string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.stations[system]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
