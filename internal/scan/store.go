package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a scan id is unknown or its record has
// aged out.
var ErrNotFound = errors.New("scan not found")

// DefaultRetention bounds how long finished scan records are kept.
// Scans describe a moment in time; a day-old record has no operational
// value beyond audit, which the archive covers.
const DefaultRetention = 24 * time.Hour

// Store persists ScanRequest records.
type Store interface {
	Save(ctx context.Context, req *ScanRequest) error
	Get(ctx context.Context, id uuid.UUID) (*ScanRequest, error)
	Close() error
}

// MemoryStore is an in-process Store with lazy expiry.
type MemoryStore struct {
	mu        sync.RWMutex
	scans     map[uuid.UUID]*ScanRequest
	retention time.Duration
	now       func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRetention overrides the record retention window.
func WithRetention(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.retention = d
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory scan store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		scans:     make(map[uuid.UUID]*ScanRequest),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores or replaces a scan record.
func (s *MemoryStore) Save(ctx context.Context, req *ScanRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[req.ID] = req
	return nil
}

// Get returns a scan record, expiring it first if the retention window
// has passed.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*ScanRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(req.CreatedAt) > s.retention {
		delete(s.scans, id)
		return nil, ErrNotFound
	}
	return req, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
