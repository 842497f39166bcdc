package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scanSchema = `
CREATE TABLE IF NOT EXISTS scan_requests (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS scan_requests_created_at_idx ON scan_requests (created_at);
`

// PGStore persists scan records in Postgres. Records older than the
// retention window are treated as absent and pruned opportunistically.
type PGStore struct {
	db        *pgxpool.Pool
	retention time.Duration
}

// PGOption configures a PGStore.
type PGOption func(*PGStore)

// WithPGRetention overrides the record retention window.
func WithPGRetention(d time.Duration) PGOption {
	return func(s *PGStore) {
		s.retention = d
	}
}

// NewPGStore creates the scan table if needed and returns the store.
// The pool is shared; Close does not close it.
func NewPGStore(ctx context.Context, db *pgxpool.Pool, opts ...PGOption) (*PGStore, error) {
	s := &PGStore{
		db:        db,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(ctx, scanSchema); err != nil {
		return nil, fmt.Errorf("create scan schema: %w", err)
	}
	return s, nil
}

// Save stores or replaces a scan record.
func (s *PGStore) Save(ctx context.Context, req *ScanRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal scan request: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO scan_requests (id, created_at, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`, req.ID, req.CreatedAt, payload)
	if err != nil {
		return fmt.Errorf("save scan request: %w", err)
	}
	return nil
}

// Get returns a scan record still inside the retention window.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*ScanRequest, error) {
	cutoff := time.Now().Add(-s.retention)

	var payload []byte
	err := s.db.QueryRow(ctx, `
		SELECT payload FROM scan_requests
		WHERE id = $1 AND created_at > $2
	`, id, cutoff).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scan request: %w", err)
	}

	var req ScanRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode scan request: %w", err)
	}
	return &req, nil
}

// Prune deletes records past the retention window and returns how many
// were removed.
func (s *PGStore) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	ct, err := s.db.Exec(ctx, `DELETE FROM scan_requests WHERE created_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune scan requests: %w", err)
	}
	return ct.RowsAffected(), nil
}

// Close releases nothing; the pool belongs to the caller.
func (s *PGStore) Close() error {
	return nil
}
