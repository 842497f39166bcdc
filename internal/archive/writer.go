package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skelsey/galmarket/internal/dispatch"
	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/model"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
	system TEXT NOT NULL,
	station TEXT NOT NULL,
	market_id BIGINT,
	station_type TEXT,
	source TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	commodities JSONB NOT NULL,
	PRIMARY KEY (system, station, updated_at)
);
`

// Config holds writer configuration.
type Config struct {
	BatchSize     int           // Rows per insert batch (default: 100)
	FlushInterval time.Duration // Max time a row waits in the batch (default: 5s)
	BufferSize    int           // Input buffer initial capacity (default: 1024)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		BufferSize:    1024,
	}
}

// snapshotRow is the flattened insert shape.
type snapshotRow struct {
	System      string
	Station     string
	MarketID    int64
	StationType string
	Source      string
	UpdatedAt   time.Time
	Commodities []byte
}

// Writer consumes snapshots from its input buffer and writes them to the
// market_snapshots table.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	input *dispatch.GrowableBuffer[model.MarketSnapshot]
	db    *pgxpool.Pool

	batch   []snapshotRow
	batchMu sync.Mutex

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates the archive table if needed and returns the writer.
func NewWriter(ctx context.Context, cfg Config, db *pgxpool.Pool, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}

	if _, err := db.Exec(ctx, archiveSchema); err != nil {
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return &Writer{
		cfg:    cfg,
		logger: logger,
		input:  dispatch.NewGrowableBuffer[model.MarketSnapshot](cfg.BufferSize),
		db:     db,
		batch:  make([]snapshotRow, 0, cfg.BatchSize),
	}, nil
}

// Record queues a snapshot for archival without blocking the caller.
func (w *Writer) Record(snap model.MarketSnapshot) {
	w.input.Send(snap)
}

// Start begins consuming and flushing.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the input buffer and flushes what remains.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
	}

	// Anything still buffered goes out in one last batch.
	for _, snap := range w.input.DrainTo(0) {
		if row, err := w.transform(snap); err == nil {
			w.batchMu.Lock()
			w.batch = append(w.batch, row)
			w.batchMu.Unlock()
		}
	}
	w.flush()

	return nil
}

// consumeLoop reads snapshots from the input buffer into the batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			snap, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.handle(snap)
		}
	}
}

// flushLoop flushes the batch on a fixed interval.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

func (w *Writer) handle(snap model.MarketSnapshot) {
	row, err := w.transform(snap)
	if err != nil {
		w.logger.Warn("dropping unarchivable snapshot", "key", snap.Key, "err", err)
		return
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform flattens a snapshot into its insert row.
func (w *Writer) transform(snap model.MarketSnapshot) (snapshotRow, error) {
	commodities, err := json.Marshal(snap.Commodities)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("marshal commodities: %w", err)
	}
	return snapshotRow{
		System:      snap.Key.System,
		Station:     snap.Key.Station,
		MarketID:    snap.MarketID,
		StationType: snap.StationType,
		Source:      string(snap.Source),
		UpdatedAt:   snap.UpdatedAt,
		Commodities: commodities,
	}, nil
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("archive batch insert failed", "err", err, "count", len(batch))
		return
	}

	metrics.ArchiveRows.Add(float64(len(batch) - conflicts))
	metrics.ArchiveFlushes.Inc()

	w.logger.Debug("flushed snapshots",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO market_snapshots (system, station, market_id, station_type, source, updated_at, commodities)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (system, station, updated_at) DO NOTHING
		`, r.System, r.Station, r.MarketID, r.StationType, r.Source, r.UpdatedAt, r.Commodities)
	}

	results := w.db.SendBatch(context.Background(), batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}
	return conflicts, nil
}
