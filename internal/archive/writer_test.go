package archive

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/skelsey/galmarket/internal/dispatch"
	"github.com/skelsey/galmarket/internal/model"
)

func testWriter() *Writer {
	return &Writer{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		input:  dispatch.NewGrowableBuffer[model.MarketSnapshot](16),
		batch:  make([]snapshotRow, 0, DefaultConfig().BatchSize),
	}
}

func TestTransform(t *testing.T) {
	w := testWriter()

	updated := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	snap := model.MarketSnapshot{
		Key:         model.Key{System: "Sol", Station: "Abraham Lincoln"},
		MarketID:    128001,
		StationType: "Orbis Starport",
		Source:      model.SourceFeed,
		UpdatedAt:   updated,
		Commodities: []model.Commodity{
			{Name: "gold", SellPrice: 9000, Demand: 50},
		},
	}

	row, err := w.transform(snap)
	if err != nil {
		t.Fatalf("transform() error = %v", err)
	}

	if row.System != "Sol" || row.Station != "Abraham Lincoln" {
		t.Errorf("row key = %s/%s, want Sol/Abraham Lincoln", row.System, row.Station)
	}
	if row.Source != "feed" {
		t.Errorf("Source = %q, want %q", row.Source, "feed")
	}
	if !row.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", row.UpdatedAt, updated)
	}

	var commodities []model.Commodity
	if err := json.Unmarshal(row.Commodities, &commodities); err != nil {
		t.Fatalf("commodities payload not valid JSON: %v", err)
	}
	if len(commodities) != 1 || commodities[0].Name != "gold" {
		t.Errorf("commodities = %v, want the gold listing", commodities)
	}
}

func TestHandle_AccumulatesBelowBatchSize(t *testing.T) {
	w := testWriter()

	for i := 0; i < w.cfg.BatchSize-1; i++ {
		w.handle(model.MarketSnapshot{
			Key:       model.Key{System: "Sol", Station: "Dock"},
			UpdatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.batch) != w.cfg.BatchSize-1 {
		t.Errorf("batch length = %d, want %d", len(w.batch), w.cfg.BatchSize-1)
	}
}

func TestRecord_NonBlocking(t *testing.T) {
	w := testWriter()

	// Far more than the initial buffer capacity; Record must not block
	// even with no consumer running.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			w.Record(model.MarketSnapshot{Key: model.Key{System: "Sol", Station: "Dock"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked")
	}

	if w.input.Len() != 1000 {
		t.Errorf("buffered = %d, want 1000", w.input.Len())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
}
