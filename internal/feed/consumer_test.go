package feed

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/model"
)

// fakeTransport feeds canned messages to the consumer.
type fakeTransport struct {
	messages chan Message
	errors   chan error
	closed   chan struct{}
	once     sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan Message, 64),
		errors:   make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (t *fakeTransport) Connect(ctx context.Context) error { return nil }
func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}
func (t *fakeTransport) Messages() <-chan Message { return t.messages }
func (t *fakeTransport) Errors() <-chan error     { return t.errors }

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func commodityEvent(t *testing.T, system, station string, ts time.Time) []byte {
	t.Helper()
	msg, err := json.Marshal(CommodityMessage{
		SystemName:  system,
		StationName: station,
		MarketID:    128001,
		Timestamp:   ts,
		Commodities: []FeedCommodity{
			{Name: "Gold", SellPrice: 9000, Demand: 50},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, err := json.Marshal(Envelope{
		SchemaRef: CommoditySchema,
		Message:   msg,
	})
	if err != nil {
		t.Fatal(err)
	}
	return compress(t, env)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nullWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func startConsumer(t *testing.T, cfg Config, store cache.Store, archiver Archiver, transport Transport) *Consumer {
	t.Helper()
	cfg.ReconnectDelay = time.Hour // no reconnect churn during tests
	c := NewConsumer(cfg, store, archiver, quietLogger(),
		WithDialer(func() Transport { return transport }),
	)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		c.Stop(ctx)
	})
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestConsumer_MarksStationDirty(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	key := model.Key{System: "Sol", Station: "Abraham Lincoln"}

	// Seed a populated key so the invalidation has something to hit.
	if _, err := store.Put(ctx, model.MarketSnapshot{
		Key: key, Source: model.SourceBulkDump, UpdatedAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	transport := newFakeTransport()
	startConsumer(t, Config{URL: "ws://relay"}, store, nil, transport)

	transport.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", time.Now())}

	waitFor(t, func() bool {
		st, _ := store.State(ctx, key)
		return st == cache.Dirty
	})

	sysState, _ := store.SystemState(ctx, "Sol")
	if sysState != cache.Dirty {
		t.Errorf("SystemState = %v, want Dirty", sysState)
	}
}

func TestConsumer_WriteSnapshots(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	key := model.Key{System: "Sol", Station: "Abraham Lincoln"}

	transport := newFakeTransport()
	startConsumer(t, Config{URL: "ws://relay", WriteSnapshots: true}, store, nil, transport)

	ts := time.Now().UTC().Truncate(time.Second)
	transport.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", ts)}

	waitFor(t, func() bool {
		_, ok, _ := store.Get(ctx, key)
		return ok
	})

	snap, _, _ := store.Get(ctx, key)
	if snap.Source != model.SourceFeed {
		t.Errorf("Source = %q, want %q", snap.Source, model.SourceFeed)
	}
	if len(snap.Commodities) != 1 || snap.Commodities[0].Name != "gold" {
		t.Errorf("Commodities = %v, want normalized gold listing", snap.Commodities)
	}
	if !snap.UpdatedAt.Equal(ts) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, ts)
	}
}

type recordingArchiver struct {
	mu    sync.Mutex
	snaps []model.MarketSnapshot
}

func (a *recordingArchiver) Record(snap model.MarketSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, snap)
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.snaps)
}

func TestConsumer_ArchivesAcceptedWrites(t *testing.T) {
	store := cache.NewMemoryStore()
	archiver := &recordingArchiver{}

	transport := newFakeTransport()
	startConsumer(t, Config{URL: "ws://relay", WriteSnapshots: true}, store, archiver, transport)

	transport.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", time.Now())}

	waitFor(t, func() bool { return archiver.count() == 1 })
}

func TestConsumer_IgnoresOtherSchemas(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	transport := newFakeTransport()
	startConsumer(t, Config{URL: "ws://relay", WriteSnapshots: true}, store, nil, transport)

	env, err := json.Marshal(Envelope{
		SchemaRef: "https://eddn.edcd.io/schemas/journal/1",
		Message:   json.RawMessage(`{"event":"FSDJump"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	transport.messages <- Message{Data: compress(t, env)}

	// A valid commodity event afterwards proves the loop survived.
	transport.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", time.Now())}

	waitFor(t, func() bool {
		_, ok, _ := store.Get(ctx, model.Key{System: "Sol", Station: "Abraham Lincoln"})
		return ok
	})
}

func TestConsumer_DropsMalformedEvents(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	transport := newFakeTransport()
	startConsumer(t, Config{URL: "ws://relay", WriteSnapshots: true}, store, nil, transport)

	transport.messages <- Message{Data: []byte("not zlib at all")}
	transport.messages <- Message{Data: compress(t, []byte("not json"))}
	transport.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", time.Now())}

	waitFor(t, func() bool {
		_, ok, _ := store.Get(ctx, model.Key{System: "Sol", Station: "Abraham Lincoln"})
		return ok
	})
}

func TestConsumer_ReconnectsAfterTransportError(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	first := newFakeTransport()
	second := newFakeTransport()
	transports := []*fakeTransport{first, second}

	var mu sync.Mutex
	idx := 0

	cfg := Config{URL: "ws://relay", WriteSnapshots: true, ReconnectDelay: 10 * time.Millisecond}
	c := NewConsumer(cfg, store, nil, quietLogger(),
		WithDialer(func() Transport {
			mu.Lock()
			defer mu.Unlock()
			tr := transports[idx]
			if idx < len(transports)-1 {
				idx++
			}
			return tr
		}),
	)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		c.Stop(stopCtx)
	}()

	first.errors <- context.DeadlineExceeded

	// The consumer should come back on the second transport.
	waitFor(t, func() bool {
		select {
		case <-first.closed:
			return true
		default:
			return false
		}
	})

	second.messages <- Message{Data: commodityEvent(t, "Sol", "Abraham Lincoln", time.Now())}
	waitFor(t, func() bool {
		_, ok, _ := store.Get(ctx, model.Key{System: "Sol", Station: "Abraham Lincoln"})
		return ok
	})
}
