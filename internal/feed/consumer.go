package feed

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skelsey/galmarket/internal/cache"
	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/model"
)

// Archiver receives accepted feed snapshots. Record must not block.
type Archiver interface {
	Record(snap model.MarketSnapshot)
}

// Config holds consumer configuration.
type Config struct {
	URL            string
	ReconnectDelay time.Duration // Wait between connection attempts (default: 5s)

	// WriteSnapshots also writes each event's market data into the
	// cache with feed-source priority, instead of only invalidating.
	WriteSnapshots bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ReconnectDelay: 5 * time.Second,
	}
}

// Consumer reads the relay and keeps the freshness cache honest.
type Consumer struct {
	cfg      Config
	store    cache.Store
	archiver Archiver // may be nil
	logger   *slog.Logger

	dial func() Transport

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithDialer overrides how transports are created, for tests.
func WithDialer(dial func() Transport) Option {
	return func(c *Consumer) {
		c.dial = dial
	}
}

// NewConsumer creates a feed consumer.
func NewConsumer(cfg Config, store cache.Store, archiver Archiver, logger *slog.Logger, opts ...Option) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultConfig(cfg.URL).ReconnectDelay
	}

	c := &Consumer{
		cfg:      cfg,
		store:    store,
		archiver: archiver,
		logger:   logger,
	}
	c.dial = func() Transport {
		return NewTransport(DefaultTransportConfig(cfg.URL), logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run()

	c.logger.Info("feed consumer started",
		"url", c.cfg.URL,
		"write_snapshots", c.cfg.WriteSnapshots,
	)
	return nil
}

// Stop shuts the consumer down.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("feed consumer stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("feed consumer stop timed out")
		return ctx.Err()
	}
}

// run dials, consumes until the transport fails, and reconnects after a
// fixed delay. A relay outage never crashes the process.
func (c *Consumer) run() {
	defer c.wg.Done()

	for {
		if c.ctx.Err() != nil {
			return
		}

		transport := c.dial()
		if err := transport.Connect(c.ctx); err != nil {
			c.logger.Warn("relay connect failed", "err", err)
			metrics.FeedReconnects.Inc()
			if !c.sleep(c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		c.consume(transport)
		transport.Close()

		if c.ctx.Err() != nil {
			return
		}
		metrics.FeedReconnects.Inc()
		if !c.sleep(c.cfg.ReconnectDelay) {
			return
		}
	}
}

// sleep waits for d, reporting false if the consumer stopped first.
func (c *Consumer) sleep(d time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Consumer) consume(transport Transport) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case err := <-transport.Errors():
			c.logger.Warn("relay read failed", "err", err)
			return
		case msg := <-transport.Messages():
			if err := c.handle(msg.Data); err != nil {
				metrics.FeedEvents.WithLabelValues("malformed").Inc()
				c.logger.Debug("dropped relay event", "err", err)
			}
		}
	}
}

// handle decompresses and applies one relay event.
func (c *Consumer) handle(raw []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("zlib: %w", err)
	}
	decoded, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(decoded, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.SchemaRef != CommoditySchema {
		metrics.FeedEvents.WithLabelValues("skipped").Inc()
		return nil
	}

	var msg CommodityMessage
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return fmt.Errorf("decode commodity message: %w", err)
	}
	if msg.SystemName == "" || msg.StationName == "" {
		return fmt.Errorf("commodity message missing system or station")
	}

	snap := c.toSnapshot(msg)

	if err := c.store.MarkDirty(c.ctx, snap.Key); err != nil {
		return fmt.Errorf("mark dirty %s: %w", snap.Key, err)
	}

	if c.cfg.WriteSnapshots {
		accepted, err := c.store.Put(c.ctx, snap)
		if err != nil {
			return fmt.Errorf("put %s: %w", snap.Key, err)
		}
		if accepted && c.archiver != nil {
			c.archiver.Record(snap)
		}
	}

	metrics.FeedEvents.WithLabelValues("consumed").Inc()
	return nil
}

// toSnapshot normalizes a commodity event to the canonical shape.
func (c *Consumer) toSnapshot(msg CommodityMessage) model.MarketSnapshot {
	commodities := make([]model.Commodity, len(msg.Commodities))
	for i, fc := range msg.Commodities {
		commodities[i] = model.Commodity{
			Name:      strings.ToLower(fc.Name),
			BuyPrice:  fc.BuyPrice,
			SellPrice: fc.SellPrice,
			Stock:     fc.Stock,
			Demand:    fc.Demand,
		}
	}

	return model.MarketSnapshot{
		Key:         model.Key{System: msg.SystemName, Station: msg.StationName},
		MarketID:    msg.MarketID,
		StationType: msg.StationType,
		UpdatedAt:   msg.Timestamp.UTC(),
		Source:      model.SourceFeed,
		Commodities: commodities,
	}
}
