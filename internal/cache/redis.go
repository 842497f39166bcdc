package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skelsey/galmarket/internal/metrics"
	"github.com/skelsey/galmarket/internal/model"
)

// RedisStore is a Store backed by Redis, for deployments where the feed
// consumer and the scan service run as separate processes. Keys live in
// three namespaces: market snapshots, per-key dirty flags, and per-system
// aggregates. TTLs bound growth.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore, *redis.Options)

// WithRedisTTL overrides the retention TTL. Zero disables expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore, _ *redis.Options) { s.ttl = ttl }
}

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore, _ *redis.Options) { s.prefix = prefix }
}

// WithPassword sets the Redis password.
func WithPassword(password string) RedisOption {
	return func(_ *RedisStore, o *redis.Options) { o.Password = password }
}

// WithDB selects a Redis database number.
func WithDB(db int) RedisOption {
	return func(_ *RedisStore, o *redis.Options) { o.DB = db }
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{Addr: addr}
	s := &RedisStore{
		prefix: "galmarket",
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s, ro)
	}

	s.rdb = redis.NewClient(ro)
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		_ = s.rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return s, nil
}

func (s *RedisStore) snapKey(key model.Key) string {
	return s.prefix + ":market:" + key.String()
}

func (s *RedisStore) dirtyKey(key model.Key) string {
	return s.prefix + ":market-dirty:" + key.String()
}

func (s *RedisStore) systemKey(system string) string {
	return s.prefix + ":dirty:" + system
}

func (s *RedisStore) stationsKey(system string) string {
	return s.prefix + ":stations:" + system
}

// Get returns the current snapshot for a key, stale or not.
func (s *RedisStore) Get(ctx context.Context, key model.Key) (model.MarketSnapshot, bool, error) {
	data, err := s.rdb.Get(ctx, s.snapKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.MarketSnapshot{}, false, nil
	}
	if err != nil {
		return model.MarketSnapshot{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var snap model.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.MarketSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snap, true, nil
}

// Put writes a snapshot, enforcing the source-priority rule. The check
// and the write are not atomic; per the shared-resource policy the last
// compatible writer wins.
func (s *RedisStore) Put(ctx context.Context, snap model.MarketSnapshot) (bool, error) {
	existing, have, err := s.Get(ctx, snap.Key)
	if err != nil {
		return false, err
	}

	ok := accepts(existing, have, snap)
	metrics.CacheWrites.WithLabelValues(string(snap.Source), strconv.FormatBool(ok)).Inc()
	if !ok {
		return false, nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", snap.Key, err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, s.snapKey(snap.Key), data, s.ttl)
	pipe.Del(ctx, s.dirtyKey(snap.Key))
	pipe.SAdd(ctx, s.stationsKey(snap.Key.System), snap.Key.Station)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.stationsKey(snap.Key.System), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis put %s: %w", snap.Key, err)
	}
	return true, nil
}

// MarkDirty invalidates a populated key. Unknown keys are untouched.
func (s *RedisStore) MarkDirty(ctx context.Context, key model.Key) error {
	state, err := s.State(ctx, key)
	if err != nil {
		return err
	}
	if state == Unknown {
		return nil
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, s.dirtyKey(key), "1", s.ttl)
	pipe.Set(ctx, s.systemKey(key.System), "1", s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mark dirty %s: %w", key, err)
	}
	return nil
}

// State returns the key's freshness.
func (s *RedisStore) State(ctx context.Context, key model.Key) (Freshness, error) {
	pipe := s.rdb.Pipeline()
	dirty := pipe.Exists(ctx, s.dirtyKey(key))
	snap := pipe.Exists(ctx, s.snapKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return Unknown, fmt.Errorf("redis state %s: %w", key, err)
	}

	if dirty.Val() > 0 {
		return Dirty, nil
	}
	if snap.Val() > 0 {
		return Clean, nil
	}
	return Unknown, nil
}

// SystemState returns the per-system dirty aggregate.
func (s *RedisStore) SystemState(ctx context.Context, system string) (Freshness, error) {
	val, err := s.rdb.Get(ctx, s.systemKey(system)).Result()
	if errors.Is(err, redis.Nil) {
		return Unknown, nil
	}
	if err != nil {
		return Unknown, fmt.Errorf("redis system state %s: %w", system, err)
	}
	if val == "1" {
		return Dirty, nil
	}
	return Clean, nil
}

// MarkSystemClean clears the per-system aggregate.
func (s *RedisStore) MarkSystemClean(ctx context.Context, system string) error {
	if err := s.rdb.Set(ctx, s.systemKey(system), "0", s.ttl).Err(); err != nil {
		return fmt.Errorf("redis mark system clean %s: %w", system, err)
	}
	return nil
}

// StationsIn lists station names with cached snapshots in a system.
func (s *RedisStore) StationsIn(ctx context.Context, system string) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.stationsKey(system)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis stations %s: %w", system, err)
	}
	return names, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
