// Package cache memoises bulletin decodes, in process or shared through Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"notam_parser/internal/extractor"
	"notam_parser/internal/observability"
)

// Cache stores decode results by bulletin key.
type Cache interface {
	Get(ctx context.Context, key string) (*extractor.Result, bool, error)
	Set(ctx context.Context, key string, res *extractor.Result) error
	Close() error
}

// Key derives the cache key of a bulletin.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Memory is an in-process LRU cache with per-entry expiry.
type Memory struct {
	lru *expirable.LRU[string, *extractor.Result]
}

// NewMemory creates a cache holding at most size results for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, *extractor.Result](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (*extractor.Result, bool, error) {
	res, ok := m.lru.Get(key)
	return res, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, res *extractor.Result) error {
	m.lru.Add(key, res)
	return nil
}

func (m *Memory) Close() error { m.lru.Purge(); return nil }

// Len returns the number of cached results.
func (m *Memory) Len() int { return m.lru.Len() }

// RedisClient is the subset of the go-redis client the cache uses.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis is a cache shared by every process pointed at the same server.
type Redis struct {
	client RedisClient
	ttl    time.Duration
}

// keyPrefix namespaces decode entries in a shared Redis.
const keyPrefix = "notam:decode:"

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*extractor.Result, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get decode: %w", err)
	}

	var res extractor.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("unmarshal decode: %w", err)
	}
	return &res, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, res *extractor.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal decode: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set decode: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

// Decoder decodes bulletins through a cache. Cache failures are logged and
// fall through to a fresh decode.
type Decoder struct {
	dec     *extractor.Decoder
	cache   Cache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewDecoder wraps dec. A nil cache decodes every call; nil metrics are not recorded.
func NewDecoder(dec *extractor.Decoder, c Cache, m *observability.Metrics, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{dec: dec, cache: c, metrics: m, logger: logger}
}

// Decode returns the decode of text, from the cache when present.
func (d *Decoder) Decode(ctx context.Context, text string) *extractor.Result {
	if d.cache == nil {
		return d.decode(text)
	}

	key := Key(text)
	res, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Warn("cache lookup failed", "error", err)
	}
	if ok {
		d.metrics.CacheHit()
		return res
	}
	d.metrics.CacheMiss()

	res = d.decode(text)
	if err := d.cache.Set(ctx, key, res); err != nil {
		d.logger.Warn("cache store failed", "error", err)
	}
	return res
}

func (d *Decoder) decode(text string) *extractor.Result {
	start := time.Now()
	res := d.dec.Decode(text)
	polygons := res.Polygons()
	d.metrics.ObserveDecode(res.Notices, len(res.Dropped), len(res.Records)-polygons, polygons, time.Since(start))
	return res
}
