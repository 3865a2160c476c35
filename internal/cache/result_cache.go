package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pavement/pavement-api/internal/models"
	"github.com/pavement/pavement-api/internal/telemetry"
)

const keyPrefix = "parking:"

// ResultCacheEntry wraps a cached response payload with metadata
type ResultCacheEntry struct {
	Payload  json.RawMessage `json:"payload"`
	CachedAt time.Time       `json:"cached_at"`
}

// ResultCacheStats tracks cache performance metrics
type ResultCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// ResultCache stores computed parking responses in Redis. A nil client or a
// zero TTL disables it; every method is then a no-op miss.
type ResultCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger

	mu    sync.RWMutex
	stats ResultCacheStats
}

// NewResultCache creates a Redis-backed response cache.
func NewResultCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ResultCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ResultCache{redis: redisClient, ttl: ttl, logger: logger}
}

// Enabled reports whether lookups can hit.
func (c *ResultCache) Enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Key derives the cache key of a query: parking:<metric>:<sha256 of the
// normalized query>.
func Key(query models.ParkingQuery) string {
	normalized := query
	normalized.Range = models.TimeRange{Start: query.Range.Start.UTC(), End: query.Range.End.UTC()}
	if !normalized.Selector.Constrained() {
		normalized.Selector = models.AllSpaces()
	}

	data, _ := json.Marshal(normalized)
	sum := sha256.Sum256(data)
	return keyPrefix + string(query.Metric) + ":" + hex.EncodeToString(sum[:])
}

// Get loads the cached response for query into dest. Redis and decoding errors
// are logged and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, query models.ParkingQuery, dest any) bool {
	if !c.Enabled() {
		return false
	}
	key := Key(query)

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.get",
		telemetry.StringAttribute("cache.key", key))
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record(func(s *ResultCacheStats) { s.Misses++ })
		telemetry.SetSpanAttributes(span, telemetry.BoolAttribute("cache.hit", false))
		return false
	}
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.WithError(err).WithField("key", key).Warn("Redis error reading cached response")
		c.record(func(s *ResultCacheStats) { s.Misses++; s.Errors++ })
		return false
	}

	var entry ResultCacheEntry
	if err := json.Unmarshal(data, &entry); err == nil {
		err = json.Unmarshal(entry.Payload, dest)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cached response")
		c.record(func(s *ResultCacheStats) { s.Misses++; s.Errors++ })
		return false
	}

	c.record(func(s *ResultCacheStats) { s.Hits++ })
	telemetry.SetSpanAttributes(span, telemetry.BoolAttribute("cache.hit", true))
	c.logger.WithFields(logrus.Fields{"key": key, "cached_at": entry.CachedAt}).Debug("Cache hit")
	return true
}

// Set stores value as the response of query. Failures are logged only.
func (c *ResultCache) Set(ctx context.Context, query models.ParkingQuery, value any) {
	if !c.Enabled() {
		return
	}
	key := Key(query)

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "cache.set",
		telemetry.StringAttribute("cache.key", key))
	defer span.End()

	payload, err := json.Marshal(value)
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.WithError(err).WithField("key", key).Warn("Error serializing response for cache")
		c.record(func(s *ResultCacheStats) { s.Errors++ })
		return
	}
	data, err := json.Marshal(ResultCacheEntry{Payload: payload, CachedAt: time.Now().UTC()})
	if err != nil {
		telemetry.RecordError(span, err)
		c.record(func(s *ResultCacheStats) { s.Errors++ })
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		telemetry.RecordError(span, err)
		c.logger.WithError(err).WithField("key", key).Warn("Redis error caching response")
		c.record(func(s *ResultCacheStats) { s.Errors++ })
		return
	}

	c.record(func(s *ResultCacheStats) { s.Sets++ })
	c.logger.WithFields(logrus.Fields{"key": key, "ttl": c.ttl.String()}).Debug("Cached response")
}

func (c *ResultCache) record(update func(*ResultCacheStats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

// GetStats returns current cache statistics
func (c *ResultCache) GetStats() ResultCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *ResultCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Response cache stats")
}

// Clear removes every cached response.
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	if c == nil || c.redis == nil {
		return 0, nil
	}

	var keys []string
	iter := c.redis.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("keys", len(keys)).Info("Cleared response cache")
	return len(keys), nil
}
