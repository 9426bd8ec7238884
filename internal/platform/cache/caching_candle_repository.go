// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

const (
	defaultTTL       = 10 * time.Minute
	defaultNamespace = "ohlcv"
)

// CachingCandleRepository decorates a CandleRepository with a Redis cache of
// per-instrument date bounds. Writes go straight through and drop the cached bounds.
type CachingCandleRepository struct {
	inner     usecase.CandleRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.CandleRepository = (*CachingCandleRepository)(nil)

// boundsEntry is the cached form of GetDateBounds. nil means no rows.
type boundsEntry struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

// NewCachingCandleRepository decorates a CandleRepository with Redis caching.
// If ttl is 0, it defaults to 10 minutes. If namespace is empty, it uses "ohlcv".
// A nil rdb disables caching.
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner usecase.CandleRepository, namespace string) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingCandleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// UpsertBatch writes candles and invalidates the instrument's cached bounds.
func (c *CachingCandleRepository) UpsertBatch(ctx context.Context, instrumentID, runID uuid.UUID, candles []entity.Candle, source string) (int64, error) {
	n, err := c.inner.UpsertBatch(ctx, instrumentID, runID, candles, source)
	if err != nil {
		return n, err
	}
	if c.rdb == nil || len(candles) == 0 {
		return n, nil
	}
	// Best effort: a stale entry expires with the TTL
	if err := c.rdb.Del(ctx, c.boundsKey(instrumentID)).Err(); err != nil {
		slog.Warn("failed to invalidate bounds cache", "instrument_id", instrumentID, "error", err)
	}
	return n, nil
}

// GetDateBounds returns the stored date bounds, checking the cache first.
func (c *CachingCandleRepository) GetDateBounds(ctx context.Context, instrumentID uuid.UUID) (*time.Time, *time.Time, error) {
	if c.rdb == nil {
		return c.inner.GetDateBounds(ctx, instrumentID)
	}

	key := c.boundsKey(instrumentID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		if minDate, maxDate, err := decodeBounds(b); err == nil {
			return minDate, maxDate, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	minDate, maxDate, err := c.inner.GetDateBounds(ctx, instrumentID)
	if err != nil {
		return nil, nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := encodeBounds(minDate, maxDate); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return minDate, maxDate, nil
}

func (c *CachingCandleRepository) boundsKey(instrumentID uuid.UUID) string {
	return fmt.Sprintf("%s:bounds:%s", safe(c.namespace), instrumentID)
}

func encodeBounds(minDate, maxDate *time.Time) ([]byte, error) {
	return json.Marshal(boundsEntry{Min: formatPtr(minDate), Max: formatPtr(maxDate)})
}

func decodeBounds(b []byte) (*time.Time, *time.Time, error) {
	var e boundsEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, nil, err
	}
	minDate, err := parsePtr(e.Min)
	if err != nil {
		return nil, nil, err
	}
	maxDate, err := parsePtr(e.Max)
	if err != nil {
		return nil, nil, err
	}
	return minDate, maxDate, nil
}

func formatPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := entity.FormatDate(*t)
	return &s
}

func parsePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(entity.DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
