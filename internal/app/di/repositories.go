package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ohlcv_ingestor/internal/feature/ohlcv/adapters"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/cache"
)

// NewCandleRepository creates a CandleRepository implementation.
// If Redis is available, date bounds are cached in Redis.
// Otherwise, every lookup goes to PostgreSQL.
func NewCandleRepository(rdb *redis.Client, db *gorm.DB, ttl time.Duration, namespace string) usecase.CandleRepository {
	repo := adapters.NewCandleRepository(db)
	if rdb != nil {
		return cache.NewCachingCandleRepository(rdb, ttl, repo, namespace)
	}
	return repo
}
