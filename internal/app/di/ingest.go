package di

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ohlcv_ingestor/internal/feature/ohlcv/adapters"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/config"
	"ohlcv_ingestor/internal/platform/events"
	infraredis "ohlcv_ingestor/internal/platform/redis"
)

// Deps are the shared infrastructure handles an ingest usecase is built from.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Metrics   usecase.Metrics
	Publisher usecase.RunPublisher
}

// NewIngestUsecase wires repositories, providers and collaborators into an IngestUsecase.
func NewIngestUsecase(cfg *config.Config, d Deps) (*usecase.IngestUsecase, error) {
	newFetcher, err := NewFetcherFactory(cfg.Providers, cfg.Retry, d.Metrics)
	if err != nil {
		return nil, err
	}
	return usecase.NewIngestUsecase(
		adapters.NewInstrumentRepository(d.DB),
		NewCandleRepository(d.Redis, d.DB, cfg.Cache.TTL, cfg.Cache.Namespace),
		adapters.NewAuditRepository(d.DB),
		newFetcher,
		usecase.IngestConfig{
			Workers:   cfg.Ingest.Workers,
			Metrics:   d.Metrics,
			Publisher: d.Publisher,
		},
	), nil
}

// OpenRedis connects to Redis when configured. It returns nil when Redis is
// unset or unreachable so callers run without the cache.
func OpenRedis(ctx context.Context) *redis.Client {
	rdb, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig())
	if err != nil {
		if !errors.Is(err, infraredis.ErrNotConfigured) {
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		}
		return nil
	}
	return rdb
}

// NewRunPublisher returns a Kafka publisher when KAFKA_BROKERS is set, else nil.
// The returned close func is always safe to call.
func NewRunPublisher() (usecase.RunPublisher, func()) {
	cfg := events.LoadConfig()
	if len(cfg.Brokers) == 0 {
		return nil, func() {}
	}
	p, err := events.NewKafkaPublisher(cfg)
	if err != nil {
		slog.Warn("run events disabled", "error", err)
		return nil, func() {}
	}
	slog.Info("publishing run events", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Warn("failed to close kafka writer", "error", err)
		}
	}
}
