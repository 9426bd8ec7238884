package usecase

import (
	"context"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"

	"github.com/google/uuid"
)

// Interfaces are defined by the consumer (usecase), not the provider (adapters).

// Provider は外部データソースから日足を取得するクライアントです。
// 失敗は必ず *domain.ProviderError (Transient / Empty / Permanent) で返します。
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error)
}

// CandleRepository は正規化済み日足の永続化を担います。
type CandleRepository interface {
	// UpsertBatch は (instrumentID, as_of_date) 単位で冪等に書き込み、書き込んだ行数を返します。
	UpsertBatch(ctx context.Context, instrumentID, runID uuid.UUID, candles []entity.Candle, source string) (int64, error)
	// GetDateBounds は保存済みの最小日と最大日を返します。行がない場合は両方 nil です。
	GetDateBounds(ctx context.Context, instrumentID uuid.UUID) (min, max *time.Time, err error)
}

// AuditRepository は実行単位と銘柄単位の監査レコードを扱います。
type AuditRepository interface {
	CreateRun(ctx context.Context, run *entity.IngestionRun) error
	FinalizeRun(ctx context.Context, run *entity.IngestionRun) error
	UpsertItem(ctx context.Context, item *entity.IngestionItem) error
}

// InstrumentRepository は対象銘柄の解決を担います。
type InstrumentRepository interface {
	ListForIndex(ctx context.Context, indexCode, country string) ([]entity.Instrument, error)
	FindByTicker(ctx context.Context, ticker, country string) (*entity.Instrument, error)
}

// RunPublisher は実行完了イベントを外部へ通知します。
type RunPublisher interface {
	PublishRunFinished(ctx context.Context, summary *RunSummary) error
}

// Metrics records ingestion counters. Implementations must be safe for concurrent use.
type Metrics interface {
	ProviderCall(provider, outcome string)
	ProviderRetry(provider string)
	Fallback(from, to string)
	ChunkProcessed(status string, d time.Duration)
	RowsWritten(source string, n int64)
	TickerProcessed(status string)
}

type nopMetrics struct{}

func (nopMetrics) ProviderCall(string, string) {}
func (nopMetrics) ProviderRetry(string) {}
func (nopMetrics) Fallback(string, string) {}
func (nopMetrics) ChunkProcessed(string, time.Duration) {}
func (nopMetrics) RowsWritten(string, int64) {}
func (nopMetrics) TickerProcessed(string) {}

type nopPublisher struct{}

func (nopPublisher) PublishRunFinished(context.Context, *RunSummary) error { return nil }
