package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/shared/retry"
)

// CandleFetcher は 1 チャンク分の日足を取得します。
type CandleFetcher interface {
	Fetch(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (FetchResult, error)
	// Providers lists provider names in the order they are tried.
	Providers() []string
}

// FetchResult is a successful fetch along with the provider that served it.
type FetchResult struct {
	Frame        entity.RawFrame
	Provider     string
	FallbackUsed bool
}

// RetrySettings configures per-provider retries inside a ProviderChain.
type RetrySettings struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ProviderChain は primary を試し、失敗したら secondary にフォールバックします。
// 各プロバイダ呼び出しは Transient エラーのみリトライします。
type ProviderChain struct {
	primary   Provider
	secondary Provider
	retry     RetrySettings
	metrics   Metrics
}

var _ CandleFetcher = (*ProviderChain)(nil)

// NewProviderChain は新しい ProviderChain を作成します。metrics が nil の場合は記録しません。
func NewProviderChain(primary, secondary Provider, rs RetrySettings, metrics Metrics) *ProviderChain {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ProviderChain{primary: primary, secondary: secondary, retry: rs, metrics: metrics}
}

// Providers returns the primary and secondary provider names.
func (c *ProviderChain) Providers() []string {
	return []string{c.primary.Name(), c.secondary.Name()}
}

// Fetch は primary を試し、リトライ切れ・Empty・Permanent の場合に secondary を試します。
// 両方失敗した場合は両方のエラーを含むエラーを返します。
func (c *ProviderChain) Fetch(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (FetchResult, error) {
	frame, primaryErr := c.call(ctx, c.primary, exchange, symbol, window, limit)
	if primaryErr == nil {
		return FetchResult{Frame: frame, Provider: c.primary.Name()}, nil
	}
	slog.Warn("primary provider failed, falling back",
		"primary", c.primary.Name(), "secondary", c.secondary.Name(),
		"exchange", exchange, "symbol", symbol, "window", window.String(), "error", primaryErr)
	c.metrics.Fallback(c.primary.Name(), c.secondary.Name())

	frame, secondaryErr := c.call(ctx, c.secondary, exchange, symbol, window, limit)
	if secondaryErr == nil {
		return FetchResult{Frame: frame, Provider: c.secondary.Name(), FallbackUsed: true}, nil
	}
	return FetchResult{}, fmt.Errorf("all providers failed: %w", errors.Join(
		fmt.Errorf("%s: %w", c.primary.Name(), primaryErr),
		fmt.Errorf("%s: %w", c.secondary.Name(), secondaryErr),
	))
}

func (c *ProviderChain) call(ctx context.Context, p Provider, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error) {
	policy := retry.Policy{
		MaxAttempts: c.retry.MaxAttempts,
		BaseDelay:   c.retry.BaseDelay,
		Label:       fmt.Sprintf("%s:%s:%s", p.Name(), exchange, symbol),
		Retryable:   domain.IsTransient,
		OnRetry: func(int, error, time.Duration) {
			c.metrics.ProviderRetry(p.Name())
		},
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (entity.RawFrame, error) {
		frame, err := p.FetchDaily(ctx, exchange, symbol, window, limit)
		c.metrics.ProviderCall(p.Name(), outcome(err))
		return frame, err
	})
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if k := domain.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
