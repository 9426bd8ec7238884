// Package di provides dependency injection factories for creating application components.
package di

import (
	"fmt"

	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/config"
	"ohlcv_ingestor/internal/platform/externalapi/polygon"
	"ohlcv_ingestor/internal/platform/externalapi/twelvedata"
	"ohlcv_ingestor/internal/platform/externalapi/yahoo"
	infrahttp "ohlcv_ingestor/internal/platform/http"
)

// NewProvider creates a fully configured provider client by name.
// Each call returns a new client with its own rate limiter.
func NewProvider(name string) (usecase.Provider, error) {
	switch name {
	case twelvedata.ProviderName:
		cfg := twelvedata.LoadConfig()
		return twelvedata.NewTwelveDataMarket(cfg, infrahttp.NewHTTPClient(cfg.Timeout)), nil
	case yahoo.ProviderName:
		cfg := yahoo.LoadConfig()
		return yahoo.NewYahooChart(cfg, infrahttp.NewHTTPClient(cfg.Timeout)), nil
	case polygon.ProviderName:
		cfg := polygon.LoadConfig()
		return polygon.NewPolygonAggs(cfg, infrahttp.NewHTTPClient(cfg.Timeout)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// NewFetcherFactory validates the configured provider pair and returns a factory
// building a fresh primary/secondary chain for every run.
func NewFetcherFactory(p config.Providers, r config.Retry, metrics usecase.Metrics) (func() usecase.CandleFetcher, error) {
	for _, name := range []string{p.Primary, p.Secondary} {
		if _, err := NewProvider(name); err != nil {
			return nil, err
		}
	}
	rs := usecase.RetrySettings{MaxAttempts: r.MaxAttempts, BaseDelay: r.BaseDelay}
	return func() usecase.CandleFetcher {
		// names were validated above
		primary, _ := NewProvider(p.Primary)
		secondary, _ := NewProvider(p.Secondary)
		return usecase.NewProviderChain(primary, secondary, rs, metrics)
	}, nil
}
