package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWindow = entity.DateWindow{Start: entity.Date(2025, 1, 1), End: entity.Date(2025, 1, 5)}

func fastRetry() RetrySettings {
	return RetrySettings{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func okFetch(ctx context.Context, exchange, symbol string, w entity.DateWindow, limit int) (entity.RawFrame, error) {
	return dailyFrame(w), nil
}

func TestProviderChain_Fetch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		primaryFunc    func(ctx context.Context, exchange, symbol string, w entity.DateWindow, limit int) (entity.RawFrame, error)
		secondaryFunc  func(ctx context.Context, exchange, symbol string, w entity.DateWindow, limit int) (entity.RawFrame, error)
		wantProvider   string
		wantFallback   bool
		wantErr        bool
		primaryCalls   int
		secondaryCalls int
	}{
		{
			name:           "primary succeeds",
			primaryFunc:    okFetch,
			wantProvider:   "primary",
			primaryCalls:   1,
			secondaryCalls: 0,
		},
		{
			name: "primary permanent goes straight to secondary",
			primaryFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
				return entity.RawFrame{}, domain.NewPermanent("primary", "unknown symbol", nil)
			},
			secondaryFunc:  okFetch,
			wantProvider:   "secondary",
			wantFallback:   true,
			primaryCalls:   1,
			secondaryCalls: 1,
		},
		{
			name: "primary empty goes straight to secondary",
			primaryFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
				return entity.RawFrame{}, domain.NewEmpty("primary", "no rows")
			},
			secondaryFunc:  okFetch,
			wantProvider:   "secondary",
			wantFallback:   true,
			primaryCalls:   1,
			secondaryCalls: 1,
		},
		{
			name: "primary transient exhausts retries then secondary",
			primaryFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
				return entity.RawFrame{}, domain.NewTransient("primary", "timeout", nil)
			},
			secondaryFunc:  okFetch,
			wantProvider:   "secondary",
			wantFallback:   true,
			primaryCalls:   3,
			secondaryCalls: 1,
		},
		{
			name: "both fail",
			primaryFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
				return entity.RawFrame{}, domain.NewTransient("primary", "timeout", nil)
			},
			secondaryFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
				return entity.RawFrame{}, domain.NewPermanent("secondary", "bad request", nil)
			},
			wantErr:        true,
			primaryCalls:   3,
			secondaryCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			primary := &mockProvider{name: "primary", FetchFunc: tc.primaryFunc}
			secondary := &mockProvider{name: "secondary", FetchFunc: tc.secondaryFunc}
			chain := NewProviderChain(primary, secondary, fastRetry(), nil)

			got, err := chain.Fetch(context.Background(), "NASDAQ", "AAPL", testWindow, 400)

			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "primary")
				assert.Contains(t, err.Error(), "secondary")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantProvider, got.Provider)
				assert.Equal(t, tc.wantFallback, got.FallbackUsed)
				assert.Equal(t, 5, got.Frame.Len())
			}
			assert.Equal(t, tc.primaryCalls, primary.calls())
			assert.Equal(t, tc.secondaryCalls, secondary.calls())
		})
	}
}

func TestProviderChain_BothFailCarriesClassification(t *testing.T) {
	t.Parallel()

	primary := &mockProvider{name: "twelvedata", FetchFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
		return entity.RawFrame{}, domain.NewEmpty("twelvedata", "no rows")
	}}
	secondary := &mockProvider{name: "yahoo", FetchFunc: func(context.Context, string, string, entity.DateWindow, int) (entity.RawFrame, error) {
		return entity.RawFrame{}, domain.NewPermanent("yahoo", "delisted", nil)
	}}
	chain := NewProviderChain(primary, secondary, fastRetry(), nil)

	_, err := chain.Fetch(context.Background(), "NYSE", "XYZ", testWindow, 10)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyProvider))
	assert.True(t, errors.Is(err, domain.ErrPermanentProvider))
	assert.Equal(t, []string{"twelvedata", "yahoo"}, chain.Providers())
}

func TestProviderChain_PassesArguments(t *testing.T) {
	t.Parallel()

	var gotExchange, gotSymbol string
	var gotLimit int
	var gotWindow entity.DateWindow
	primary := &mockProvider{name: "p", FetchFunc: func(ctx context.Context, exchange, symbol string, w entity.DateWindow, limit int) (entity.RawFrame, error) {
		gotExchange, gotSymbol, gotWindow, gotLimit = exchange, symbol, w, limit
		return dailyFrame(w), nil
	}}
	chain := NewProviderChain(primary, &mockProvider{name: "s"}, fastRetry(), nil)

	_, err := chain.Fetch(context.Background(), "NYSE", "IBM", testWindow, 123)

	require.NoError(t, err)
	assert.Equal(t, "NYSE", gotExchange)
	assert.Equal(t, "IBM", gotSymbol)
	assert.Equal(t, testWindow, gotWindow)
	assert.Equal(t, 123, gotLimit)
}
