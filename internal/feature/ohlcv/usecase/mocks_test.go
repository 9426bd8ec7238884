package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

// mockProvider is a mock implementation of the Provider interface.
type mockProvider struct {
	mu            sync.Mutex
	name          string
	FetchFunc     func(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error)
	FetchCalls    int
	FetchedSymbol []string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) FetchDaily(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error) {
	m.mu.Lock()
	m.FetchCalls++
	m.FetchedSymbol = append(m.FetchedSymbol, symbol)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, exchange, symbol, window, limit)
	}
	return entity.RawFrame{}, errors.New("FetchFunc is not implemented")
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls
}

// mockCandleRepository is a mock implementation of the CandleRepository interface.
type mockCandleRepository struct {
	mu                sync.Mutex
	UpsertBatchFunc   func(ctx context.Context, instrumentID, runID uuid.UUID, candles []entity.Candle, source string) (int64, error)
	GetDateBoundsFunc func(ctx context.Context, instrumentID uuid.UUID) (*time.Time, *time.Time, error)
	UpsertBatchCalls  int
	Upserted          map[uuid.UUID][]entity.Candle
}

func (m *mockCandleRepository) UpsertBatch(ctx context.Context, instrumentID, runID uuid.UUID, candles []entity.Candle, source string) (int64, error) {
	m.mu.Lock()
	m.UpsertBatchCalls++
	if m.Upserted == nil {
		m.Upserted = map[uuid.UUID][]entity.Candle{}
	}
	m.Upserted[instrumentID] = append(m.Upserted[instrumentID], candles...)
	m.mu.Unlock()
	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, instrumentID, runID, candles, source)
	}
	return int64(len(candles)), nil
}

func (m *mockCandleRepository) GetDateBounds(ctx context.Context, instrumentID uuid.UUID) (*time.Time, *time.Time, error) {
	if m.GetDateBoundsFunc != nil {
		return m.GetDateBoundsFunc(ctx, instrumentID)
	}
	return nil, nil, nil
}

// mockAuditRepository records every audit write.
type mockAuditRepository struct {
	mu              sync.Mutex
	CreateRunFunc   func(ctx context.Context, run *entity.IngestionRun) error
	UpsertItemFunc  func(ctx context.Context, item *entity.IngestionItem) error
	Runs            []entity.IngestionRun
	Finalized       []entity.IngestionRun
	Items           map[string]entity.IngestionItem
	UpsertItemCalls int
}

func (m *mockAuditRepository) CreateRun(ctx context.Context, run *entity.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateRunFunc != nil {
		if err := m.CreateRunFunc(ctx, run); err != nil {
			return err
		}
	}
	m.Runs = append(m.Runs, *run)
	return nil
}

func (m *mockAuditRepository) FinalizeRun(ctx context.Context, run *entity.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finalized = append(m.Finalized, *run)
	return nil
}

func (m *mockAuditRepository) UpsertItem(ctx context.Context, item *entity.IngestionItem) error {
	m.mu.Lock()
	m.UpsertItemCalls++
	m.mu.Unlock()
	if m.UpsertItemFunc != nil {
		if err := m.UpsertItemFunc(ctx, item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Items == nil {
		m.Items = map[string]entity.IngestionItem{}
	}
	m.Items[item.Ticker] = *item
	return nil
}

// mockInstrumentRepository is a mock implementation of the InstrumentRepository interface.
type mockInstrumentRepository struct {
	instruments []entity.Instrument
	ListErr     error
}

func (m *mockInstrumentRepository) ListForIndex(ctx context.Context, indexCode, country string) ([]entity.Instrument, error) {
	return m.instruments, m.ListErr
}

func (m *mockInstrumentRepository) FindByTicker(ctx context.Context, ticker, country string) (*entity.Instrument, error) {
	for _, inst := range m.instruments {
		if inst.Ticker == ticker && inst.Country == country {
			i := inst
			return &i, nil
		}
	}
	return nil, nil
}

// mockPublisher captures published summaries.
type mockPublisher struct {
	mu        sync.Mutex
	Published []*RunSummary
}

func (m *mockPublisher) PublishRunFinished(ctx context.Context, s *RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, s)
	return nil
}

// dailyFrame builds a provider frame with one row per day in w.
func dailyFrame(w entity.DateWindow) entity.RawFrame {
	var rows []entity.RawCandle
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		rows = append(rows, entity.RawCandle{
			Date:   null.StringFrom(entity.FormatDate(d)),
			Open:   null.StringFrom("100.5"),
			High:   null.StringFrom("102"),
			Low:    null.StringFrom("99.25"),
			Close:  null.StringFrom("101"),
			Volume: null.StringFrom("1000"),
		})
	}
	return entity.NewRawFrame(rows)
}

func rawRow(date, open, high, low, close, volume string) entity.RawCandle {
	ns := func(s string) null.String {
		if s == "-" {
			return null.String{}
		}
		return null.StringFrom(s)
	}
	return entity.RawCandle{Date: ns(date), Open: ns(open), High: ns(high), Low: ns(low), Close: ns(close), Volume: ns(volume)}
}
