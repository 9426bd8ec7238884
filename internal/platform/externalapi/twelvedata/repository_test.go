package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
)

func testWindow() entity.DateWindow {
	return entity.DateWindow{Start: entity.Date(2025, 1, 13), End: entity.Date(2025, 1, 15)}
}

func newTestMarket(url string, client *http.Client) *TwelveDataMarket {
	cfg := Config{
		TwelveDataAPIKey: "test-key",
		BaseURL:          url,
	}
	return NewTwelveDataMarket(cfg, client)
}

func TestNewTwelveDataMarket(t *testing.T) {
	t.Parallel()

	cfg := Config{
		TwelveDataAPIKey: "test-key",
		BaseURL:          "https://api.test.com",
		Timeout:          10 * time.Second,
		MinDelay:         800 * time.Millisecond,
	}
	client := &http.Client{}

	market := NewTwelveDataMarket(cfg, client)

	if market == nil {
		t.Fatal("expected non-nil market")
	}
	if market.cfg.TwelveDataAPIKey != cfg.TwelveDataAPIKey {
		t.Errorf("expected API key %q, got %q", cfg.TwelveDataAPIKey, market.cfg.TwelveDataAPIKey)
	}
	if market.Name() != "twelvedata" {
		t.Errorf("expected name twelvedata, got %q", market.Name())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TWELVE_DATA_API_KEY", "k")
	t.Setenv("TWELVE_DATA_BASE_URL", "")

	cfg := LoadConfig()
	if cfg.BaseURL != defaultBaseURL {
		t.Errorf("expected base url %q, got %q", defaultBaseURL, cfg.BaseURL)
	}
	if cfg.MinDelay != defaultMinDelay {
		t.Errorf("expected min delay %v, got %v", defaultMinDelay, cfg.MinDelay)
	}
	if cfg.TwelveDataAPIKey != "k" {
		t.Errorf("expected api key k, got %q", cfg.TwelveDataAPIKey)
	}
}

func TestTwelveDataMarket_FetchDaily_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request parameters
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" {
			t.Errorf("expected symbol AAPL, got %s", q.Get("symbol"))
		}
		if q.Get("exchange") != "NASDAQ" {
			t.Errorf("expected exchange NASDAQ, got %s", q.Get("exchange"))
		}
		if q.Get("interval") != "1day" {
			t.Errorf("expected interval 1day, got %s", q.Get("interval"))
		}
		if q.Get("outputsize") != "100" {
			t.Errorf("expected outputsize 100, got %s", q.Get("outputsize"))
		}
		if q.Get("end_date") != "2025-01-16" {
			t.Errorf("expected end_date 2025-01-16, got %s", q.Get("end_date"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"meta": {"symbol": "AAPL", "interval": "1day", "exchange": "NASDAQ"},
			"values": [
				{"datetime": "2025-01-15", "open": "150.00", "high": "155.00", "low": "149.00", "close": "154.50", "volume": "1000000"},
				{"datetime": "2025-01-14 09:30:00", "open": "148.00", "high": "151.00", "low": "147.50", "close": "150.00", "volume": "900000"},
				{"datetime": "2025-01-10", "open": "140.00", "high": "141.00", "low": "139.00", "close": "140.50", "volume": "800000"}
			]
		}`))
	}))
	defer server.Close()

	market := newTestMarket(server.URL, server.Client())

	frame, err := market.FetchDaily(context.Background(), "NASDAQ", "AAPL", testWindow(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2025-01-10 is outside the window
	if frame.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", frame.Len())
	}
	if len(frame.Columns) != len(entity.RequiredColumns) {
		t.Errorf("expected all columns, got %v", frame.Columns)
	}
	if frame.Rows[0].Close.String != "154.50" {
		t.Errorf("expected close 154.50, got %q", frame.Rows[0].Close.String)
	}
	if frame.Rows[1].Volume.String != "900000" {
		t.Errorf("expected volume 900000, got %q", frame.Rows[1].Volume.String)
	}
}

func TestTwelveDataMarket_FetchDaily_MissingVolumeColumn(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"values": [
				{"datetime": "2025-01-15", "open": "1.0", "high": "1.2", "low": "0.9", "close": "1.1"}
			]
		}`))
	}))
	defer server.Close()

	market := newTestMarket(server.URL, server.Client())

	frame, err := market.FetchDaily(context.Background(), "", "EURUSD", testWindow(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.HasColumn(entity.ColVolume) {
		t.Errorf("expected volume column to be absent, got %v", frame.Columns)
	}
}

func TestTwelveDataMarket_FetchDaily_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		want       error
	}{
		{"bad request", http.StatusBadRequest, domain.ErrPermanentProvider},
		{"unauthorized", http.StatusUnauthorized, domain.ErrPermanentProvider},
		{"forbidden", http.StatusForbidden, domain.ErrPermanentProvider},
		{"not found", http.StatusNotFound, domain.ErrPermanentProvider},
		{"too many requests", http.StatusTooManyRequests, domain.ErrTransientProvider},
		{"internal server error", http.StatusInternalServerError, domain.ErrTransientProvider},
		{"service unavailable", http.StatusServiceUnavailable, domain.ErrTransientProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			market := newTestMarket(server.URL, server.Client())

			_, err := market.FetchDaily(context.Background(), "NASDAQ", "AAPL", testWindow(), 100)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), "twelvedata") {
				t.Errorf("expected provider name in error, got %v", err)
			}
		})
	}
}

func TestTwelveDataMarket_FetchDaily_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want error
	}{
		{"invalid key", `{"status": "error", "code": 401, "message": "Invalid API key"}`, domain.ErrPermanentProvider},
		{"rate limited", `{"status": "error", "code": 429, "message": "You have run out of API credits"}`, domain.ErrTransientProvider},
		{"no data", `{"status": "error", "code": 400, "message": "No data is available on the specified dates"}`, domain.ErrEmptyProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			market := newTestMarket(server.URL, server.Client())

			_, err := market.FetchDaily(context.Background(), "NASDAQ", "AAPL", testWindow(), 100)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTwelveDataMarket_FetchDaily_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer server.Close()

	market := newTestMarket(server.URL, server.Client())

	_, err := market.FetchDaily(context.Background(), "NASDAQ", "AAPL", testWindow(), 100)
	if !errors.Is(err, domain.ErrPermanentProvider) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestTwelveDataMarket_FetchDaily_Empty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no values", `{"status": "ok", "values": []}`},
		{"all outside window", `{"status": "ok", "values": [{"datetime": "2024-12-31", "open": "1", "high": "1", "low": "1", "close": "1", "volume": "1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			market := newTestMarket(server.URL, server.Client())

			_, err := market.FetchDaily(context.Background(), "NASDAQ", "AAPL", testWindow(), 100)
			if !errors.Is(err, domain.ErrEmptyProvider) {
				t.Errorf("expected empty error, got %v", err)
			}
		})
	}
}

func TestTwelveDataMarket_FetchDaily_ContextCanceled(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer server.Close()

	market := newTestMarket(server.URL, server.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := market.FetchDaily(ctx, "NASDAQ", "AAPL", testWindow(), 100)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if domain.IsTransient(err) {
		t.Errorf("canceled context should not be transient, got %v", err)
	}
}
