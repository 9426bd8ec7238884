package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

func testSummary() *usecase.RunSummary {
	return &usecase.RunSummary{
		RunID:     uuid.MustParse("0b8e6a63-5a4f-4a7c-b1a4-3f5d7c9e2a10"),
		JobName:   entity.JobOHLCVBackfill,
		Target:    "nasdaq-100",
		Start:     "2025-01-01",
		End:       "2025-03-31",
		Status:    entity.RunFailed,
		Total:     3,
		Succeeded: 2,
		Failed:    1,
		Skipped:   1,
		Items: []usecase.TickerResult{
			{Ticker: "AAPL", Exchange: "NASDAQ", Status: entity.ItemSuccess, Provider: "twelvedata", Rows: 61,
				MinDate: "2025-01-02", MaxDate: "2025-03-31", ChunksAttempted: 2, ChunksSucceeded: 2},
			{Ticker: "MSFT", Exchange: "NASDAQ", Status: entity.ItemFailed, ChunksAttempted: 1,
				Error: "2025-01-01..2025-03-31: all providers failed: " + strings.Repeat("x", 200)},
			{Ticker: "NVDA", Exchange: "NASDAQ", Status: entity.ItemSuccess, Skipped: true},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, testSummary()))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 5)

	assert.True(t, strings.HasPrefix(lines[0], "TICKER"))
	assert.Contains(t, lines[1], "AAPL")
	assert.Contains(t, lines[1], "twelvedata")
	assert.Contains(t, lines[1], "2/2")
	assert.Contains(t, lines[2], "MSFT")
	assert.Contains(t, lines[2], "...")
	assert.NotContains(t, lines[2], strings.Repeat("x", 100))
	assert.Contains(t, lines[3], "true")
	assert.Contains(t, out, "Status: FAILED  Total: 3  Succeeded: 2  Failed: 1  Skipped: 1")
}

func TestNewReport_Stats(t *testing.T) {
	days := 90
	r := NewReport(testSummary(), RequestMeta{Start: "2025-01-01", End: "2025-03-31", DaysBack: &days})

	assert.Equal(t, "ohlcv_backfill", r.Job)
	assert.Equal(t, "FAILED", r.Status)
	assert.Equal(t, Stats{
		TickersTotal:     3,
		TickersSucceeded: 2,
		TickersFailed:    1,
		TickersSkipped:   1,
		RowsWrittenTotal: 61,
	}, r.Stats)
	assert.Len(t, r.Items, 3)
}

func TestNewReport_NoItems(t *testing.T) {
	s := testSummary()
	s.Items = nil

	b, err := json.Marshal(NewReport(s, RequestMeta{}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"items":[]`)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "backfill")
	r := NewReport(testSummary(), RequestMeta{Start: "2025-01-01", End: "2025-03-31", ChunkDays: 60})

	path, err := WriteReport(dir, r, time.Date(2025, 4, 1, 6, 30, 15, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ohlcv_backfill_nasdaq-100_20250401_063015.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, 60, got.Requested.ChunkDays)
	assert.Equal(t, int64(61), got.Stats.RowsWrittenTotal)
}
