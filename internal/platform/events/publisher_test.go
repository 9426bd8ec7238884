package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testSummary() *usecase.RunSummary {
	return &usecase.RunSummary{
		RunID:       uuid.MustParse("0b8e6a63-5a4f-4a7c-b1a4-3f5d7c9e2a10"),
		JobName:     entity.JobOHLCV,
		TriggerType: entity.TriggerManualCLI,
		Target:      "nasdaq-100",
		Start:       "2025-01-01",
		End:         "2025-03-31",
		Status:      entity.RunFailed,
		Total:       2,
		Succeeded:   1,
		Failed:      1,
		FinishedAt:  time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC),
		Items: []usecase.TickerResult{
			{Ticker: "AAPL", Status: entity.ItemSuccess, Rows: 61},
			{Ticker: "MSFT", Status: entity.ItemFailed},
		},
	}
}

func TestKafkaPublisher_PublishRunFinished(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "runs"}

	require.NoError(t, p.PublishRunFinished(context.Background(), testSummary()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "0b8e6a63-5a4f-4a7c-b1a4-3f5d7c9e2a10", string(msg.Key))

	var ev RunFinished
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "ingestion_run_finished", ev.Event)
	assert.Equal(t, "FAILED", ev.Status)
	assert.Equal(t, "nasdaq-100", ev.Target)
	assert.Equal(t, int64(61), ev.RowsWritten)
	assert.Equal(t, 1, ev.Failed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaPublisher{w: w, topic: "runs"}

	err := p.PublishRunFinished(context.Background(), testSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to runs")
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(Config{Topic: "runs"})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TOPIC", "")

	cfg := LoadConfig()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, defaultTopic, cfg.Topic)
}
