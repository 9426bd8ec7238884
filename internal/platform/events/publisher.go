// Package events publishes ingestion run events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
)

const (
	defaultTopic   = "ohlcv.ingestion.runs"
	eventRunFinish = "ingestion_run_finished"
)

// Config は Kafka 出力の設定です。Brokers が空ならイベントは送りません。
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// LoadConfig reads KAFKA_BROKERS (comma separated) and KAFKA_TOPIC.
func LoadConfig() Config {
	cfg := Config{
		Topic:        os.Getenv("KAFKA_TOPIC"),
		WriteTimeout: 10 * time.Second,
	}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.Brokers = append(cfg.Brokers, b)
		}
	}
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}
	return cfg
}

// RunFinished is the payload published after a run is finalized.
type RunFinished struct {
	Event       string    `json:"event"`
	RunID       string    `json:"run_id"`
	JobName     string    `json:"job_name"`
	TriggerType string    `json:"trigger_type"`
	Target      string    `json:"target"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	RowsWritten int64     `json:"rows_written"`
	FinishedAt  time.Time `json:"finished_at"`
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements usecase.RunPublisher.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

var _ usecase.RunPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher returns a publisher writing to cfg.Topic, keyed by run id.
func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &KafkaPublisher{w: w, topic: cfg.Topic}, nil
}

// PublishRunFinished writes one RunFinished message.
func (p *KafkaPublisher) PublishRunFinished(ctx context.Context, s *usecase.RunSummary) error {
	v, err := json.Marshal(toEvent(s))
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(s.RunID.String()),
		Value: v,
		Time:  s.FinishedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

func toEvent(s *usecase.RunSummary) RunFinished {
	var rows int64
	for _, it := range s.Items {
		rows += it.Rows
	}
	return RunFinished{
		Event:       eventRunFinish,
		RunID:       s.RunID.String(),
		JobName:     s.JobName,
		TriggerType: s.TriggerType,
		Target:      s.Target,
		Start:       s.Start,
		End:         s.End,
		Status:      string(s.Status),
		Total:       s.Total,
		Succeeded:   s.Succeeded,
		Failed:      s.Failed,
		Skipped:     s.Skipped,
		RowsWritten: rows,
		FinishedAt:  s.FinishedAt,
	}
}
