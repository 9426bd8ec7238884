package entity

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// ItemStatus is the outcome of one ticker inside a run.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "SUCCESS"
	ItemFailed  ItemStatus = "FAILED"
)

// Trigger types recorded on a run.
const (
	TriggerManualCLI = "MANUAL_CLI"
	TriggerHTTP      = "HTTP"
)

// Job names recorded on a run.
const (
	JobOHLCV         = "ohlcv"
	JobOHLCVBackfill = "ohlcv_backfill"
)

// StatusReasonSkipCovered marks an item skipped because storage already covers the window.
const StatusReasonSkipCovered = "skip_existing_fully_covered"

// IngestionRun is one orchestrator invocation.
// It is created RUNNING and finalized exactly once.
type IngestionRun struct {
	ID             uuid.UUID
	JobName        string
	TriggerType    string
	Status         RunStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
	ItemsTotal     int
	ItemsSucceeded int
	ItemsFailed    int
	ErrorSummary   string
}

// IngestionItem is the per-ticker audit record, unique on (RunID, Ticker).
type IngestionItem struct {
	RunID        uuid.UUID
	Ticker       string
	Status       ItemStatus
	ErrorSummary string
	Detail       ItemDetail
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ItemDetail is the structured detail stored with an audit item.
type ItemDetail struct {
	StatusReason      string   `json:"status_reason,omitempty"`
	ExistingMinDate   string   `json:"existing_min_date,omitempty"`
	ExistingMaxDate   string   `json:"existing_max_date,omitempty"`
	RequestedStart    string   `json:"requested_start,omitempty"`
	RequestedEnd      string   `json:"requested_end,omitempty"`
	Provider          string   `json:"provider,omitempty"`
	ProviderAttempted string   `json:"provider_attempted,omitempty"`
	FallbackUsed      bool     `json:"fallback_used,omitempty"`
	Rows              int64    `json:"rows"`
	DateMin           string   `json:"date_min,omitempty"`
	DateMax           string   `json:"date_max,omitempty"`
	ChunkDays         int      `json:"chunk_days,omitempty"`
	ChunksAttempted   int      `json:"chunks_attempted,omitempty"`
	ChunksSucceeded   int      `json:"chunks_succeeded,omitempty"`
	FirstChunkStart   string   `json:"first_chunk_start,omitempty"`
	LastChunkEnd      string   `json:"last_chunk_end,omitempty"`
	ChunkErrors       []string `json:"chunk_errors,omitempty"`
	Errors            []string `json:"errors,omitempty"`
	ErrorSummary      string   `json:"error_summary,omitempty"`
}
