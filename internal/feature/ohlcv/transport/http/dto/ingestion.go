// Package dto defines the JSON bodies of the ingestion HTTP API.
package dto

import (
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
)

// IngestionRequest is the body of POST /ingestions.
// days_back and from/to are mutually exclusive.
type IngestionRequest struct {
	Target       string `json:"target" binding:"required"`
	DaysBack     *int   `json:"days_back" binding:"omitempty,gte=1"`
	From         string `json:"from"`
	To           string `json:"to"`
	Backfill     bool   `json:"backfill"`
	Ticker       string `json:"ticker"`
	Limit        int    `json:"limit" binding:"gte=0"`
	ChunkDays    *int   `json:"chunk_days" binding:"omitempty,gte=0"`
	SkipExisting bool   `json:"skip_existing"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

// RunResponse is the body of GET /ingestions/:id.
type RunResponse struct {
	RunID          string         `json:"run_id"`
	JobName        string         `json:"job_name"`
	TriggerType    string         `json:"trigger_type"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	ItemsTotal     int            `json:"items_total"`
	ItemsSucceeded int            `json:"items_succeeded"`
	ItemsFailed    int            `json:"items_failed"`
	ErrorSummary   string         `json:"error_summary,omitempty"`
	Items          []ItemResponse `json:"items"`
}

type ItemResponse struct {
	Ticker       string            `json:"ticker"`
	Status       string            `json:"status"`
	ErrorSummary string            `json:"error_summary,omitempty"`
	Detail       entity.ItemDetail `json:"detail"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewRunResponse converts an audit run and its items.
func NewRunResponse(run *entity.IngestionRun, items []entity.IngestionItem) RunResponse {
	out := RunResponse{
		RunID:          run.ID.String(),
		JobName:        run.JobName,
		TriggerType:    run.TriggerType,
		Status:         string(run.Status),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		ItemsTotal:     run.ItemsTotal,
		ItemsSucceeded: run.ItemsSucceeded,
		ItemsFailed:    run.ItemsFailed,
		ErrorSummary:   run.ErrorSummary,
		Items:          make([]ItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, ItemResponse{
			Ticker:       it.Ticker,
			Status:       string(it.Status),
			ErrorSummary: it.ErrorSummary,
			Detail:       it.Detail,
			UpdatedAt:    it.UpdatedAt,
		})
	}
	return out
}
