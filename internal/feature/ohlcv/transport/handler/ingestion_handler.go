// Package handler はohlcvフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/transport/http/dto"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	jwtmw "ohlcv_ingestor/internal/platform/jwt"
)

// IngestRunner は取り込み実行のユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type IngestRunner interface {
	Run(ctx context.Context, req usecase.Request) (*usecase.RunSummary, error)
}

// RunReader は監査レコードの参照を担います。
type RunReader interface {
	FindRun(ctx context.Context, id uuid.UUID) (*entity.IngestionRun, []entity.IngestionItem, error)
}

// TargetLookup は名前から取り込み対象を引きます。
type TargetLookup interface {
	LookupTarget(name string) (usecase.Target, bool)
}

// IngestionHandler は取り込みの起動と実行結果の参照を処理します。
type IngestionHandler struct {
	runner  IngestRunner
	runs    RunReader
	targets TargetLookup
	now     func() time.Time
}

// NewIngestionHandler はIngestionHandlerの新しいインスタンスを生成します。
func NewIngestionHandler(runner IngestRunner, runs RunReader, targets TargetLookup) *IngestionHandler {
	return &IngestionHandler{
		runner:  runner,
		runs:    runs,
		targets: targets,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create は取り込みを同期実行し、実行サマリを返します。
// 完了した実行は FAILED でも 200 を返し、status で結果を示します。
//
// エンドポイント例:
// POST /ingestions {"target":"nasdaq-100","days_back":30}
func (h *IngestionHandler) Create(c *gin.Context) {
	var req dto.IngestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("ingestion request validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	target, ok := h.targets.LookupTarget(req.Target)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown target " + req.Target})
		return
	}

	window, err := usecase.ResolveWindow(usecase.WindowRequest{
		DaysBack: req.DaysBack,
		From:     req.From,
		To:       req.To,
		Backfill: req.Backfill,
	}, target.WindowDays, h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	jobName := entity.JobOHLCV
	if req.Backfill {
		jobName = entity.JobOHLCVBackfill
	}
	summary, err := h.runner.Run(c.Request.Context(), usecase.Request{
		Target:       target,
		Window:       window,
		Ticker:       req.Ticker,
		MaxTickers:   req.Limit,
		ChunkDays:    req.ChunkDays,
		SkipExisting: req.SkipExisting,
		JobName:      jobName,
		TriggerType:  entity.TriggerHTTP,
	})
	if err != nil {
		status := statusFor(err)
		resp := dto.ErrorResponse{Error: err.Error()}
		if summary != nil {
			resp.RunID = summary.RunID.String()
		}
		if status == http.StatusInternalServerError {
			slog.Error("ingestion run failed", "error", err, "target", req.Target)
		}
		c.JSON(status, resp)
		return
	}

	slog.Info("ingestion run completed via http",
		"run_id", summary.RunID, "target", req.Target, "status", summary.Status, "subject", c.GetString(jwtmw.ContextSubject))
	c.JSON(http.StatusOK, summary)
}

// Get は監査レコードから実行と銘柄ごとの結果を返します。
//
// エンドポイント例:
// GET /ingestions/0b8e6a63-5a4f-4a7c-b1a4-3f5d7c9e2a10
func (h *IngestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid run id"})
		return
	}

	run, items, err := h.runs.FindRun(c.Request.Context(), id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("failed to load ingestion run", "run_id", id, "error", err)
		}
		c.JSON(status, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.NewRunResponse(run, items))
}

// statusFor はドメインエラーをHTTPステータスに対応付けます。
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInstrumentNotFound),
		errors.Is(err, domain.ErrNoInstruments),
		errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
