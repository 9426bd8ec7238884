package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/shared/retry"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultExchange は銘柄にもターゲットにも取引所がない場合に使います。
	DefaultExchange = "NASDAQ"

	maxChunkErrorLen    = 200
	maxItemErrors       = 10
	maxErrorSummaryHead = 3

	auditWriteAttempts = 3
	auditWriteBackoff  = 200 * time.Millisecond
)

// Target はインデックス単位の取り込み設定です。
type Target struct {
	Name             string
	Code             string
	Country          string
	IndexCode        string
	WindowDays       int
	DefaultExchange  string
	DefaultChunkDays int
}

func (t Target) validate() error {
	var missing []string
	if t.Code == "" {
		missing = append(missing, "code")
	}
	if t.Country == "" {
		missing = append(missing, "country")
	}
	if t.IndexCode == "" {
		missing = append(missing, "index_code")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: target missing required fields: [%s]", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

func (t Target) limit() int {
	if t.WindowDays > 0 {
		return t.WindowDays
	}
	return DefaultWindowDays
}

// Request は 1 回の取り込み実行の入力です。
type Request struct {
	Target Target
	Window entity.DateWindow
	// Ticker が指定された場合はその 1 銘柄だけを処理します。
	Ticker string
	// MaxTickers > 0 の場合は解決した銘柄の先頭 N 件だけを処理します。
	MaxTickers int
	// ChunkDays が nil の場合は Target.DefaultChunkDays を使います。
	ChunkDays    *int
	SkipExisting bool
	JobName      string
	TriggerType  string
}

// TickerResult is the outcome for one ticker in a run.
type TickerResult struct {
	Ticker          string            `json:"ticker"`
	Exchange        string            `json:"exchange"`
	Status          entity.ItemStatus `json:"status"`
	Skipped         bool              `json:"skipped"`
	Provider        string            `json:"provider,omitempty"`
	FallbackUsed    bool              `json:"fallback_used"`
	Rows            int64             `json:"rows"`
	MinDate         string            `json:"min_date,omitempty"`
	MaxDate         string            `json:"max_date,omitempty"`
	ChunksAttempted int               `json:"chunks_attempted"`
	ChunksSucceeded int               `json:"chunks_succeeded"`
	Error           string            `json:"error,omitempty"`
}

// RunSummary is the outcome of a whole run.
type RunSummary struct {
	RunID       uuid.UUID        `json:"run_id"`
	JobName     string           `json:"job_name"`
	TriggerType string           `json:"trigger_type"`
	Target      string           `json:"target"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
	ChunkDays   int              `json:"chunk_days"`
	Status      entity.RunStatus `json:"status"`
	Total       int              `json:"total"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Items       []TickerResult   `json:"items"`
}

// IngestConfig holds optional collaborators of IngestUsecase.
type IngestConfig struct {
	// Workers > 1 processes tickers concurrently.
	Workers   int
	Metrics   Metrics
	Publisher RunPublisher
	Now       func() time.Time
}

// IngestUsecase は銘柄ごとにチャンク取得・正規化・保存を行い、監査レコードを残すオーケストレーターです。
type IngestUsecase struct {
	instruments InstrumentRepository
	candles     CandleRepository
	audit       AuditRepository
	coverage    *CoverageChecker
	newFetcher  func() CandleFetcher
	workers     int
	metrics     Metrics
	publisher   RunPublisher
	now         func() time.Time
}

// NewIngestUsecase は新しい IngestUsecase を作成します。
// newFetcher は実行ごとに 1 回呼ばれ、返したフェッチャー (とそのレートリミッター) を全銘柄で共有します。
func NewIngestUsecase(
	instruments InstrumentRepository,
	candles CandleRepository,
	audit AuditRepository,
	newFetcher func() CandleFetcher,
	cfg IngestConfig,
) *IngestUsecase {
	u := &IngestUsecase{
		instruments: instruments,
		candles:     candles,
		audit:       audit,
		coverage:    NewCoverageChecker(candles),
		newFetcher:  newFetcher,
		workers:     cfg.Workers,
		metrics:     cfg.Metrics,
		publisher:   cfg.Publisher,
		now:         cfg.Now,
	}
	if u.workers < 1 {
		u.workers = 1
	}
	if u.metrics == nil {
		u.metrics = nopMetrics{}
	}
	if u.publisher == nil {
		u.publisher = nopPublisher{}
	}
	if u.now == nil {
		u.now = func() time.Time { return time.Now().UTC() }
	}
	return u
}

// Run は 1 回の取り込みを実行します。
// 区間が不正な場合は実行レコードを作らずにエラーを返します。
// 銘柄単位の失敗は実行を止めず、最終的に失敗が 1 件でもあれば実行は FAILED になります。
func (u *IngestUsecase) Run(ctx context.Context, req Request) (*RunSummary, error) {
	if err := req.Target.validate(); err != nil {
		return nil, err
	}
	chunkDays := req.Target.DefaultChunkDays
	if req.ChunkDays != nil {
		chunkDays = *req.ChunkDays
	}
	chunks, err := PlanChunks(req.Window, chunkDays)
	if err != nil {
		return nil, err
	}
	if req.JobName == "" {
		req.JobName = entity.JobOHLCV
	}
	if req.TriggerType == "" {
		req.TriggerType = entity.TriggerManualCLI
	}

	run := &entity.IngestionRun{
		ID:          uuid.New(),
		JobName:     req.JobName,
		TriggerType: req.TriggerType,
		Status:      entity.RunRunning,
		StartedAt:   u.now(),
	}
	if err := u.audit.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create ingestion run: %w", err)
	}
	slog.Info("ohlcv ingestion started",
		"run_id", run.ID, "target", req.Target.Name, "index", req.Target.IndexCode,
		"window", req.Window.String(), "ticker", req.Ticker, "chunk_days", chunkDays, "chunks", len(chunks))

	summary := &RunSummary{
		RunID:       run.ID,
		JobName:     run.JobName,
		TriggerType: run.TriggerType,
		Target:      req.Target.Name,
		Start:       entity.FormatDate(req.Window.Start),
		End:         entity.FormatDate(req.Window.End),
		ChunkDays:   chunkDays,
		StartedAt:   run.StartedAt,
	}

	instruments, err := u.resolveInstruments(ctx, req)
	if err != nil {
		if ferr := u.finalize(ctx, run, summary, err.Error()); ferr != nil {
			slog.Error("failed to finalize ingestion run", "run_id", run.ID, "error", ferr)
		}
		return summary, err
	}
	if req.MaxTickers > 0 && len(instruments) > req.MaxTickers {
		instruments = instruments[:req.MaxTickers]
	}

	fetcher := u.newFetcher()
	results := make([]TickerResult, len(instruments))
	if u.workers == 1 {
		for i, inst := range instruments {
			results[i] = u.ingestTicker(ctx, run.ID, fetcher, inst, req, chunks, chunkDays)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(u.workers)
		for i, inst := range instruments {
			g.Go(func() error {
				results[i] = u.ingestTicker(ctx, run.ID, fetcher, inst, req, chunks, chunkDays)
				return nil
			})
		}
		_ = g.Wait()
	}
	summary.Items = results

	if err := u.finalize(ctx, run, summary, ""); err != nil {
		return summary, err
	}
	if err := u.publisher.PublishRunFinished(context.WithoutCancel(ctx), summary); err != nil {
		slog.Warn("failed to publish run finished event", "run_id", run.ID, "error", err)
	}
	return summary, nil
}

func (u *IngestUsecase) resolveInstruments(ctx context.Context, req Request) ([]entity.Instrument, error) {
	if req.Ticker != "" {
		inst, err := u.instruments.FindByTicker(ctx, req.Ticker, req.Target.Country)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, fmt.Errorf("%w: ticker %q country=%s, run discovery first", domain.ErrInstrumentNotFound, req.Ticker, req.Target.Country)
		}
		return []entity.Instrument{*inst}, nil
	}
	list, err := u.instruments.ListForIndex(ctx, req.Target.IndexCode, req.Target.Country)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: index_code=%s country=%s, run discovery first", domain.ErrNoInstruments, req.Target.IndexCode, req.Target.Country)
	}
	return list, nil
}

// finalize は全銘柄の処理後に 1 回だけ呼ばれ、実行レコードを確定させます。
func (u *IngestUsecase) finalize(ctx context.Context, run *entity.IngestionRun, summary *RunSummary, errSummary string) error {
	for _, r := range summary.Items {
		switch r.Status {
		case entity.ItemSuccess:
			summary.Succeeded++
		case entity.ItemFailed:
			summary.Failed++
		}
		if r.Skipped {
			summary.Skipped++
		}
	}
	summary.Total = len(summary.Items)
	summary.Status = entity.RunSuccess
	if summary.Failed > 0 || errSummary != "" {
		summary.Status = entity.RunFailed
	}
	if errSummary == "" && summary.Failed > 0 {
		errSummary = fmt.Sprintf("%d of %d tickers failed", summary.Failed, summary.Total)
	}
	finished := u.now()
	summary.FinishedAt = finished

	run.Status = summary.Status
	run.FinishedAt = &finished
	run.ItemsTotal = summary.Total
	run.ItemsSucceeded = summary.Succeeded
	run.ItemsFailed = summary.Failed
	run.ErrorSummary = errSummary

	slog.Info("ohlcv ingestion finished",
		"run_id", run.ID, "status", run.Status, "total", run.ItemsTotal,
		"succeeded", run.ItemsSucceeded, "failed", run.ItemsFailed, "skipped", summary.Skipped)

	if err := u.audit.FinalizeRun(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("finalize ingestion run %s: %w", run.ID, err)
	}
	return nil
}

type chunkOutcome struct {
	rows         int64
	provider     string
	fallbackUsed bool
	minDate      time.Time
	maxDate      time.Time
}

func (u *IngestUsecase) ingestTicker(
	ctx context.Context,
	runID uuid.UUID,
	fetcher CandleFetcher,
	inst entity.Instrument,
	req Request,
	chunks []entity.DateWindow,
	chunkDays int,
) TickerResult {
	exchange := inst.Exchange
	if exchange == "" {
		exchange = req.Target.DefaultExchange
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	res := TickerResult{Ticker: inst.Ticker, Exchange: exchange}
	requestedStart := entity.FormatDate(req.Window.Start)
	requestedEnd := entity.FormatDate(req.Window.End)

	if req.SkipExisting {
		cov, err := u.coverage.IsFullyCovered(ctx, inst.ID, req.Window)
		switch {
		case err != nil:
			slog.Warn("coverage check failed, fetching anyway", "ticker", inst.Ticker, "error", err)
		case cov.Covered:
			detail := entity.ItemDetail{
				StatusReason:    entity.StatusReasonSkipCovered,
				ExistingMinDate: entity.FormatDate(*cov.ExistingMin),
				ExistingMaxDate: entity.FormatDate(*cov.ExistingMax),
				RequestedStart:  requestedStart,
				RequestedEnd:    requestedEnd,
			}
			u.recordItem(ctx, runID, inst.Ticker, entity.ItemSuccess, "", detail)
			slog.Info("skipping ticker, storage already covers window",
				"ticker", inst.Ticker, "existing_min", detail.ExistingMinDate, "existing_max", detail.ExistingMaxDate)
			u.metrics.TickerProcessed("skipped")
			res.Status = entity.ItemSuccess
			res.Skipped = true
			return res
		}
	}

	var (
		providers   []string
		chunkErrors []string
		minDate     time.Time
		maxDate     time.Time
	)
	for _, ch := range chunks {
		started := time.Now()
		out, err := u.ingestChunk(ctx, runID, fetcher, inst, exchange, ch, req.Target.limit())
		res.ChunksAttempted++
		if err != nil {
			chunkErrors = append(chunkErrors, fmt.Sprintf("%s..%s: %s",
				entity.FormatDate(ch.Start), entity.FormatDate(ch.End), truncateRunes(err.Error(), maxChunkErrorLen)))
			u.metrics.ChunkProcessed("failed", time.Since(started))
			slog.Warn("chunk failed", "ticker", inst.Ticker, "chunk", ch.String(), "error", err)
			continue
		}
		u.metrics.ChunkProcessed("success", time.Since(started))
		u.metrics.RowsWritten(out.provider, out.rows)

		res.ChunksSucceeded++
		res.Rows += out.rows
		res.FallbackUsed = res.FallbackUsed || out.fallbackUsed
		if !slices.Contains(providers, out.provider) {
			providers = append(providers, out.provider)
		}
		if minDate.IsZero() || out.minDate.Before(minDate) {
			minDate = out.minDate
		}
		if out.maxDate.After(maxDate) {
			maxDate = out.maxDate
		}
	}

	// 監査の detail は件数を抑え、サマリには先頭の数件だけを載せる
	itemErrors := chunkErrors
	if len(itemErrors) > maxItemErrors {
		itemErrors = itemErrors[:maxItemErrors]
	}
	head := chunkErrors
	if len(head) > maxErrorSummaryHead {
		head = head[:maxErrorSummaryHead]
	}
	res.Error = strings.Join(head, "; ")

	if res.ChunksSucceeded > 0 {
		res.Status = entity.ItemSuccess
		res.Provider = strings.Join(providers, ",")
		res.MinDate = entity.FormatDate(minDate)
		res.MaxDate = entity.FormatDate(maxDate)
		detail := entity.ItemDetail{
			Provider:        res.Provider,
			FallbackUsed:    res.FallbackUsed,
			Rows:            res.Rows,
			DateMin:         res.MinDate,
			DateMax:         res.MaxDate,
			ChunkDays:       chunkDays,
			ChunksAttempted: res.ChunksAttempted,
			ChunksSucceeded: res.ChunksSucceeded,
			FirstChunkStart: entity.FormatDate(chunks[0].Start),
			LastChunkEnd:    entity.FormatDate(chunks[len(chunks)-1].End),
			ChunkErrors:     itemErrors,
		}
		u.recordItem(ctx, runID, inst.Ticker, entity.ItemSuccess, res.Error, detail)
		u.metrics.TickerProcessed("success")
		slog.Info("ticker ingested", "ticker", inst.Ticker, "provider", res.Provider, "rows", res.Rows,
			"chunks", fmt.Sprintf("%d/%d", res.ChunksSucceeded, res.ChunksAttempted))
		return res
	}

	res.Status = entity.ItemFailed
	detail := entity.ItemDetail{
		ProviderAttempted: strings.Join(fetcher.Providers(), ","),
		Errors:            itemErrors,
		ErrorSummary:      "all chunks failed",
		ChunkDays:         chunkDays,
		ChunksAttempted:   res.ChunksAttempted,
		RequestedStart:    requestedStart,
		RequestedEnd:      requestedEnd,
	}
	u.recordItem(ctx, runID, inst.Ticker, entity.ItemFailed, res.Error, detail)
	u.metrics.TickerProcessed("failed")
	slog.Error("ticker failed", "ticker", inst.Ticker, "error", res.Error)
	return res
}

func (u *IngestUsecase) ingestChunk(
	ctx context.Context,
	runID uuid.UUID,
	fetcher CandleFetcher,
	inst entity.Instrument,
	exchange string,
	window entity.DateWindow,
	limit int,
) (chunkOutcome, error) {
	fetched, err := fetcher.Fetch(ctx, exchange, inst.Ticker, window, limit)
	if err != nil {
		return chunkOutcome{}, err
	}
	candles, err := Normalize(fetched.Frame)
	if err != nil {
		return chunkOutcome{}, err
	}
	rows, err := u.candles.UpsertBatch(ctx, inst.ID, runID, candles, fetched.Provider)
	if err != nil {
		return chunkOutcome{}, fmt.Errorf("upsert ohlcv: %w", err)
	}
	return chunkOutcome{
		rows:         rows,
		provider:     fetched.Provider,
		fallbackUsed: fetched.FallbackUsed,
		minDate:      candles[0].AsOfDate,
		maxDate:      candles[len(candles)-1].AsOfDate,
	}, nil
}

// recordItem は監査アイテムを書き込みます。(run_id, ticker) で冪等なので失敗時は再試行します。
// 書き込みに失敗しても実行は継続します。
func (u *IngestUsecase) recordItem(ctx context.Context, runID uuid.UUID, ticker string, status entity.ItemStatus, errSummary string, detail entity.ItemDetail) {
	item := &entity.IngestionItem{
		RunID:        runID,
		Ticker:       ticker,
		Status:       status,
		ErrorSummary: errSummary,
		Detail:       detail,
	}
	policy := retry.Policy{MaxAttempts: auditWriteAttempts, BaseDelay: auditWriteBackoff, Label: "audit item " + ticker}
	_, err := retry.Do(context.WithoutCancel(ctx), policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.audit.UpsertItem(ctx, item)
	})
	if err != nil {
		slog.Error("failed to record ingestion item", "run_id", runID, "ticker", ticker, "error", err)
	}
}

// truncateRunes は s を最大 n 文字 (rune) に切り詰めます。
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
