package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ohlcv_ingestor/internal/app/di"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/transport/cli"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/config"
	infradb "ohlcv_ingestor/internal/platform/db"
	"ohlcv_ingestor/internal/platform/metrics"
)

const (
	exitOK        = 0
	exitError     = 1
	exitRunFailed = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	di.SetupLogger(os.Stderr, cfg.Logging)

	if opts.listTargets {
		for _, name := range cfg.TargetNames() {
			fmt.Println(name)
		}
		return exitOK
	}

	ct, err := cfg.LookupTarget(opts.target)
	if err != nil {
		slog.Error("unknown target", "target", opts.target, "available", cfg.TargetNames())
		return exitError
	}
	target := di.ToTarget(ct)

	window, err := usecase.ResolveWindow(usecase.WindowRequest{
		DaysBack: opts.daysBack,
		From:     opts.from,
		To:       opts.to,
		Backfill: opts.backfill,
	}, target.WindowDays, time.Now().UTC())
	if err != nil {
		slog.Error("invalid window", "error", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		slog.Error("failed to open db", "error", err)
		return exitError
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rdb := di.OpenRedis(ctx)
	if rdb != nil {
		defer rdb.Close()
	}
	publisher, closePublisher := di.NewRunPublisher()
	defer closePublisher()

	reg := prometheus.NewRegistry()
	uc, err := di.NewIngestUsecase(cfg, di.Deps{
		DB:        db,
		Redis:     rdb,
		Metrics:   metrics.New(reg),
		Publisher: publisher,
	})
	if err != nil {
		slog.Error("failed to build ingest usecase", "error", err)
		return exitError
	}

	job := entity.JobOHLCV
	if opts.backfill {
		job = entity.JobOHLCVBackfill
	}
	summary, err := uc.Run(ctx, usecase.Request{
		Target:       target,
		Window:       window,
		Ticker:       opts.ticker,
		MaxTickers:   opts.limit,
		ChunkDays:    opts.chunkDays,
		SkipExisting: opts.skipExisting,
		JobName:      job,
		TriggerType:  entity.TriggerManualCLI,
	})
	if err != nil {
		attrs := []any{"error", err}
		if summary != nil {
			attrs = append(attrs, "run_id", summary.RunID)
		}
		slog.Error("ingestion failed", attrs...)
		return exitError
	}

	logRunMetrics(reg)
	if err := cli.PrintSummary(os.Stdout, summary); err != nil {
		slog.Warn("failed to print summary", "error", err)
	}

	report := cli.NewReport(summary, cli.RequestMeta{
		Start:        summary.Start,
		End:          summary.End,
		DaysBack:     opts.daysBack,
		ChunkDays:    summary.ChunkDays,
		SkipExisting: opts.skipExisting,
		Ticker:       opts.ticker,
		Limit:        opts.limit,
	})
	path, err := cli.WriteReport(cfg.Ingest.ReportDir, report, time.Now().UTC())
	if err != nil {
		slog.Error("failed to write report", "error", err)
		return exitError
	}
	slog.Info("report written", "path", path)

	if summary.Status == entity.RunFailed {
		return exitRunFailed
	}
	return exitOK
}

// logRunMetrics は実行中に記録したカウンタの合計をログに残します。
func logRunMetrics(g prometheus.Gatherer) {
	totals, err := metrics.CounterTotals(g)
	if err != nil {
		slog.Warn("failed to gather run metrics", "error", err)
		return
	}
	attrs := make([]any, 0, 2*len(totals))
	for _, name := range slices.Sorted(maps.Keys(totals)) {
		attrs = append(attrs, name, totals[name])
	}
	slog.Info("run metrics", attrs...)
}
