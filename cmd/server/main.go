package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ohlcv_ingestor/internal/app/di"
	"ohlcv_ingestor/internal/app/router"
	"ohlcv_ingestor/internal/feature/ohlcv/adapters"
	ingesthandler "ohlcv_ingestor/internal/feature/ohlcv/transport/handler"
	"ohlcv_ingestor/internal/platform/config"
	infradb "ohlcv_ingestor/internal/platform/db"
	"ohlcv_ingestor/internal/platform/http/handler"
	jwtmw "ohlcv_ingestor/internal/platform/jwt"
	"ohlcv_ingestor/internal/platform/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/ingestor.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	di.SetupLogger(os.Stdout, cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Redis は任意。使えなければキャッシュなしで動く
	rdb := di.OpenRedis(ctx)
	checks := []handler.Check{{Name: "db", Ping: sqlDB.PingContext}}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	publisher, closePublisher := di.NewRunPublisher()
	defer closePublisher()

	uc, err := di.NewIngestUsecase(cfg, di.Deps{
		DB:        db,
		Redis:     rdb,
		Metrics:   metrics.New(prometheus.DefaultRegisterer),
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	// JWT_SECRETチェック（開発中の注意喚起）
	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" {
		slog.Warn("JWT_SECRET is not set. Ingestion endpoints will reject every request.")
	}

	engine := router.NewRouter(router.Options{
		Ingestions: ingesthandler.NewIngestionHandler(uc, adapters.NewAuditRepository(db), di.NewTargets(cfg)),
		JWTSecret:  secret,
		Gatherer:   prometheus.DefaultGatherer,
		Checks:     checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "targets", cfg.TargetNames())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
