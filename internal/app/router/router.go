package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ingesthandler "ohlcv_ingestor/internal/feature/ohlcv/transport/handler"
	"ohlcv_ingestor/internal/platform/http/handler"
	jwtmw "ohlcv_ingestor/internal/platform/jwt"
)

// Options はルータ生成に必要な依存です。
type Options struct {
	Ingestions *ingesthandler.IngestionHandler
	JWTSecret  string
	Gatherer   prometheus.Gatherer
	Checks     []handler.Check
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	// DB・Redis の疎通確認
	r.GET("/readyz", handler.Ready(opts.Checks...))
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// 認証必須のルート
	// ingest:write スコープを持つ JWT が必要
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(opts.JWTSecret, jwtmw.ScopeIngest))
	{
		auth.POST("/ingestions", opts.Ingestions.Create)
		auth.GET("/ingestions/:id", opts.Ingestions.Get)
	}

	return r
}
