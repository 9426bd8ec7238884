package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/externalapi"
	"ohlcv_ingestor/internal/shared/ratelimiter"
)

// ProviderName は監査レコードやメトリクスに記録するプロバイダ名です。
const ProviderName = "polygon"

// maxAggsLimit is the largest page the aggregates endpoint accepts.
const maxAggsLimit = 50000

// PolygonAggs は Polygon の aggregates API から日足を取得する Provider 実装です。
type PolygonAggs struct {
	client  *polygon.Client
	limiter ratelimiter.Limiter
}

var _ usecase.Provider = (*PolygonAggs)(nil)

// NewPolygonAggs は hc をトランスポートに使う PolygonAggs を生成します。
func NewPolygonAggs(cfg Config, hc *http.Client) *PolygonAggs {
	return &PolygonAggs{
		client:  polygon.NewWithClient(cfg.APIKey, hc),
		limiter: ratelimiter.NewMinDelay(ProviderName, cfg.MinDelay),
	}
}

func (p *PolygonAggs) Name() string { return ProviderName }

// FetchDaily は window の調整済み日足を昇順で取得します。exchange は使いません。
func (p *PolygonAggs) FetchDaily(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "rate limiter wait", err)
	}
	if limit <= 0 || limit > maxAggsLimit {
		limit = maxAggsLimit
	}

	base := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(window.Start),
		To:         models.Millis(window.End),
	}
	params := base.WithAdjusted(true).WithOrder(models.Asc).WithLimit(limit)

	var rows []entity.RawCandle
	iter := p.client.ListAggs(ctx, params)
	for iter.Next() {
		agg := iter.Item()
		rows = append(rows, entity.RawCandle{
			Date:   null.StringFrom(entity.FormatDate(time.Time(agg.Timestamp).UTC())),
			Open:   formatFloat(agg.Open),
			High:   formatFloat(agg.High),
			Low:    formatFloat(agg.Low),
			Close:  formatFloat(agg.Close),
			Volume: formatFloat(agg.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return entity.RawFrame{}, classify(err)
	}

	frame := entity.NewRawFrame(rows).FilterWindow(window)
	if frame.Len() == 0 {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("no aggregates for %s in %s", symbol, window))
	}
	return frame, nil
}

func classify(err error) *domain.ProviderError {
	var er *models.ErrorResponse
	if errors.As(err, &er) && er.StatusCode != 0 {
		pe := externalapi.ClassifyStatus(ProviderName, er.StatusCode)
		pe.Err = err
		return pe
	}
	return externalapi.ClassifyError(ProviderName, "list aggregates", err)
}

func formatFloat(v float64) null.String {
	return null.StringFrom(strconv.FormatFloat(v, 'f', -1, 64))
}
