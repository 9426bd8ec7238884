package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/externalapi"
	"ohlcv_ingestor/internal/platform/externalapi/yahoo/dto"
	"ohlcv_ingestor/internal/shared/ratelimiter"
)

const (
	// ProviderName は監査レコードやメトリクスに記録するプロバイダ名です。
	ProviderName  = "yahoo"
	dailyInterval = "1d"
)

// YahooChart は Yahoo の chart エンドポイントから日足を取得する Provider 実装です。
// 区間ベースで取得するため limit は使いません。
type YahooChart struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

var _ usecase.Provider = (*YahooChart)(nil)

// NewYahooChart は YahooChart を生成します。
func NewYahooChart(cfg Config, client *http.Client) *YahooChart {
	return &YahooChart{
		cfg:     cfg,
		client:  client,
		limiter: ratelimiter.NewMinDelay(ProviderName, cfg.MinDelay),
	}
}

func (y *YahooChart) Name() string { return ProviderName }

// FetchDaily は window の日足を取得します。exchange は Yahoo のシンボル体系では使いません。
func (y *YahooChart) FetchDaily(ctx context.Context, exchange, symbol string, window entity.DateWindow, _ int) (entity.RawFrame, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "rate limiter wait", err)
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(window.Start.Unix(), 10))
	// period2 は排他的
	q.Set("period2", strconv.FormatInt(window.End.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", dailyInterval)
	q.Set("events", "history")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.cfg.BaseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.RawFrame{}, domain.NewPermanent(ProviderName, "build request", err)
	}
	if y.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", y.cfg.UserAgent)
	}

	res, err := y.client.Do(req)
	if err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "request failed", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode == http.StatusNotFound {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("symbol %s not found", symbol))
	}
	if res.StatusCode >= 400 {
		return entity.RawFrame{}, externalapi.ClassifyStatus(ProviderName, res.StatusCode)
	}

	var body dto.ChartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "decode response", err)
	}
	if e := body.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return entity.RawFrame{}, domain.NewEmpty(ProviderName, e.Description)
		}
		return entity.RawFrame{}, domain.NewPermanent(ProviderName, fmt.Sprintf("chart error %s: %s", e.Code, e.Description), nil)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Timestamp) == 0 {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("no data for %s in %s", symbol, window))
	}

	frame := toFrame(body.Chart.Result[0]).FilterWindow(window)
	if frame.Len() == 0 {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("no rows for %s in %s", symbol, window))
	}
	return frame, nil
}

// toFrame は並列配列を行に組み替えます。タイムスタンプは取引所の現地日付に変換します。
func toFrame(r dto.Result) entity.RawFrame {
	loc := time.FixedZone("exchange", r.Meta.GMTOffset)
	var q dto.Quote
	if len(r.Indicators.Quote) > 0 {
		q = r.Indicators.Quote[0]
	}

	rows := make([]entity.RawCandle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		rows = append(rows, entity.RawCandle{
			Date:   null.StringFrom(entity.FormatDate(time.Unix(ts, 0).In(loc))),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		})
	}
	return entity.InferRawFrame(rows)
}

func at(vs []*float64, i int) null.String {
	if i >= len(vs) || vs[i] == nil {
		return null.String{}
	}
	return null.StringFrom(strconv.FormatFloat(*vs[i], 'f', -1, 64))
}
