package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/externalapi"
	"ohlcv_ingestor/internal/platform/externalapi/twelvedata/dto"
	"ohlcv_ingestor/internal/shared/ratelimiter"
)

const (
	// ProviderName は監査レコードやメトリクスに記録するプロバイダ名です。
	ProviderName = "twelvedata"
	// dailyInterval は日足を表すTwelve Dataのinterval値です。
	dailyInterval = "1day"
	// maxOutputSize はTwelve Dataが1リクエストで返す最大件数です。
	maxOutputSize = 5000
)

// TwelveDataMarket はTwelve Data外部APIから日足を取得するProvider実装です。
// 件数ベースで取得し、要求区間外の行は取得後に落とします。
type TwelveDataMarket struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

// TwelveDataMarketがProviderを実装していることをコンパイル時に検証します。
var _ usecase.Provider = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
// レートリミッターはインスタンスごとに1つ作られます。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{
		cfg:     cfg,
		client:  client,
		limiter: ratelimiter.NewMinDelay(ProviderName, cfg.MinDelay),
	}
}

func (t *TwelveDataMarket) Name() string { return ProviderName }

// FetchDaily はsymbolの日足をwindow.Endから遡ってlimit件取得し、windowに含まれる行だけを返します。
func (t *TwelveDataMarket) FetchDaily(ctx context.Context, exchange, symbol string, window entity.DateWindow, limit int) (entity.RawFrame, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "rate limiter wait", err)
	}

	if limit <= 0 || limit > maxOutputSize {
		limit = maxOutputSize
	}
	q := url.Values{}
	// クエリパラメータを追加
	q.Set("symbol", symbol)
	if exchange != "" {
		q.Set("exchange", exchange)
	}
	q.Set("interval", dailyInterval)
	q.Set("outputsize", strconv.Itoa(limit))
	// end_date は排他的なので翌日を指定する
	q.Set("end_date", entity.FormatDate(window.End.AddDate(0, 0, 1)))
	q.Set("apikey", t.cfg.TwelveDataAPIKey)

	// URLを生成
	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, q.Encode())

	// リクエストオブジェクトを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.RawFrame{}, domain.NewPermanent(ProviderName, "build request", err)
	}

	// リクエストを実行
	res, err := t.client.Do(req)
	if err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "request failed", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return entity.RawFrame{}, externalapi.ClassifyStatus(ProviderName, res.StatusCode)
	}

	// JSONレスポンスをDTOにデコード
	var body dto.TimeSeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return entity.RawFrame{}, externalapi.ClassifyError(ProviderName, "decode response", err)
	}
	if body.Status == "error" {
		return entity.RawFrame{}, classifyAPIError(body.Code, body.Message)
	}
	if len(body.Values) == 0 {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("no values for %s:%s", exchange, symbol))
	}

	rows := make([]entity.RawCandle, 0, len(body.Values))
	for _, v := range body.Values {
		rows = append(rows, entity.RawCandle{
			Date:   v.Datetime,
			Open:   v.Open,
			High:   v.High,
			Low:    v.Low,
			Close:  v.Close,
			Volume: v.Volume,
		})
	}
	frame := entity.InferRawFrame(rows).FilterWindow(window)
	if frame.Len() == 0 {
		return entity.RawFrame{}, domain.NewEmpty(ProviderName, fmt.Sprintf("no rows for %s:%s in %s", exchange, symbol, window))
	}
	return frame, nil
}

// classifyAPIError はstatus=errorのレスポンスを分類します。
func classifyAPIError(code int, message string) *domain.ProviderError {
	msg := fmt.Sprintf("api error %d: %s", code, message)
	switch {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return domain.NewTransient(ProviderName, msg, nil)
	case strings.Contains(strings.ToLower(message), "no data"):
		return domain.NewEmpty(ProviderName, msg)
	case externalapi.IsTransientError(fmt.Errorf("%s", message)):
		return domain.NewTransient(ProviderName, msg, nil)
	default:
		return domain.NewPermanent(ProviderName, msg, nil)
	}
}
