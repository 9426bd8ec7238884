package usecase

import (
	"fmt"
	"math"
	"log/slog"
	"sort"
	"strings"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

type datedRow struct {
	date time.Time
	raw  entity.RawCandle
}

type coercedRow struct {
	date                   time.Time
	open, high, low, close decimal.Decimal
	volume                 decimal.Decimal
}

// maxVolume は int64 に収まる出来高の上限です。
var maxVolume = decimal.NewFromInt(math.MaxInt64)

// Normalize はプロバイダ出力を検証済みの日足列に変換します。
// 戻り値は日付昇順・日付重複なしで、すべての価格が正です。
// 検証に失敗した場合は domain.ErrNormalization をラップしたエラーを返します。
func Normalize(frame entity.RawFrame) ([]entity.Candle, error) {
	// 1. 必須列
	var missing []string
	for _, c := range entity.RequiredColumns {
		if !frame.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns in provider output: [%s]", domain.ErrNormalization, strings.Join(missing, ", "))
	}

	// 2. 日付・終値が欠けている行を落とす
	rows := make([]datedRow, 0, len(frame.Rows))
	dropped := 0
	for _, r := range frame.Rows {
		if !r.Date.Valid || !present(r.Close) {
			dropped++
			continue
		}
		d, err := entity.ParseDate(r.Date.String)
		if err != nil {
			dropped++
			continue
		}
		if _, err := parseDecimal(r.Close); err != nil {
			dropped++
			continue
		}
		rows = append(rows, datedRow{date: d, raw: r})
	}
	if dropped > 0 {
		slog.Warn("dropped rows with missing date or close", "rows", dropped)
	}

	// 3. 同一日付は最後の行を採用
	byDate := make(map[time.Time]entity.RawCandle, len(rows))
	for _, r := range rows {
		byDate[r.date] = r.raw
	}

	// 4. 日付昇順
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// 5.
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: empty after cleaning", domain.ErrNormalization)
	}

	// 6-7. 数値変換。価格が読めない行は落とし、出来高の欠損は 0 とする
	coerced := make([]coercedRow, 0, len(dates))
	for _, d := range dates {
		r := byDate[d]
		row := coercedRow{date: d}
		var err error
		if row.open, err = parseDecimal(r.Open); err != nil {
			continue
		}
		if row.high, err = parseDecimal(r.High); err != nil {
			continue
		}
		if row.low, err = parseDecimal(r.Low); err != nil {
			continue
		}
		if row.close, err = parseDecimal(r.Close); err != nil {
			continue
		}
		if row.volume, err = parseDecimal(r.Volume); err != nil {
			row.volume = decimal.Zero
		}
		coerced = append(coerced, row)
	}
	if len(coerced) == 0 {
		return nil, fmt.Errorf("%w: empty after numeric coercion", domain.ErrNormalization)
	}

	// 8. 正でない価格を含む行を落とす
	positive := coerced[:0]
	nonPositive := 0
	for _, r := range coerced {
		if !r.open.IsPositive() || !r.high.IsPositive() || !r.low.IsPositive() || !r.close.IsPositive() {
			nonPositive++
			continue
		}
		positive = append(positive, r)
	}
	if nonPositive > 0 {
		slog.Warn("dropped rows with non-positive prices", "rows", nonPositive)
	}

	out := make([]entity.Candle, 0, len(positive))
	for _, r := range positive {
		// 9.
		if r.high.LessThan(r.low) {
			return nil, fmt.Errorf("%w: high < low on %s", domain.ErrNormalization, entity.FormatDate(r.date))
		}
		// 10.
		if r.volume.IsNegative() {
			return nil, fmt.Errorf("%w: negative volume on %s", domain.ErrNormalization, entity.FormatDate(r.date))
		}
		if r.volume.GreaterThan(maxVolume) {
			return nil, fmt.Errorf("%w: volume %s out of range on %s", domain.ErrNormalization, r.volume.String(), entity.FormatDate(r.date))
		}
		if !r.volume.Equal(r.volume.Truncate(0)) {
			slog.Warn("truncating fractional volume", "date", entity.FormatDate(r.date), "volume", r.volume.String())
		}
		out = append(out, entity.Candle{
			AsOfDate: r.date,
			Open:     r.open.InexactFloat64(),
			High:     r.high.InexactFloat64(),
			Low:      r.low.InexactFloat64(),
			Close:    r.close.InexactFloat64(),
			Volume:   r.volume.Truncate(0).IntPart(),
		})
	}

	// 11.
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty after validation", domain.ErrNormalization)
	}
	return out, nil
}

func present(s null.String) bool {
	return s.Valid && strings.TrimSpace(s.String) != ""
}

func parseDecimal(s null.String) (decimal.Decimal, error) {
	if !present(s) {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	return decimal.NewFromString(strings.TrimSpace(s.String))
}
