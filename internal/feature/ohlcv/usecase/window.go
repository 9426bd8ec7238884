package usecase

import (
	"fmt"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
)

// DefaultWindowDays は window_days 未設定時の既定値で、取得件数上限にも使います。
const DefaultWindowDays = 400

// WindowRequest は呼び出し側が指定した期間です。
// Backfill が true の場合は DaysBack か From/To のどちらか一方が必須です。
type WindowRequest struct {
	DaysBack *int
	From     string
	To       string
	Backfill bool
}

// ResolveWindow は WindowRequest を DateWindow に解決します。
// 指定がない場合は today から windowDays 日さかのぼった区間を返します。
func ResolveWindow(req WindowRequest, windowDays int, today time.Time) (entity.DateWindow, error) {
	today = entity.TruncateDay(today)
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	hasRange := req.From != "" || req.To != ""

	if req.DaysBack != nil && hasRange {
		return entity.DateWindow{}, fmt.Errorf("%w: cannot mix days-back with from/to", domain.ErrInvalidRequest)
	}

	if req.DaysBack != nil {
		if *req.DaysBack <= 0 {
			return entity.DateWindow{}, fmt.Errorf("%w: days-back must be positive, got %d", domain.ErrInvalidRequest, *req.DaysBack)
		}
		return entity.DateWindow{Start: today.AddDate(0, 0, -*req.DaysBack), End: today}, nil
	}

	if req.Backfill {
		if !hasRange {
			return entity.DateWindow{}, fmt.Errorf("%w: use days-back N or from YYYY-MM-DD and to YYYY-MM-DD", domain.ErrInvalidRequest)
		}
		if req.From == "" || req.To == "" {
			return entity.DateWindow{}, fmt.Errorf("%w: from and to must both be provided for range mode", domain.ErrInvalidRequest)
		}
	}

	end := today
	if req.To != "" {
		t, err := parseStrictDate("to", req.To)
		if err != nil {
			return entity.DateWindow{}, err
		}
		end = t
	}
	start := end.AddDate(0, 0, -windowDays)
	if req.From != "" {
		t, err := parseStrictDate("from", req.From)
		if err != nil {
			return entity.DateWindow{}, err
		}
		start = t
	}
	w, err := entity.NewDateWindow(start, end)
	if err != nil {
		return entity.DateWindow{}, fmt.Errorf("%w: %v", domain.ErrInvalidRange, err)
	}
	return w, nil
}

func parseStrictDate(field, s string) (time.Time, error) {
	t, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s date %q, expected YYYY-MM-DD", domain.ErrInvalidRequest, field, s)
	}
	return t, nil
}
