package usecase

import (
	"context"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"

	"github.com/google/uuid"
)

// BoundsReader returns the stored date bounds for an instrument.
type BoundsReader interface {
	GetDateBounds(ctx context.Context, instrumentID uuid.UUID) (min, max *time.Time, err error)
}

// Coverage is the result of a coverage check.
type Coverage struct {
	Covered     bool
	ExistingMin *time.Time
	ExistingMax *time.Time
}

// CoverageChecker は保存済みデータが区間を覆っているかを判定します。
// 判定は最小日と最大日だけで行い、内部の欠損日は検出しません。
type CoverageChecker struct {
	bounds BoundsReader
}

// NewCoverageChecker は新しい CoverageChecker を作成します。
func NewCoverageChecker(bounds BoundsReader) *CoverageChecker {
	return &CoverageChecker{bounds: bounds}
}

// IsFullyCovered は existing_min <= window.Start かつ existing_max >= window.End のとき true を返します。
// データがない場合は false です。
func (c *CoverageChecker) IsFullyCovered(ctx context.Context, instrumentID uuid.UUID, window entity.DateWindow) (Coverage, error) {
	minDate, maxDate, err := c.bounds.GetDateBounds(ctx, instrumentID)
	if err != nil {
		return Coverage{}, err
	}
	cov := Coverage{ExistingMin: minDate, ExistingMax: maxDate}
	if minDate == nil || maxDate == nil {
		return cov, nil
	}
	lo := entity.TruncateDay(*minDate)
	hi := entity.TruncateDay(*maxDate)
	cov.Covered = !lo.After(window.Start) && !hi.Before(window.End)
	return cov, nil
}
