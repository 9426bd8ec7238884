package usecase

import (
	"fmt"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
)

// PlanChunks は区間 w を最大 chunkDays 日の連続した部分区間に分割します。
// chunkDays <= 0 の場合は w をそのまま 1 つ返します。
// 部分区間は重ならず隙間もなく、和集合は w に一致します。
func PlanChunks(w entity.DateWindow, chunkDays int) ([]entity.DateWindow, error) {
	start := entity.TruncateDay(w.Start)
	end := entity.TruncateDay(w.End)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidRange, entity.FormatDate(start), entity.FormatDate(end))
	}
	if chunkDays <= 0 {
		return []entity.DateWindow{{Start: start, End: end}}, nil
	}

	var chunks []entity.DateWindow
	for cur := start; !cur.After(end); {
		chunkEnd := cur.AddDate(0, 0, chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, entity.DateWindow{Start: cur, End: chunkEnd})
		cur = chunkEnd.AddDate(0, 0, 1)
	}
	return chunks, nil
}
