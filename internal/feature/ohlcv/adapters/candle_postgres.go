package adapters

import (
	"context"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

type candlePostgres struct {
	db *gorm.DB
}

var _ usecase.CandleRepository = (*candlePostgres)(nil)

func NewCandleRepository(db *gorm.DB) *candlePostgres {
	return &candlePostgres{db: db}
}

func toModel(instrumentID, runID uuid.UUID, source string, now time.Time, e entity.Candle) CandleModel {
	return CandleModel{
		InstrumentID:   instrumentID,
		AsOfDate:       entity.TruncateDay(e.AsOfDate),
		Open:           e.Open,
		High:           e.High,
		Low:            e.Low,
		Close:          e.Close,
		Volume:         e.Volume,
		Source:         source,
		CreatedByRunID: runID,
		UpdatedByRunID: runID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// UpsertBatch は (instrument_id, as_of_date) で衝突した行の価格・出来高・ソースと更新監査列を上書きします。
// created_at と created_by_run_id は最初の書き込みのまま残ります。
func (r *candlePostgres) UpsertBatch(ctx context.Context, instrumentID, runID uuid.UUID, candles []entity.Candle, source string) (int64, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	ms := make([]CandleModel, 0, len(candles))
	for _, e := range candles {
		ms = append(ms, toModel(instrumentID, runID, source, now, e))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "instrument_id"}, {Name: "as_of_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume", "source", "updated_at", "updated_by_run_id",
			}),
		}).CreateInBatches(&ms, upsertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ms)), nil
}

// GetDateBounds は保存済みの最小日と最大日を返します。行がない場合は (nil, nil, nil) です。
func (r *candlePostgres) GetDateBounds(ctx context.Context, instrumentID uuid.UUID) (*time.Time, *time.Time, error) {
	lo, err := r.boundary(ctx, instrumentID, "as_of_date ASC")
	if err != nil || lo == nil {
		return nil, nil, err
	}
	hi, err := r.boundary(ctx, instrumentID, "as_of_date DESC")
	if err != nil {
		return nil, nil, err
	}
	return lo, hi, nil
}

func (r *candlePostgres) boundary(ctx context.Context, instrumentID uuid.UUID, order string) (*time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).
		Model(&CandleModel{}).
		Where("instrument_id = ?", instrumentID).
		Order(order).
		Limit(1).
		Pluck("as_of_date", &dates).Error; err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}
	d := entity.TruncateDay(dates[0])
	return &d, nil
}
