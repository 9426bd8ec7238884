package adapters

import (
	"context"
	"errors"

	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"

	"gorm.io/gorm"
)

// instrumentPostgres は discovery が書き込んだ instruments / index_memberships を読み取ります。
type instrumentPostgres struct {
	db *gorm.DB
}

var _ usecase.InstrumentRepository = (*instrumentPostgres)(nil)

func NewInstrumentRepository(db *gorm.DB) *instrumentPostgres {
	return &instrumentPostgres{db: db}
}

// ListForIndex はインデックス構成銘柄を ticker 順に返します。
func (r *instrumentPostgres) ListForIndex(ctx context.Context, indexCode, country string) ([]entity.Instrument, error) {
	var rows []InstrumentModel
	if err := r.db.WithContext(ctx).
		Table("index_memberships AS m").
		Select("i.id, i.ticker, i.country, i.exchange").
		Joins("JOIN instruments AS i ON i.id = m.instrument_id").
		Where("m.index_code = ? AND i.country = ?", indexCode, country).
		Order("i.ticker ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, toInstrument(m))
	}
	return out, nil
}

// FindByTicker は該当がない場合 (nil, nil) を返します。
func (r *instrumentPostgres) FindByTicker(ctx context.Context, ticker, country string) (*entity.Instrument, error) {
	var m InstrumentModel
	err := r.db.WithContext(ctx).
		Where("ticker = ? AND country = ?", ticker, country).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inst := toInstrument(m)
	return &inst, nil
}

func toInstrument(m InstrumentModel) entity.Instrument {
	return entity.Instrument{
		ID:       m.ID,
		Ticker:   m.Ticker,
		Country:  m.Country,
		Exchange: m.Exchange.ValueOrZero(),
	}
}
