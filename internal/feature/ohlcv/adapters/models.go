// Package adapters はohlcvフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
)

// CandleModel is a row of ohlcv_daily.
type CandleModel struct {
	ID             uint64    `gorm:"primaryKey"`
	InstrumentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_ohlcv_daily_instrument_date,priority:1"`
	AsOfDate       time.Time `gorm:"type:date;not null;uniqueIndex:ux_ohlcv_daily_instrument_date,priority:2"`
	Open           float64   `gorm:"not null"`
	High           float64   `gorm:"not null"`
	Low            float64   `gorm:"not null"`
	Close          float64   `gorm:"not null"`
	Volume         int64     `gorm:"not null;default:0"`
	Source         string    `gorm:"size:32;not null"`
	CreatedByRunID uuid.UUID `gorm:"type:uuid;column:created_by_run_id"`
	UpdatedByRunID uuid.UUID `gorm:"type:uuid;column:updated_by_run_id"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (CandleModel) TableName() string {
	return "ohlcv_daily"
}

// RunModel is a row of ingestion_runs.
type RunModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobName        string    `gorm:"size:64;not null"`
	TriggerType    string    `gorm:"size:32;not null"`
	Status         string    `gorm:"size:16;not null;index"`
	StartedAt      time.Time `gorm:"not null"`
	FinishedAt     *time.Time
	ItemsTotal     int `gorm:"not null;default:0"`
	ItemsSucceeded int `gorm:"not null;default:0"`
	ItemsFailed    int `gorm:"not null;default:0"`
	ErrorSummary   null.String
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (RunModel) TableName() string {
	return "ingestion_runs"
}

// ItemModel is a row of ingestion_items, unique on (run_id, ticker).
type ItemModel struct {
	ID           uint64    `gorm:"primaryKey"`
	RunID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_ingestion_items_run_ticker,priority:1"`
	Ticker       string    `gorm:"size:32;not null;uniqueIndex:ux_ingestion_items_run_ticker,priority:2"`
	Status       string    `gorm:"size:16;not null"`
	ErrorSummary null.String
	Details      string `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ItemModel) TableName() string {
	return "ingestion_items"
}

// InstrumentModel is a row of instruments. The discovery job owns this table.
type InstrumentModel struct {
	ID       uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Ticker   string      `gorm:"size:32;not null;uniqueIndex:ux_instruments_ticker_country,priority:1"`
	Country  string      `gorm:"size:8;not null;uniqueIndex:ux_instruments_ticker_country,priority:2"`
	Exchange null.String `gorm:"size:32"`
}

func (InstrumentModel) TableName() string {
	return "instruments"
}

// IndexMembershipModel is a row of index_memberships.
type IndexMembershipModel struct {
	IndexCode    string    `gorm:"size:32;primaryKey"`
	InstrumentID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (IndexMembershipModel) TableName() string {
	return "index_memberships"
}

// Models lists every table this feature reads or writes.
func Models() []any {
	return []any{&InstrumentModel{}, &IndexMembershipModel{}, &CandleModel{}, &RunModel{}, &ItemModel{}}
}
