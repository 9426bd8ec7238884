package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
	"ohlcv_ingestor/internal/feature/ohlcv/domain/entity"
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// auditPostgres は ingestion_runs / ingestion_items を扱う AuditRepository 実装です。
type auditPostgres struct {
	db *gorm.DB
}

var _ usecase.AuditRepository = (*auditPostgres)(nil)

func NewAuditRepository(db *gorm.DB) *auditPostgres {
	return &auditPostgres{db: db}
}

func (r *auditPostgres) CreateRun(ctx context.Context, run *entity.IngestionRun) error {
	m := RunModel{
		ID:          run.ID,
		JobName:     run.JobName,
		TriggerType: run.TriggerType,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

// FinalizeRun は RUNNING の実行だけを確定させます。2 回目の呼び出しは ErrRunAlreadyFinalized を返します。
func (r *auditPostgres) FinalizeRun(ctx context.Context, run *entity.IngestionRun) error {
	res := r.db.WithContext(ctx).
		Model(&RunModel{}).
		Where("id = ? AND status = ?", run.ID, string(entity.RunRunning)).
		Updates(map[string]any{
			"status":          string(run.Status),
			"finished_at":     run.FinishedAt,
			"items_total":     run.ItemsTotal,
			"items_succeeded": run.ItemsSucceeded,
			"items_failed":    run.ItemsFailed,
			"error_summary":   null.NewString(run.ErrorSummary, run.ErrorSummary != ""),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunAlreadyFinalized, run.ID)
	}
	return nil
}

// UpsertItem は (run_id, ticker) 単位で冪等に書き込みます。
func (r *auditPostgres) UpsertItem(ctx context.Context, item *entity.IngestionItem) error {
	details, err := json.Marshal(item.Detail)
	if err != nil {
		return fmt.Errorf("marshal item details: %w", err)
	}
	now := time.Now().UTC()
	m := ItemModel{
		RunID:        item.RunID,
		Ticker:       item.Ticker,
		Status:       string(item.Status),
		ErrorSummary: null.NewString(item.ErrorSummary, item.ErrorSummary != ""),
		Details:      string(details),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error_summary", "details", "updated_at"}),
	}).Create(&m).Error
}

// FindRun は実行レコードと銘柄別アイテム (ticker 順) を返します。
func (r *auditPostgres) FindRun(ctx context.Context, id uuid.UUID) (*entity.IngestionRun, []entity.IngestionItem, error) {
	var rm RunModel
	if err := r.db.WithContext(ctx).First(&rm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
		}
		return nil, nil, err
	}

	var ims []ItemModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("ticker ASC").
		Find(&ims).Error; err != nil {
		return nil, nil, err
	}

	run := &entity.IngestionRun{
		ID:             rm.ID,
		JobName:        rm.JobName,
		TriggerType:    rm.TriggerType,
		Status:         entity.RunStatus(rm.Status),
		StartedAt:      rm.StartedAt,
		FinishedAt:     rm.FinishedAt,
		ItemsTotal:     rm.ItemsTotal,
		ItemsSucceeded: rm.ItemsSucceeded,
		ItemsFailed:    rm.ItemsFailed,
		ErrorSummary:   rm.ErrorSummary.ValueOrZero(),
	}
	items := make([]entity.IngestionItem, 0, len(ims))
	for _, m := range ims {
		var detail entity.ItemDetail
		if m.Details != "" {
			if err := json.Unmarshal([]byte(m.Details), &detail); err != nil {
				return nil, nil, fmt.Errorf("decode details for %s: %w", m.Ticker, err)
			}
		}
		items = append(items, entity.IngestionItem{
			RunID:        m.RunID,
			Ticker:       m.Ticker,
			Status:       entity.ItemStatus(m.Status),
			ErrorSummary: m.ErrorSummary.ValueOrZero(),
			Detail:       detail,
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.UpdatedAt,
		})
	}
	return run, items, nil
}
