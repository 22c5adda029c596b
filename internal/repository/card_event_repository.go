package repository

import (
	"context"
	"strings"

	"github.com/tapbio-next/internal/models"

	"gorm.io/gorm"
)

// CardEventRepository 卡片流水数据访问接口
type CardEventRepository interface {
	WithTx(tx *gorm.DB) CardEventRepository
	Create(ctx context.Context, event *models.CardEvent) error
	CreateBatch(ctx context.Context, events []models.CardEvent) error
	List(ctx context.Context, filter CardEventListFilter) ([]models.CardEvent, int64, error)
}

// GormCardEventRepository GORM 实现
type GormCardEventRepository struct {
	db *gorm.DB
}

// NewCardEventRepository 创建卡片流水仓库
func NewCardEventRepository(db *gorm.DB) *GormCardEventRepository {
	return &GormCardEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCardEventRepository) WithTx(tx *gorm.DB) CardEventRepository {
	if tx == nil {
		return r
	}
	return &GormCardEventRepository{db: tx}
}

// Create 写入单条流水
func (r *GormCardEventRepository) Create(ctx context.Context, event *models.CardEvent) error {
	if event == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch 批量写入流水
func (r *GormCardEventRepository) CreateBatch(ctx context.Context, events []models.CardEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&events, 100).Error
}

// List 流水列表，按时间倒序
func (r *GormCardEventRepository) List(ctx context.Context, filter CardEventListFilter) ([]models.CardEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CardEvent{})
	if cardID := strings.TrimSpace(filter.CardID); cardID != "" {
		query = query.Where("card_id = ?", cardID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.CardEvent
	if err := query.Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
