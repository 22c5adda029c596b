package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"

	"gorm.io/gorm"
)

// CardRepository 实体卡数据访问接口
type CardRepository interface {
	WithTx(tx *gorm.DB) CardRepository
	Create(ctx context.Context, card *models.Card) error
	CreateBatch(ctx context.Context, cards []models.Card) error
	GetByCardID(ctx context.Context, cardID string) (*models.Card, error)
	FindByAccount(ctx context.Context, userID uint) (*models.Card, error)
	BindAtomic(ctx context.Context, cardID string, userID uint, now time.Time) (*models.Card, error)
	Unbind(ctx context.Context, cardID string, now time.Time) (*models.Card, error)
	SetActive(ctx context.Context, cardID string, active bool, now time.Time) (*models.Card, error)
	List(ctx context.Context, filter CardListFilter) ([]models.Card, int64, error)
	Stats(ctx context.Context) (*CardStats, error)
	ExistingCardIDs(ctx context.Context, cardIDs []string) ([]string, error)
}

// GormCardRepository GORM 实现
type GormCardRepository struct {
	db *gorm.DB
}

// NewCardRepository 创建卡片仓库
func NewCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCardRepository) WithTx(tx *gorm.DB) CardRepository {
	if tx == nil {
		return r
	}
	return &GormCardRepository{db: tx}
}

// Create 创建单张卡片
func (r *GormCardRepository) Create(ctx context.Context, card *models.Card) error {
	if card == nil {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCardIDConflict
		}
		return err
	}
	return nil
}

// CreateBatch 批量创建卡片，任一卡号冲突则整体失败
func (r *GormCardRepository) CreateBatch(ctx context.Context, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&cards, 100).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCardIDConflict
		}
		return err
	}
	return nil
}

// GetByCardID 根据卡号获取卡片，不存在时返回 nil
func (r *GormCardRepository) GetByCardID(ctx context.Context, cardID string) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).Where("card_id = ?", cardID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// FindByAccount 获取账号绑定的卡片
func (r *GormCardRepository) FindByAccount(ctx context.Context, userID uint) (*models.Card, error) {
	if userID == 0 {
		return nil, nil
	}
	var card models.Card
	if err := r.db.WithContext(ctx).Where("linked_user_id = ?", userID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// BindAtomic 以单条条件更新完成绑定
// 仅当卡片启用且未绑定时生效，未命中返回 ErrCardBindConflict
func (r *GormCardRepository) BindAtomic(ctx context.Context, cardID string, userID uint, now time.Time) (*models.Card, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("card_id = ? AND linked_user_id IS NULL AND is_active = ?", cardID, true).
		Updates(map[string]interface{}{
			"linked_user_id": userID,
			"claimed_at":     now,
			"updated_at":     now,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, ErrCardAccountConflict
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCardBindConflict
	}
	return r.GetByCardID(ctx, cardID)
}

// Unbind 清除绑定关系，重复调用结果一致
func (r *GormCardRepository) Unbind(ctx context.Context, cardID string, now time.Time) (*models.Card, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("card_id = ?", cardID).
		Updates(map[string]interface{}{
			"linked_user_id": nil,
			"claimed_at":     nil,
			"updated_at":     now,
		}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByCardID(ctx, cardID)
}

// SetActive 启用或停用卡片，不影响绑定关系
func (r *GormCardRepository) SetActive(ctx context.Context, cardID string, active bool, now time.Time) (*models.Card, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("card_id = ?", cardID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByCardID(ctx, cardID)
}

// List 卡片列表
func (r *GormCardRepository) List(ctx context.Context, filter CardListFilter) ([]models.Card, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Card{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, args := buildLikeCondition(r.db, strings.ToLower(keyword), "card_id")
		query = query.Where(condition, args...)
	}
	switch strings.ToLower(strings.TrimSpace(filter.State)) {
	case constants.CardStateUnclaimed:
		query = query.Where("is_active = ? AND linked_user_id IS NULL", true)
	case constants.CardStateClaimed:
		query = query.Where("is_active = ? AND linked_user_id IS NOT NULL", true)
	case constants.CardStateInactive:
		query = query.Where("is_active = ?", false)
	}
	if filter.LinkedUserID > 0 {
		query = query.Where("linked_user_id = ?", filter.LinkedUserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var cards []models.Card
	if err := query.Order("id DESC").Find(&cards).Error; err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// Stats 卡片统计
func (r *GormCardRepository) Stats(ctx context.Context) (*CardStats, error) {
	var stats CardStats
	err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN is_active = ? AND linked_user_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS claimed, "+
				"COALESCE(SUM(CASE WHEN is_active = ? AND linked_user_id IS NULL THEN 1 ELSE 0 END), 0) AS unclaimed, "+
				"COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END), 0) AS inactive",
			true, true, false,
		).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ExistingCardIDs 返回给定卡号中已存在的部分
func (r *GormCardRepository) ExistingCardIDs(ctx context.Context, cardIDs []string) ([]string, error) {
	if len(cardIDs) == 0 {
		return []string{}, nil
	}
	var existing []string
	if err := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("card_id IN ?", cardIDs).
		Pluck("card_id", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}
