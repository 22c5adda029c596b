package service

import (
	"context"
	"time"

	"github.com/tapbio-next/internal/cache"
	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"
)

// CardStatus 卡片公开状态，不包含 PIN 或账号信息
type CardStatus struct {
	Exists bool   `json:"exists"`
	State  string `json:"state"`
}

// CardProfileRef 已认领卡片对应的公开主页
type CardProfileRef struct {
	CardID      string `json:"card_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// CardStatusService 卡片状态查询
type CardStatusService struct {
	cfg      config.CardConfig
	cardRepo repository.CardRepository
	userRepo repository.UserRepository
}

// NewCardStatusService 创建卡片状态服务
func NewCardStatusService(cfg config.CardConfig, cardRepo repository.CardRepository, userRepo repository.UserRepository) *CardStatusService {
	return &CardStatusService{
		cfg:      cfg.Normalized(),
		cardRepo: cardRepo,
		userRepo: userRepo,
	}
}

// Status 公开状态查询
// public_inactive_state 关闭时停用卡按不存在返回
func (s *CardStatusService) Status(ctx context.Context, cardID string) (*CardStatus, error) {
	state, err := s.realState(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if state == constants.CardStateInactive && s.HidesInactive() {
		state = constants.CardStateNotFound
	}
	return newCardStatus(state), nil
}

// StatusForOperator 管理端状态查询，始终返回真实状态
func (s *CardStatusService) StatusForOperator(ctx context.Context, cardID string) (*CardStatus, error) {
	state, err := s.realState(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return newCardStatus(state), nil
}

// Profile 解析已认领卡片对应的用户主页
func (s *CardStatusService) Profile(ctx context.Context, cardID string) (*CardProfileRef, error) {
	cardID = NormalizeCardID(cardID)
	if cardID == "" {
		return nil, ErrCardNotFound
	}
	card, err := s.cardRepo.GetByCardID(ctx, cardID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	switch card.State() {
	case constants.CardStateNotFound:
		return nil, ErrCardNotFound
	case constants.CardStateInactive:
		if s.HidesInactive() {
			return nil, ErrCardNotFound
		}
		return nil, ErrCardInactive
	case constants.CardStateUnclaimed:
		return nil, ErrCardNotClaimed
	}

	user, err := s.userRepo.GetByID(*card.LinkedUserID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if user == nil || user.Status != constants.UserStatusActive {
		return nil, ErrAccountNotFound
	}
	return &CardProfileRef{
		CardID:      card.CardID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}, nil
}

// Invalidate 清除状态缓存
func (s *CardStatusService) Invalidate(ctx context.Context, cardIDs ...string) {
	if err := cache.DelCardStatus(ctx, cardIDs...); err != nil {
		logger.Warnw("card_status_cache_invalidate_failed", "card_ids", cardIDs, "error", err)
	}
}

// Remember 按 updated_at 版本写入缓存，读到的旧快照不会覆盖写操作刚写入的新状态
func (s *CardStatusService) Remember(ctx context.Context, card *models.Card) {
	if card == nil {
		return
	}
	written, err := cache.SetCardStatus(ctx, card.CardID, card.State(), card.UpdatedAt.UnixMicro(), s.cacheTTL())
	if err != nil {
		logger.Warnw("card_status_cache_set_failed", "card_id", card.CardID, "error", err)
		return
	}
	if !written && cache.Enabled() && s.cacheTTL() > 0 {
		logger.Debugw("card_status_cache_stale_skipped", "card_id", card.CardID)
	}
}

// Refresh 重新读取卡片并写入缓存，卡片不存在时清除缓存
func (s *CardStatusService) Refresh(ctx context.Context, cardID string) {
	cardID = NormalizeCardID(cardID)
	if cardID == "" {
		return
	}
	card, err := s.cardRepo.GetByCardID(ctx, cardID)
	if err != nil {
		logger.Warnw("card_status_cache_refresh_failed", "card_id", cardID, "error", err)
		return
	}
	if card == nil {
		s.Invalidate(ctx, cardID)
		return
	}
	s.Remember(ctx, card)
}

// HidesInactive 公开接口是否把停用卡当作不存在
func (s *CardStatusService) HidesInactive() bool {
	return !s.cfg.PublicInactiveState
}

func (s *CardStatusService) realState(ctx context.Context, cardID string) (string, error) {
	cardID = NormalizeCardID(cardID)
	if cardID == "" {
		return constants.CardStateNotFound, nil
	}

	if snapshot, hit, err := cache.GetCardStatus(ctx, cardID); err != nil {
		logger.Warnw("card_status_cache_get_failed", "card_id", cardID, "error", err)
	} else if hit {
		return snapshot.State, nil
	}

	card, err := s.cardRepo.GetByCardID(ctx, cardID)
	if err != nil {
		return "", storeUnavailable(err)
	}
	if card == nil {
		// 不存在的卡号不缓存，避免生成后仍命中旧结果
		return constants.CardStateNotFound, nil
	}
	s.Remember(ctx, card)
	return card.State(), nil
}

func (s *CardStatusService) cacheTTL() time.Duration {
	if s.cfg.StatusCacheSeconds <= 0 {
		return 0
	}
	return time.Duration(s.cfg.StatusCacheSeconds) * time.Second
}

func newCardStatus(state string) *CardStatus {
	return &CardStatus{
		Exists: state != constants.CardStateNotFound,
		State:  state,
	}
}
