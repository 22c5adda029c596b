package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"
)

// CardClaimInput 认领请求
type CardClaimInput struct {
	CardID string
	Pin    string
	UserID uint
}

// CardClaimResult 认领结果
// Claimed 为 false 表示该账号此前已持有这张卡
type CardClaimResult struct {
	Card    *models.Card
	Claimed bool
}

// CardClaimService 卡片认领
type CardClaimService struct {
	cardRepo repository.CardRepository
	userRepo repository.UserRepository
	verifier *CardPinVerifier
	status   *CardStatusService
	events   *CardEventRecorder
}

// NewCardClaimService 创建认领服务
func NewCardClaimService(
	cardRepo repository.CardRepository,
	userRepo repository.UserRepository,
	verifier *CardPinVerifier,
	status *CardStatusService,
	events *CardEventRecorder,
) *CardClaimService {
	return &CardClaimService{
		cardRepo: cardRepo,
		userRepo: userRepo,
		verifier: verifier,
		status:   status,
		events:   events,
	}
}

// Claim 校验 PIN 并把卡片绑定到账号
// 绑定由存储层条件更新完成，并发认领同一张卡只有一个成功
func (s *CardClaimService) Claim(ctx context.Context, input CardClaimInput) (*CardClaimResult, error) {
	cardID := NormalizeCardID(input.CardID)
	pin := strings.TrimSpace(input.Pin)

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if user == nil || user.Status != constants.UserStatusActive {
		return nil, ErrAccountNotFound
	}

	card, err := s.cardRepo.GetByCardID(ctx, cardID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if card == nil {
		// 与 PIN 错误保持相近耗时
		s.verifier.Burn(pin)
		return nil, ErrCardNotFound
	}
	if !card.IsActive {
		return nil, s.inactiveError(pin)
	}
	if card.LinkedUserID != nil {
		if *card.LinkedUserID != user.ID {
			// 已被他人认领时不校验 PIN
			return nil, ErrCardAlreadyClaimed
		}
		if !s.verifier.Verify(card, pin) {
			return nil, ErrCardInvalidPin
		}
		return &CardClaimResult{Card: card, Claimed: false}, nil
	}

	if !s.verifier.Verify(card, pin) {
		logger.Infow("card_claim_invalid_pin", "card_id", card.CardID, "user_id", user.ID)
		return nil, ErrCardInvalidPin
	}

	held, err := s.cardRepo.FindByAccount(ctx, user.ID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if held != nil && held.CardID != card.CardID {
		return nil, &AccountCardConflictError{ExistingCardID: held.CardID}
	}

	// 进入绑定后不再响应取消，提交即生效
	bindCtx := context.WithoutCancel(ctx)
	bound, err := s.cardRepo.BindAtomic(bindCtx, card.CardID, user.ID, time.Now())
	if err != nil {
		return s.resolveBindFailure(bindCtx, card.CardID, user.ID, err)
	}
	if bound == nil {
		return nil, ErrCardNotFound
	}

	s.status.Remember(bindCtx, bound)
	s.events.Record(bindCtx, bound.CardID, constants.CardEventClaimed, uintPtr(user.ID), nil)
	logger.Infow("card_claim_succeeded", "card_id", bound.CardID, "user_id", user.ID)
	return &CardClaimResult{Card: bound, Claimed: true}, nil
}

// resolveBindFailure 条件更新未命中时重新读取，判断真实原因
func (s *CardClaimService) resolveBindFailure(ctx context.Context, cardID string, userID uint, bindErr error) (*CardClaimResult, error) {
	switch {
	case errors.Is(bindErr, repository.ErrCardAccountConflict):
		held, err := s.cardRepo.FindByAccount(ctx, userID)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		if held == nil {
			return nil, ErrAccountAlreadyHasCard
		}
		return nil, &AccountCardConflictError{ExistingCardID: held.CardID}
	case errors.Is(bindErr, repository.ErrCardBindConflict):
		current, err := s.cardRepo.GetByCardID(ctx, cardID)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		switch {
		case current == nil:
			return nil, ErrCardNotFound
		case !current.IsActive:
			if s.status.HidesInactive() {
				return nil, ErrCardNotFound
			}
			return nil, ErrCardInactive
		case current.LinkedUserID != nil && *current.LinkedUserID == userID:
			return &CardClaimResult{Card: current, Claimed: false}, nil
		default:
			logger.Infow("card_claim_lost_race", "card_id", cardID, "user_id", userID)
			return nil, ErrCardAlreadyClaimed
		}
	default:
		logger.Errorw("card_claim_bind_failed", "card_id", cardID, "user_id", userID, "error", bindErr)
		return nil, storeUnavailable(bindErr)
	}
}

// inactiveError 停用卡对外隐藏时按不存在处理，耗时与不存在的卡一致
func (s *CardClaimService) inactiveError(pin string) error {
	if s.status.HidesInactive() {
		s.verifier.Burn(pin)
		return ErrCardNotFound
	}
	return ErrCardInactive
}
