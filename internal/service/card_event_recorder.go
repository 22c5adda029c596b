package service

import (
	"context"
	"time"

	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/queue"
	"github.com/tapbio-next/internal/repository"
)

// CardEventRecorder 卡片流水记录
// 队列可用时异步落库，否则同步写入；记录失败只记日志，不影响主流程
type CardEventRecorder struct {
	queueClient *queue.Client
	eventRepo   repository.CardEventRepository
}

// NewCardEventRecorder 创建流水记录器
func NewCardEventRecorder(queueClient *queue.Client, eventRepo repository.CardEventRepository) *CardEventRecorder {
	return &CardEventRecorder{
		queueClient: queueClient,
		eventRepo:   eventRepo,
	}
}

// Record 记录一条卡片流水
func (r *CardEventRecorder) Record(ctx context.Context, cardID, action string, userID, adminID *uint) {
	if r == nil {
		return
	}
	payload := queue.CardEventPayload{
		CardID:     cardID,
		Action:     action,
		UserID:     userID,
		AdminID:    adminID,
		OccurredAt: time.Now().UnixMilli(),
	}
	if r.queueClient.Enabled() {
		err := r.queueClient.EnqueueCardEvent(payload)
		if err == nil {
			return
		}
		logger.Warnw("card_event_enqueue_failed",
			"card_id", cardID,
			"action", action,
			"error", err,
		)
	}
	if err := r.Persist(ctx, payload); err != nil {
		logger.Errorw("card_event_persist_failed",
			"card_id", cardID,
			"action", action,
			"error", err,
		)
	}
}

// Persist 将流水载荷写入数据库，供同步路径与 worker 共用
func (r *CardEventRecorder) Persist(ctx context.Context, payload queue.CardEventPayload) error {
	if r == nil || r.eventRepo == nil || payload.CardID == "" || payload.Action == "" {
		return nil
	}
	return r.eventRepo.Create(ctx, &models.CardEvent{
		CardID:    payload.CardID,
		Action:    payload.Action,
		UserID:    payload.UserID,
		AdminID:   payload.AdminID,
		CreatedAt: payload.OccurredTime(),
	})
}

func uintPtr(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
