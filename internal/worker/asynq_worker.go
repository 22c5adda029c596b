package worker

import (
	"context"
	"errors"

	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/provider"
	"github.com/tapbio-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册任务处理器
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCardEvent, c.handleCardEvent)
}

// handleCardEvent 落库卡片流水并刷新状态缓存
// 载荷无法解析时跳过重试
func (c *Consumer) handleCardEvent(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_card_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCardEventPayload(task)
	if err != nil {
		logger.Warnw("worker_card_event_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.CardID == "" || payload.Action == "" {
		logger.Debugw("worker_card_event_skip_invalid_payload", "card_id", payload.CardID, "action", payload.Action)
		return nil
	}
	if err := c.CardEventRecorder.Persist(ctx, payload); err != nil {
		logger.Warnw("worker_card_event_persist_failed",
			"card_id", payload.CardID,
			"action", payload.Action,
			"error", err,
		)
		return err
	}
	c.CardStatusService.Refresh(ctx, payload.CardID)
	logger.Debugw("worker_card_event_persisted", "card_id", payload.CardID, "action", payload.Action)
	return nil
}
