package queue

import (
	"encoding/json"
	"time"

	"github.com/tapbio-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCardEvent 卡片流水落库任务
	TaskCardEvent = constants.TaskCardEvent
)

// CardEventPayload 卡片流水任务载荷
type CardEventPayload struct {
	CardID     string `json:"card_id"`
	Action     string `json:"action"`
	UserID     *uint  `json:"user_id,omitempty"`
	AdminID    *uint  `json:"admin_id,omitempty"`
	OccurredAt int64  `json:"occurred_at"` // Unix 毫秒
}

// OccurredTime 事件发生时间，缺省为当前时间
func (p CardEventPayload) OccurredTime() time.Time {
	if p.OccurredAt <= 0 {
		return time.Now()
	}
	return time.UnixMilli(p.OccurredAt)
}

// NewCardEventTask 创建卡片流水任务
func NewCardEventTask(payload CardEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCardEvent, body), nil
}

// ParseCardEventPayload 解析卡片流水任务载荷
func ParseCardEventPayload(task *asynq.Task) (CardEventPayload, error) {
	var payload CardEventPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
