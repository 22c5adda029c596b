package queue

import (
	"testing"

	"github.com/tapbio-next/internal/config"
)

func TestCardEventTaskRoundTrip(t *testing.T) {
	userID := uint(42)
	task, err := NewCardEventTask(CardEventPayload{
		CardID:     "card-ab123",
		Action:     "claimed",
		UserID:     &userID,
		OccurredAt: 1700000000000,
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskCardEvent {
		t.Fatalf("task type want %s got %s", TaskCardEvent, task.Type())
	}
	payload, err := ParseCardEventPayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.CardID != "card-ab123" || payload.UserID == nil || *payload.UserID != 42 || payload.AdminID != nil {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.OccurredTime().UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected occurred time: %v", payload.OccurredTime())
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueCardEvent(CardEventPayload{CardID: "card-x"}); err != nil {
		t.Fatalf("disabled enqueue should be noop, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: "redis", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 || cfg.Queues[CriticalQueue] != 2 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
