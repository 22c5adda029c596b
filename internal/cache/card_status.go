package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CardStatusSnapshot 卡片状态快照，只记录真实状态，不含任何账号或 PIN 信息
// Version 取自卡片 updated_at（微秒），旧版本不会覆盖新版本
type CardStatusSnapshot struct {
	State    string `json:"state"`
	Version  int64  `json:"version"`
	CachedAt int64  `json:"cached_at"`
}

func cardStatusKey(cardID string) string {
	return "card:status:" + strings.ToLower(strings.TrimSpace(cardID))
}

// KEYS[1] 状态 key
// ARGV: state, version, cached_at, ttl(ms)
// 返回 1 表示已写入，0 表示缓存中已有更新的版本
var cardStatusSetScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if current and tonumber(current) > tonumber(ARGV[2]) then
	return 0
end
redis.call("HSET", KEYS[1], "state", ARGV[1], "version", ARGV[2], "cached_at", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// GetCardStatus 读取卡片状态快照
func GetCardStatus(ctx context.Context, cardID string) (*CardStatusSnapshot, bool, error) {
	if !Enabled() || strings.TrimSpace(cardID) == "" {
		return nil, false, nil
	}
	fields, err := redisClient.HGetAll(ctx, BuildKey(cardStatusKey(cardID))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	state := fields["state"]
	if state == "" {
		return nil, false, nil
	}
	snapshot := &CardStatusSnapshot{State: state}
	snapshot.Version, _ = strconv.ParseInt(fields["version"], 10, 64)
	snapshot.CachedAt, _ = strconv.ParseInt(fields["cached_at"], 10, 64)
	return snapshot, true, nil
}

// SetCardStatus 按版本写入卡片状态快照，ttl 非正数时不写入
// 缓存中版本更新时放弃写入并返回 false
func SetCardStatus(ctx context.Context, cardID, state string, version int64, ttl time.Duration) (bool, error) {
	if !Enabled() || strings.TrimSpace(cardID) == "" || ttl <= 0 {
		return false, nil
	}
	written, err := cardStatusSetScript.Run(ctx, redisClient, []string{BuildKey(cardStatusKey(cardID))},
		state, version, time.Now().Unix(), ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// DelCardStatus 使卡片状态快照失效
func DelCardStatus(ctx context.Context, cardIDs ...string) error {
	keys := make([]string, 0, len(cardIDs))
	for _, id := range cardIDs {
		if strings.TrimSpace(id) != "" {
			keys = append(keys, cardStatusKey(id))
		}
	}
	return Del(ctx, keys...)
}
