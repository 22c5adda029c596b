package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tapbio-next/internal/config"
	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/i18n"
	"github.com/tapbio-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var errRateLimitResult = errors.New("unexpected rate limit script result")

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
// BlockSeconds > 0 时超限后封禁该 key，封禁期间不再计数
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

// NewRateLimitRule 由配置生成规则
func NewRateLimitRule(prefix string, cfg config.RateLimitConfig, messageKey string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		MessageKey:    messageKey,
	}
}

// KEYS[1] 计数 key，KEYS[2] 封禁 key
// ARGV: window, max, block
// 返回 {是否拒绝, 剩余秒数}
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
if current > tonumber(ARGV[2]) then
	local block = tonumber(ARGV[3])
	if block > 0 then
		redis.call("SET", KEYS[2], "1", "EX", block)
		redis.call("DEL", KEYS[1])
		return {1, block}
	end
	return {1, ttl}
end
return {0, ttl}
`)

// KEYS[1] 封禁 key
// 返回剩余封禁秒数，未封禁为 0
var rateLimitBlockedScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[1])
if blocked > 0 then
	return blocked
end
return 0
`)

// RateLimitMiddleware Redis 频率限制中间件
// Redis 未配置时放行，Redis 异常时拒绝
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}
		key := buildRateLimitKey(c, rule, keyFunc)
		rejected, waitSeconds, err := runRateLimitScript(c, client, rule, key)
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			abortRateLimitUnavailable(c)
			return
		}
		if rejected {
			abortRateLimited(c, rule, waitSeconds)
			return
		}
		c.Next()
	}
}

// RateLimitFailuresMiddleware 仅统计处理器标记为失败的请求
// 封禁期间拒绝所有请求，未封禁时成功请求不消耗额度
func RateLimitFailuresMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}
		key := buildRateLimitKey(c, rule, keyFunc)
		result, err := rateLimitBlockedScript.Run(c.Request.Context(), client, []string{key + ":blocked"}).Result()
		if err != nil {
			logger.Warnw("rate_limit_script_failed", "prefix", rule.Prefix, "error", err)
			abortRateLimitUnavailable(c)
			return
		}
		if waitSeconds, ok := toInt64(result); ok && waitSeconds > 0 {
			abortRateLimited(c, rule, waitSeconds)
			return
		}

		c.Next()

		if !handlershared.AttemptFailed(c) {
			return
		}
		// 响应已写出，计数失败只记录日志
		if _, _, err := runRateLimitScript(c, client, rule, key); err != nil {
			logger.Warnw("rate_limit_failure_count_failed", "prefix", rule.Prefix, "error", err)
		}
	}
}

func buildRateLimitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if rule.Prefix != "" {
		key = fmt.Sprintf("%s:%s", rule.Prefix, key)
	}
	return key
}

func runRateLimitScript(c *gin.Context, client *redis.Client, rule RateLimitRule, key string) (bool, int64, error) {
	result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key, key + ":blocked"},
		rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, errRateLimitResult
	}
	rejected, ok := toInt64(values[0])
	if !ok {
		return false, 0, errRateLimitResult
	}
	waitSeconds, _ := toInt64(values[1])
	return rejected == 1, waitSeconds, nil
}

func abortRateLimited(c *gin.Context, rule RateLimitRule, waitSeconds int64) {
	if waitSeconds < 1 {
		waitSeconds = int64(rule.WindowSeconds)
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.too_many_requests"
	}
	c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
	response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
	c.Abort()
}

func abortRateLimitUnavailable(c *gin.Context) {
	response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
	c.Abort()
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

// KeyByCardParam 按卡号限流，不区分来源
func KeyByCardParam(c *gin.Context) string {
	cardID := strings.ToLower(strings.TrimSpace(c.Param("card_id")))
	if cardID == "" {
		return ""
	}
	return "card|" + cardID
}

// KeyByUser 按登录用户限流，需挂在用户鉴权之后
func KeyByUser(c *gin.Context) string {
	value, ok := c.Get(handlershared.ContextKeyUserID)
	if !ok {
		return ""
	}
	if userID, ok := value.(uint); ok && userID > 0 {
		return fmt.Sprintf("user|%d", userID)
	}
	return ""
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
