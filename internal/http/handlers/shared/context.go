package shared

import (
	"github.com/tapbio-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 中间件写入上下文的键
const (
	ContextKeyUserID  = "user_id"
	ContextKeyAdminID = "admin_id"

	// ContextKeyAttemptFailed 处理器标记本次请求为失败尝试，供按失败计数的限流使用
	ContextKeyAttemptFailed = "attempt_failed"
)

// MarkAttemptFailed 标记当前请求为失败尝试
func MarkAttemptFailed(c *gin.Context) {
	c.Set(ContextKeyAttemptFailed, true)
}

// AttemptFailed 当前请求是否被标记为失败尝试
func AttemptFailed(c *gin.Context) bool {
	return c.GetBool(ContextKeyAttemptFailed)
}

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, invalidKey, nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// UserID 读取当前登录用户 ID。
func UserID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextKeyUserID, "error.user_id_invalid", "error.user_id_type_invalid")
}

// AdminID 读取当前管理员 ID。
func AdminID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextKeyAdminID, "error.admin_id_invalid", "error.admin_id_type_invalid")
}
