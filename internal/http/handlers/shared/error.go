package shared

import (
	"errors"

	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/i18n"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithData(c, code, key, err, nil)
}

// RespondErrorWithData 返回带附加数据的国际化错误响应。
func RespondErrorWithData(c *gin.Context, code int, key string, err error, data gin.H) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	logHandlerError(c, code, msg, err)
	if data == nil {
		response.Error(c, code, msg)
		return
	}
	response.ErrorWithData(c, code, msg, data)
}

// RespondErrorWithMsg 返回自定义消息错误响应。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	logHandlerError(c, code, msg, err)
	response.Error(c, code, msg)
}

func logHandlerError(c *gin.Context, code int, msg string, err error) {
	if err == nil {
		return
	}
	appErr := response.WrapError(code, msg, err)
	RequestLog(c).Errorw("handler_error",
		"code", appErr.Code,
		"message", appErr.Message,
		"error", err,
	)
}

// MappedError 业务错误到响应码与文案的映射。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondMappedError 按规则输出错误，未命中时按 fallback 输出并记录原始错误。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	var policyErr service.PasswordPolicyError
	if errors.As(err, &policyErr) {
		RespondErrorWithMsg(c, response.CodeBadRequest, i18n.Sprintf(i18n.ResolveLocale(c), policyErr.Key(), policyErr.Args()...), nil)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}
