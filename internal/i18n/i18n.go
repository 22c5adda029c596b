package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"
)

// DefaultLocale 默认语言
const DefaultLocale = LocaleZH

// HeaderLocale 前端显式指定语言的请求头
const HeaderLocale = "X-Locale"

var catalogs = map[string]map[string]string{
	LocaleZH: zhCN,
	LocaleEN: enUS,
}

// NormalizeLocale 将任意语言标记归一为已支持的语言
func NormalizeLocale(raw string) string {
	l := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case l == "":
		return DefaultLocale
	case strings.HasPrefix(l, "en"):
		return LocaleEN
	case strings.HasPrefix(l, "zh"):
		return LocaleZH
	default:
		return DefaultLocale
	}
}

// ResolveLocale 依次读取 X-Locale、Accept-Language 决定语言
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if header := strings.TrimSpace(c.GetHeader(HeaderLocale)); header != "" {
		return NormalizeLocale(header)
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return DefaultLocale
	}
	// 只取首选语言，忽略 q 权重
	first := strings.SplitN(accept, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return NormalizeLocale(first)
}

// T 查找文案，找不到时回退默认语言，再回退为 key 本身
func T(locale, key string) string {
	if msg, ok := catalogs[NormalizeLocale(locale)][key]; ok {
		return msg
	}
	if msg, ok := catalogs[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 查找文案并格式化参数
func Sprintf(locale, key string, args ...interface{}) string {
	msg := T(locale, key)
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
