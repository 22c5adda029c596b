package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrCardBindConflict 条件更新未命中：卡片已被绑定、已停用或不存在
	ErrCardBindConflict = errors.New("card bind conflict")
	// ErrCardAccountConflict 账号已绑定其他卡片（linked_user_id 唯一约束）
	ErrCardAccountConflict = errors.New("account already linked to another card")
	// ErrCardIDConflict 卡号唯一约束冲突
	ErrCardIDConflict = errors.New("card id already exists")
)

// isUniqueViolation 判断是否为唯一约束冲突
// 未开启 TranslateError 时按驱动错误文本兜底识别
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}
