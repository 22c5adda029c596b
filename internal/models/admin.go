package models

import (
	"time"
)

// Admin 运营管理员
type Admin struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	Username           string     `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	TokenVersion       uint64     `gorm:"not null;default:0" json:"-"`
	TokenInvalidBefore *time.Time `gorm:"index" json:"-"`
	IsSuper            bool       `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员跳过 RBAC
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
