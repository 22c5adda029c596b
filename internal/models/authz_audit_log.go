package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON 以 JSON 文本存储的键值对
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = JSON{}
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// AuthzAuditLog 运营账号与角色变更审计
type AuthzAuditLog struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID uint      `gorm:"index;not null" json:"operator_admin_id"`
	TargetAdminID   *uint     `gorm:"index" json:"target_admin_id,omitempty"`
	Action          string    `gorm:"type:varchar(64);index;not null" json:"action"` // role_grant / role_revoke / admin_roles_set / admin_create
	Role            string    `gorm:"type:varchar(120);index;not null;default:''" json:"role"`
	Object          string    `gorm:"type:varchar(255);not null;default:''" json:"object"`
	Method          string    `gorm:"type:varchar(20);not null;default:''" json:"method"`
	RequestID       string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON      JSON      `gorm:"type:json" json:"detail"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
