package models

import (
	"time"

	"github.com/tapbio-next/internal/constants"
)

// Card 实体卡（NFC/二维码）
// LinkedUserID 与 ClaimedAt 总是同时为空或同时有值
type Card struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	CardID        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"card_id"` // 对外卡号，创建后不可变
	SecretPinHash string     `gorm:"not null" json:"-"`                                    // PIN 的 bcrypt 哈希
	IsActive      bool       `gorm:"not null;index" json:"is_active"`
	LinkedUserID  *uint      `gorm:"uniqueIndex" json:"linked_user_id"` // 唯一索引保证一个账号最多绑定一张卡
	ClaimedAt     *time.Time `json:"claimed_at"`
	CreatedBy     *uint      `gorm:"index" json:"created_by,omitempty"` // 生成该卡的管理员
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Card) TableName() string {
	return "cards"
}

// IsClaimed 是否已被认领
func (c *Card) IsClaimed() bool {
	return c != nil && c.LinkedUserID != nil
}

// State 卡片真实状态，停用优先于认领
func (c *Card) State() string {
	switch {
	case c == nil:
		return constants.CardStateNotFound
	case !c.IsActive:
		return constants.CardStateInactive
	case c.LinkedUserID != nil:
		return constants.CardStateClaimed
	default:
		return constants.CardStateUnclaimed
	}
}
