package models

import "time"

// CardEvent 卡片操作流水
type CardEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CardID    string    `gorm:"type:varchar(64);index;not null" json:"card_id"`
	Action    string    `gorm:"type:varchar(32);index;not null" json:"action"` // claimed / unclaimed / generated / activated / deactivated
	UserID    *uint     `gorm:"index" json:"user_id"`                          // 认领人或解绑前的持有人
	AdminID   *uint     `gorm:"index" json:"admin_id"`                         // 操作管理员
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (CardEvent) TableName() string {
	return "card_events"
}
