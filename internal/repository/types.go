package repository

// CardListFilter 查询卡片列表的过滤条件
type CardListFilter struct {
	Page         int
	PageSize     int
	Keyword      string // 卡号模糊匹配
	State        string // unclaimed / claimed / inactive，空为全部
	LinkedUserID uint
}

// CardEventListFilter 查询卡片流水的过滤条件
type CardEventListFilter struct {
	Page     int
	PageSize int
	CardID   string
	Action   string
}

// CardStats 卡片库存统计
// Claimed 与 Unclaimed 只统计启用中的卡，三者之和等于 Total
type CardStats struct {
	Total     int64 `json:"total"`
	Claimed   int64 `json:"claimed"`
	Unclaimed int64 `json:"unclaimed"`
	Inactive  int64 `json:"inactive"`
}

// AuthzAuditLogListFilter 查询权限审计日志的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
}
