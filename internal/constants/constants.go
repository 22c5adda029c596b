package constants

// 卡片状态常量
const (
	CardStateUnclaimed = "unclaimed"
	CardStateClaimed   = "claimed"
	CardStateInactive  = "inactive"
	CardStateNotFound  = "not_found"
)

// 卡片流水动作常量
const (
	CardEventClaimed     = "claimed"
	CardEventUnclaimed   = "unclaimed"
	CardEventGenerated   = "generated"
	CardEventActivated   = "activated"
	CardEventDeactivated = "deactivated"
)

// 卡号字符集
const (
	CardIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// 权限审计动作常量
const (
	AuthzAuditRoleGrant     = "role_grant"
	AuthzAuditRoleRevoke    = "role_revoke"
	AuthzAuditAdminRolesSet = "admin_roles_set"
	AuthzAuditAdminCreate   = "admin_create"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin     = "login"
	CaptchaSceneRegister  = "register"
	CaptchaSceneCardClaim = "card_claim"
)

// 队列常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
	TaskCardEvent = "card:event"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "tb"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}

// 导出格式常量
const (
	ExportFormatCSV = "csv"
)
