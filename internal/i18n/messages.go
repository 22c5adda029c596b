package i18n

var zhCN = map[string]string{
	"error.bad_request":              "请求参数错误",
	"error.unauthorized":             "未登录或登录已失效",
	"error.forbidden":                "无权限访问",
	"error.not_found":                "资源不存在",
	"error.internal":                 "服务器内部错误",
	"error.too_many_requests":        "请求过于频繁，请 %d 秒后再试",
	"error.login_too_many":           "登录尝试次数过多，请 %d 秒后再试",
	"error.claim_too_many":           "认领尝试次数过多，请 %d 秒后再试",
	"error.token_invalid":            "登录凭证无效",
	"error.token_expired":            "登录凭证已过期",
	"error.auth_header_invalid":      "Authorization 请求头格式错误",
	"error.rate_limit_unavailable":   "限流服务暂不可用",
	"error.user_id_invalid":          "用户 ID 无效",
	"error.user_id_type_invalid":     "用户 ID 类型错误",
	"error.admin_id_invalid":         "管理员 ID 无效",
	"error.admin_id_type_invalid":    "管理员 ID 类型错误",
	"error.invalid_credentials":      "账号或密码错误",
	"error.password_invalid":         "原密码错误",
	"error.password_weak":            "密码强度不足",
	"error.password_min_length":      "密码长度至少 %d 位",
	"error.password_require_upper":   "密码需包含大写字母",
	"error.password_require_lower":   "密码需包含小写字母",
	"error.password_require_number":  "密码需包含数字",
	"error.password_require_special": "密码需包含特殊字符",
	"error.user_disabled":            "账号已被禁用",
	"error.email_invalid":            "邮箱格式错误",
	"error.email_exists":             "邮箱已被注册",
	"error.username_invalid":         "用户名需为 3-32 位小写字母、数字或下划线",
	"error.username_exists":          "用户名已被占用",
	"error.account_not_found":        "账号不存在",
	"error.captcha_required":         "请完成验证码",
	"error.captcha_invalid":          "验证码错误或已过期",
	"error.captcha_config_invalid":   "验证码配置错误",
	"error.card_not_found":           "卡片不存在",
	"error.card_inactive":            "卡片已停用",
	"error.card_already_claimed":     "卡片已被认领",
	"error.card_invalid_pin":         "PIN 码错误",
	"error.account_has_card":         "当前账号已绑定其他卡片",
	"error.card_store_unavailable":   "卡片服务暂时不可用，请稍后重试",
	"error.card_generate_invalid":    "生成数量需在 1 到 %d 之间",
	"error.card_id_duplicate":        "卡号已存在",
	"error.card_create_invalid":      "卡号或 PIN 格式不正确",
	"error.card_not_claimed":         "当前账号尚未绑定卡片",
	"error.role_invalid":             "角色不存在",
	"error.admin_not_found":          "管理员不存在",
	"error.authz_failed":             "权限配置失败",
	"error.qrcode_failed":            "二维码生成失败",
	"error.export_failed":            "导出失败",
}

var enUS = map[string]string{
	"error.bad_request":              "Invalid request parameters",
	"error.unauthorized":             "Not signed in or session expired",
	"error.forbidden":                "Access denied",
	"error.not_found":                "Resource not found",
	"error.internal":                 "Internal server error",
	"error.too_many_requests":        "Too many requests, please retry in %d seconds",
	"error.login_too_many":           "Too many login attempts, please retry in %d seconds",
	"error.claim_too_many":           "Too many claim attempts, please retry in %d seconds",
	"error.token_invalid":            "Invalid credentials token",
	"error.token_expired":            "Session expired",
	"error.auth_header_invalid":      "Malformed Authorization header",
	"error.rate_limit_unavailable":   "Rate limiter unavailable",
	"error.user_id_invalid":          "Invalid user id",
	"error.user_id_type_invalid":     "Invalid user id type",
	"error.admin_id_invalid":         "Invalid admin id",
	"error.admin_id_type_invalid":    "Invalid admin id type",
	"error.invalid_credentials":      "Incorrect account or password",
	"error.password_invalid":         "Current password is incorrect",
	"error.password_weak":            "Password is too weak",
	"error.password_min_length":      "Password must be at least %d characters",
	"error.password_require_upper":   "Password must contain an uppercase letter",
	"error.password_require_lower":   "Password must contain a lowercase letter",
	"error.password_require_number":  "Password must contain a number",
	"error.password_require_special": "Password must contain a special character",
	"error.user_disabled":            "Account is disabled",
	"error.email_invalid":            "Invalid email address",
	"error.email_exists":             "Email is already registered",
	"error.username_invalid":         "Username must be 3-32 lowercase letters, digits or underscores",
	"error.username_exists":          "Username is already taken",
	"error.account_not_found":        "Account not found",
	"error.captcha_required":         "Captcha is required",
	"error.captcha_invalid":          "Captcha is invalid or expired",
	"error.captcha_config_invalid":   "Captcha is misconfigured",
	"error.card_not_found":           "Card not found",
	"error.card_inactive":            "Card is deactivated",
	"error.card_already_claimed":     "Card has already been claimed",
	"error.card_invalid_pin":         "Incorrect PIN",
	"error.account_has_card":         "This account already owns another card",
	"error.card_store_unavailable":   "Card service is temporarily unavailable, please retry",
	"error.card_generate_invalid":    "Count must be between 1 and %d",
	"error.card_id_duplicate":        "Card id already exists",
	"error.card_create_invalid":      "Card id or PIN is malformed",
	"error.card_not_claimed":         "This account has no card yet",
	"error.role_invalid":             "Role does not exist",
	"error.admin_not_found":          "Admin not found",
	"error.authz_failed":             "Failed to update permissions",
	"error.qrcode_failed":            "Failed to generate QR code",
	"error.export_failed":            "Export failed",
}
