package router

import (
	"sort"
	"strings"

	"github.com/tapbio-next/internal/authz"
	"github.com/tapbio-next/internal/cache"
	"github.com/tapbio-next/internal/config"
	adminhandlers "github.com/tapbio-next/internal/http/handlers/admin"
	publichandlers "github.com/tapbio-next/internal/http/handlers/public"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisClient := cache.Client()
	loginRule := NewRateLimitRule(cache.BuildKey("rate:login"), cfg.Security.LoginRateLimit, "error.login_too_many")
	adminLoginRule := NewRateLimitRule(cache.BuildKey("rate:admin_login"), cfg.Security.LoginRateLimit, "error.login_too_many")
	claimCardRule := NewRateLimitRule(cache.BuildKey("rate:claim_card"), cfg.Security.ClaimRateLimit, "error.claim_too_many")
	claimUserRule := NewRateLimitRule(cache.BuildKey("rate:claim_user"), cfg.Security.ClaimRateLimit, "error.claim_too_many")

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口，NFC/二维码落地页直接调用
		public := apiV1.Group("/public")
		{
			public.GET("/cards/:card_id/status", publicHandler.GetCardStatus)
			public.GET("/cards/:card_id/profile", publicHandler.GetCardProfile)
			public.GET("/captcha", publicHandler.GetCaptchaSetting)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, loginRule, KeyByIP), publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("account")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(c.UserAuthService))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.GET("/me/card", publicHandler.GetMyCard)
			user.POST("/cards/:card_id/claim",
				RateLimitFailuresMiddleware(redisClient, claimCardRule, KeyByCardParam),
				RateLimitMiddleware(redisClient, claimUserRule, KeyByUser),
				publicHandler.ClaimCard,
			)
		}

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 仅需登录的管理员接口
			self := admin.Group("")
			self.Use(AdminJWTAuthMiddleware(c.AdminAuthService))
			{
				self.PUT("/password", adminHandler.UpdateAdminPassword)
				self.GET("/authz/me", adminHandler.GetAuthzMe)
			}

			authorized := admin.Group("")
			authorized.Use(AdminJWTAuthMiddleware(c.AdminAuthService), AdminRBACMiddleware(c.AuthzService))
			{
				// 卡片库存
				authorized.GET("/cards", adminHandler.ListCards)
				authorized.POST("/cards", adminHandler.CreateCard)
				authorized.GET("/cards/stats", adminHandler.GetCardStats)
				authorized.GET("/cards/export", adminHandler.ExportCards)
				authorized.POST("/cards/generate", adminHandler.GenerateCards)
				authorized.GET("/cards/:card_id", adminHandler.GetCard)
				authorized.GET("/cards/:card_id/status", adminHandler.GetCardOperatorStatus)
				authorized.GET("/cards/:card_id/qr", adminHandler.GetCardQRCode)
				authorized.GET("/cards/:card_id/events", adminHandler.ListCardEvents)
				authorized.POST("/cards/:card_id/unclaim", adminHandler.UnclaimCard)
				authorized.PATCH("/cards/:card_id/status", adminHandler.SetCardStatus)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 由已注册路由生成可授权的权限清单
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		switch item.Path {
		case "/api/v1/admin/login", "/api/v1/admin/password", "/api/v1/admin/authz/me":
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	segments := strings.Split(strings.Trim(strings.TrimSpace(object), "/"), "/")
	if len(segments) < 2 || segments[0] != "admin" {
		return "system"
	}
	return segments[1]
}
