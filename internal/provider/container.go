package provider

import (
	"github.com/tapbio-next/internal/authz"
	"github.com/tapbio-next/internal/cache"
	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/queue"
	"github.com/tapbio-next/internal/repository"
	"github.com/tapbio-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	CardRepo       repository.CardRepository
	CardEventRepo  repository.CardEventRepository
	AuthzAuditRepo repository.AuthzAuditLogRepository

	// Services
	AuthzService      *authz.Service
	AuthzAuditService *service.AuthzAuditService
	AdminAuthService  *service.AdminAuthService
	UserAuthService   *service.UserAuthService
	CaptchaService    *service.CaptchaService
	CardPinVerifier   *service.CardPinVerifier
	CardStatusService *service.CardStatusService
	CardEventRecorder *service.CardEventRecorder
	CardClaimService  *service.CardClaimService
	CardService       *service.CardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库连接装配容器，不初始化 Redis
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) (*Container, error) {
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories(db)
	if err := c.initServices(db); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.CardRepo = repository.NewCardRepository(db)
	c.CardEventRepo = repository.NewCardEventRepository(db)
	c.AuthzAuditRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices(db *gorm.DB) error {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditRepo)

	cardCfg := c.Config.Card
	c.AdminAuthService = service.NewAdminAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.CardPinVerifier = service.NewCardPinVerifier(cardCfg)
	c.CardStatusService = service.NewCardStatusService(cardCfg, c.CardRepo, c.UserRepo)
	c.CardEventRecorder = service.NewCardEventRecorder(c.QueueClient, c.CardEventRepo)
	c.CardClaimService = service.NewCardClaimService(c.CardRepo, c.UserRepo, c.CardPinVerifier, c.CardStatusService, c.CardEventRecorder)
	c.CardService = service.NewCardService(cardCfg, c.CardRepo, c.CardEventRepo, c.CardPinVerifier, c.CardStatusService, c.CardEventRecorder)
	return nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
