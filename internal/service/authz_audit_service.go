package service

import (
	"context"
	"strings"
	"time"

	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"
)

// AuthzAuditRecordInput 权限审计记录输入
type AuthzAuditRecordInput struct {
	OperatorAdminID uint
	TargetAdminID   *uint
	Action          string
	Role            string
	Object          string
	Method          string
	RequestID       string
	Detail          models.JSON
}

// AuthzAuditService 权限审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建权限审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo}
}

// Record 记录一次权限变更，写入失败只记日志，不影响变更本身
func (s *AuthzAuditService) Record(ctx context.Context, input AuthzAuditRecordInput) {
	if s == nil || s.repo == nil || input.OperatorAdminID == 0 {
		return
	}
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return
	}
	item := &models.AuthzAuditLog{
		OperatorAdminID: input.OperatorAdminID,
		TargetAdminID:   input.TargetAdminID,
		Action:          action,
		Role:            strings.TrimSpace(input.Role),
		Object:          strings.TrimSpace(input.Object),
		Method:          strings.ToUpper(strings.TrimSpace(input.Method)),
		RequestID:       strings.TrimSpace(input.RequestID),
		DetailJSON:      input.Detail,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		logger.Warnw("authz_audit_record_failed",
			"operator_admin_id", input.OperatorAdminID,
			"action", action,
			"error", err,
		)
	}
}

// List 管理端查询审计日志
func (s *AuthzAuditService) List(ctx context.Context, filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	return s.repo.List(ctx, filter)
}
