package admin

import (
	"strconv"
	"strings"

	"github.com/tapbio-next/internal/authz"
	"github.com/tapbio-next/internal/constants"
	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
)

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

type createAdminPayload struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Roles    []string `json:"roles"`
}

// GetAuthzMe 当前管理员的角色
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_failed", err)
		return
	}
	isSuper, _ := c.Get("admin_is_super")
	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper == true,
		"roles":    roles,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Action: constants.AuthzAuditRoleGrant,
		Role:   req.Role,
		Object: authz.NormalizeObject(req.Object),
		Method: authz.NormalizeAction(req.Action),
	})
	response.Success(c, authz.Policy{Subject: req.Role, Object: authz.NormalizeObject(req.Object), Action: authz.NormalizeAction(req.Action)})
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		Action: constants.AuthzAuditRoleRevoke,
		Role:   req.Role,
		Object: authz.NormalizeObject(req.Object),
		Method: authz.NormalizeAction(req.Action),
	})
	response.Success(c, gin.H{"revoked": true})
}

// ListAuthzAdmins 管理员及其角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, err := h.AuthzService.GetAdminRoles(admin.ID)
		if err != nil {
			respondError(c, response.CodeInternal, "error.authz_failed", err)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"is_super":      admin.IsSuper,
			"roles":         roles,
			"last_login_at": admin.LastLoginAt,
		})
	}
	response.Success(c, items)
}

// CreateAuthzAdmin 创建运营账号并分配角色
func (h *Handler) CreateAuthzAdmin(c *gin.Context) {
	var req createAdminPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	admin, err := h.AdminAuthService.CreateAdmin(req.Username, req.Password)
	if err != nil {
		respondWithMappedError(c, err, adminAuthErrorRules, response.CodeInternal, "error.internal")
		return
	}
	if len(req.Roles) > 0 {
		if err := h.AuthzService.SetAdminRoles(admin.ID, req.Roles); err != nil {
			respondError(c, response.CodeBadRequest, "error.role_invalid", err)
			return
		}
	}
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		TargetAdminID: &admin.ID,
		Action:        constants.AuthzAuditAdminCreate,
		Detail:        models.JSON{"username": admin.Username, "roles": req.Roles},
	})
	response.Success(c, gin.H{"id": admin.ID, "username": admin.Username, "roles": req.Roles})
}

// SetAuthzAdminRoles 覆盖管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	admin, err := h.AdminRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(admin.ID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.role_invalid", err)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(admin.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_failed", err)
		return
	}
	h.recordAuthzAudit(c, service.AuthzAuditRecordInput{
		TargetAdminID: &admin.ID,
		Action:        constants.AuthzAuditAdminRolesSet,
		Role:          strings.Join(roles, ","),
	})
	response.Success(c, gin.H{"admin_id": admin.ID, "roles": roles})
}

// ListAuthzAuditLogs 权限变更审计日志
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	filter := repository.AuthzAuditLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
		Role:     strings.TrimSpace(c.Query("role")),
	}
	for key, dest := range map[string]*uint{
		"operator_admin_id": &filter.OperatorAdminID,
		"target_admin_id":   &filter.TargetAdminID,
	} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		*dest = uint(id)
	}

	items, total, err := h.AuthzAuditService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

func (h *Handler) recordAuthzAudit(c *gin.Context, input service.AuthzAuditRecordInput) {
	if value, ok := c.Get(handlershared.ContextKeyAdminID); ok {
		if id, ok := value.(uint); ok {
			input.OperatorAdminID = id
		}
	}
	input.RequestID = c.GetString("request_id")
	h.AuthzAuditService.Record(c.Request.Context(), input)
}
