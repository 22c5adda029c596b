package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色
// readonly_auditor 只读，card_operator 负责卡片库存，account_admin 额外管理运营账号与角色
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "card_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/cards", Action: "POST"},
				{Object: "/admin/cards/generate", Action: "POST"},
				{Object: "/admin/cards/:card_id/unclaim", Action: "POST"},
				{Object: "/admin/cards/:card_id/status", Action: "PATCH"},
			},
		},
		{
			Role:     "account_admin",
			Inherits: []string{"card_operator"},
			Policies: []Policy{
				{Object: "/admin/authz/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色，已存在的策略不会重复添加
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
