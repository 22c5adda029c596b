package service

import (
	"unicode"

	"github.com/tapbio-next/internal/config"
)

// PasswordPolicyError 密码策略未满足，Key 对应 i18n 文案
type PasswordPolicyError struct {
	key  string
	args []interface{}
}

func (e PasswordPolicyError) Error() string {
	return e.key
}

func (e PasswordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func (e PasswordPolicyError) Key() string {
	return e.key
}

func (e PasswordPolicyError) Args() []interface{} {
	return e.args
}

type passwordRule struct {
	enabled bool
	ok      func(classes passwordClasses) bool
	key     string
}

type passwordClasses struct {
	upper, lower, number, special bool
}

func classifyPassword(password string) passwordClasses {
	var c passwordClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.number = true
		default:
			c.special = true
		}
	}
	return c
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return PasswordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}

	rules := []passwordRule{
		{policy.RequireUpper, func(c passwordClasses) bool { return c.upper }, "error.password_require_upper"},
		{policy.RequireLower, func(c passwordClasses) bool { return c.lower }, "error.password_require_lower"},
		{policy.RequireNumber, func(c passwordClasses) bool { return c.number }, "error.password_require_number"},
		{policy.RequireSpecial, func(c passwordClasses) bool { return c.special }, "error.password_require_special"},
	}
	classes := classifyPassword(password)
	for _, rule := range rules {
		if rule.enabled && !rule.ok(classes) {
			return PasswordPolicyError{key: rule.key}
		}
	}
	return nil
}
