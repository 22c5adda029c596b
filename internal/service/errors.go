package service

import (
	"errors"
	"fmt"
)

// 通用错误
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("weak password")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameInvalid    = errors.New("invalid username")
	ErrUsernameExists     = errors.New("username already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenInvalid       = errors.New("无效的 token")
)

// 验证码错误
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)

// 卡片错误
var (
	ErrCardNotFound          = errors.New("card not found")
	ErrCardInactive          = errors.New("card inactive")
	ErrCardAlreadyClaimed    = errors.New("card already claimed")
	ErrCardInvalidPin        = errors.New("invalid card pin")
	ErrAccountAlreadyHasCard = errors.New("account already has a card")
	ErrCardIDDuplicate       = errors.New("card id duplicate")
	ErrCardStoreUnavailable  = errors.New("card store unavailable")
	ErrCardGenerateInvalid   = errors.New("invalid card generate count")
	ErrCardNotClaimed        = errors.New("account has no card")
	ErrCardCreateInvalid     = errors.New("invalid card id or pin")
)

// AccountCardConflictError 账号已持有其他卡片，携带已持有的卡号
type AccountCardConflictError struct {
	ExistingCardID string
}

func (e *AccountCardConflictError) Error() string {
	if e == nil || e.ExistingCardID == "" {
		return ErrAccountAlreadyHasCard.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAccountAlreadyHasCard.Error(), e.ExistingCardID)
}

// Is 使 errors.Is(err, ErrAccountAlreadyHasCard) 成立
func (e *AccountCardConflictError) Is(target error) bool {
	return target == ErrAccountAlreadyHasCard
}

// storeUnavailable 包装存储层异常，保留原始错误链
func storeUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrCardStoreUnavailable, err)
}
