package public

import (
	"errors"

	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, fallbackCode, fallbackKey)
}

// cardReadErrorRules 状态与主页查询
var cardReadErrorRules = []mappedHandlerError{
	{Target: service.ErrCardNotFound, Code: response.CodeNotFound, Key: "error.card_not_found"},
	{Target: service.ErrCardInactive, Code: response.CodeForbidden, Key: "error.card_inactive"},
	{Target: service.ErrCardNotClaimed, Code: response.CodeNotFound, Key: "error.card_not_claimed"},
	{Target: service.ErrAccountNotFound, Code: response.CodeNotFound, Key: "error.account_not_found"},
	{Target: service.ErrCardStoreUnavailable, Code: response.CodeServiceUnavailable, Key: "error.card_store_unavailable"},
}

// cardClaimErrorRules 认领失败只按类别返回，不透露内部细节
var cardClaimErrorRules = []mappedHandlerError{
	{Target: service.ErrCardNotFound, Code: response.CodeNotFound, Key: "error.card_not_found"},
	{Target: service.ErrCardInactive, Code: response.CodeForbidden, Key: "error.card_inactive"},
	{Target: service.ErrCardAlreadyClaimed, Code: response.CodeConflict, Key: "error.card_already_claimed"},
	{Target: service.ErrCardInvalidPin, Code: response.CodeBadRequest, Key: "error.card_invalid_pin"},
	{Target: service.ErrAccountNotFound, Code: response.CodeUnauthorized, Key: "error.account_not_found"},
	{Target: service.ErrCardStoreUnavailable, Code: response.CodeServiceUnavailable, Key: "error.card_store_unavailable"},
}

// respondClaimError 账号已持有卡片时附带已持有的卡号
func respondClaimError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrCardInvalidPin) {
		handlershared.MarkAttemptFailed(c)
	}
	var conflict *service.AccountCardConflictError
	if errors.As(err, &conflict) {
		handlershared.RespondErrorWithData(c, response.CodeConflict, "error.account_has_card", nil, gin.H{
			"existing_card_id": conflict.ExistingCardID,
		})
		return
	}
	if errors.Is(err, service.ErrAccountAlreadyHasCard) {
		respondError(c, response.CodeConflict, "error.account_has_card", nil)
		return
	}
	respondWithMappedError(c, err, cardClaimErrorRules, response.CodeInternal, "error.internal")
}

var userAuthErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrEmailExists, Code: response.CodeConflict, Key: "error.email_exists"},
	{Target: service.ErrUsernameInvalid, Code: response.CodeBadRequest, Key: "error.username_invalid"},
	{Target: service.ErrUsernameExists, Code: response.CodeConflict, Key: "error.username_exists"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.invalid_credentials"},
	{Target: service.ErrUserDisabled, Code: response.CodeForbidden, Key: "error.user_disabled"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.account_not_found"},
}
