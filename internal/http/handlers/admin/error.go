package admin

import (
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

var cardAdminErrorRules = []mappedHandlerError{
	{Target: service.ErrCardNotFound, Code: response.CodeNotFound, Key: "error.card_not_found"},
	{Target: service.ErrCardCreateInvalid, Code: response.CodeBadRequest, Key: "error.card_create_invalid"},
	{Target: service.ErrCardIDDuplicate, Code: response.CodeConflict, Key: "error.card_id_duplicate"},
	{Target: service.ErrCardStoreUnavailable, Code: response.CodeServiceUnavailable, Key: "error.card_store_unavailable"},
}

var adminAuthErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.invalid_credentials"},
	{Target: service.ErrInvalidPassword, Code: response.CodeBadRequest, Key: "error.password_invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
	{Target: service.ErrUsernameInvalid, Code: response.CodeBadRequest, Key: "error.username_invalid"},
	{Target: service.ErrUsernameExists, Code: response.CodeConflict, Key: "error.username_exists"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.admin_not_found"},
}
