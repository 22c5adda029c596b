package admin

import (
	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 管理端接口处理器
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.AdminID(c)
}
