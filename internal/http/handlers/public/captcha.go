package public

import (
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCaptchaSetting 验证码开关
func (h *Handler) GetCaptchaSetting(c *gin.Context) {
	response.Success(c, h.CaptchaService.PublicSetting())
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeBadRequest, Key: "error.captcha_config_invalid"},
		}, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, challenge)
}
