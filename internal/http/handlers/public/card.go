package public

import (
	"time"

	"github.com/tapbio-next/internal/constants"
	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ClaimCardRequest 认领请求
type ClaimCardRequest struct {
	Pin            string                              `json:"pin" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// CardClaimResponse 认领结果，不包含 PIN 哈希
type CardClaimResponse struct {
	CardID    string     `json:"card_id"`
	State     string     `json:"state"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at"`
}

func newCardClaimResponse(card *models.Card, claimed bool) CardClaimResponse {
	return CardClaimResponse{
		CardID:    card.CardID,
		State:     card.State(),
		Claimed:   claimed,
		ClaimedAt: card.ClaimedAt,
	}
}

// GetCardStatus 公开卡片状态
func (h *Handler) GetCardStatus(c *gin.Context) {
	status, err := h.CardStatusService.Status(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		respondWithMappedError(c, err, cardReadErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, status)
}

// GetCardProfile 已认领卡片对应的公开主页
func (h *Handler) GetCardProfile(c *gin.Context) {
	ref, err := h.CardStatusService.Profile(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		respondWithMappedError(c, err, cardReadErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, ref)
}

// ClaimCard 当前用户认领卡片
func (h *Handler) ClaimCard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ClaimCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CaptchaService.Verify(constants.CaptchaSceneCardClaim, req.CaptchaPayload.ToServicePayload()); err != nil {
		respondWithMappedError(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.internal")
		return
	}

	result, err := h.CardClaimService.Claim(c.Request.Context(), service.CardClaimInput{
		CardID: c.Param("card_id"),
		Pin:    req.Pin,
		UserID: userID,
	})
	if err != nil {
		respondClaimError(c, err)
		return
	}
	response.Success(c, newCardClaimResponse(result.Card, result.Claimed))
}

// GetMyCard 当前用户持有的卡片
func (h *Handler) GetMyCard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	card, err := h.CardService.FindByAccount(c.Request.Context(), userID)
	if err != nil {
		respondWithMappedError(c, err, cardReadErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"card_id":    card.CardID,
		"state":      card.State(),
		"claimed_at": card.ClaimedAt,
		"claim_url":  h.CardService.ClaimURL(card.CardID),
	})
}
