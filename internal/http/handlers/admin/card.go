package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tapbio-next/internal/constants"
	handlershared "github.com/tapbio-next/internal/http/handlers/shared"
	"github.com/tapbio-next/internal/http/response"
	"github.com/tapbio-next/internal/i18n"
	"github.com/tapbio-next/internal/repository"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GenerateCardsRequest 批量生成请求
type GenerateCardsRequest struct {
	Count int `json:"count" binding:"required"`
}

// CreateCardRequest 导入单张卡片
type CreateCardRequest struct {
	CardID string `json:"card_id" binding:"required"`
	Pin    string `json:"pin" binding:"required"`
}

// SetCardStatusRequest 启用或停用
type SetCardStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func cardListFilter(c *gin.Context) repository.CardListFilter {
	page, pageSize := handlershared.QueryPagination(c)
	filter := repository.CardListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		State:    strings.ToLower(strings.TrimSpace(c.Query("state"))),
	}
	if raw := strings.TrimSpace(c.Query("linked_user_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.LinkedUserID = uint(id)
		}
	}
	return filter
}

// ListCards 卡片列表
func (h *Handler) ListCards(c *gin.Context) {
	filter := cardListFilter(c)
	items, total, err := h.CardService.List(c.Request.Context(), filter)
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetCardStats 库存统计
func (h *Handler) GetCardStats(c *gin.Context) {
	stats, err := h.CardService.Stats(c.Request.Context())
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, stats)
}

// GetCard 卡片详情
func (h *Handler) GetCard(c *gin.Context) {
	detail, err := h.CardService.Get(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, detail)
}

// GenerateCards 批量生成，PIN 只在本次响应中返回
func (h *Handler) GenerateCards(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req GenerateCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	cards, err := h.CardService.Generate(c.Request.Context(), service.GenerateCardsInput{Count: req.Count, AdminID: adminID})
	if err != nil {
		if errors.Is(err, service.ErrCardGenerateInvalid) {
			msg := i18n.Sprintf(i18n.ResolveLocale(c), "error.card_generate_invalid", h.CardService.MaxGenerate())
			handlershared.RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
			return
		}
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{"cards": cards, "count": len(cards)})
}

// CreateCard 指定卡号与 PIN 建卡
func (h *Handler) CreateCard(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	card, err := h.CardService.CreateCard(c.Request.Context(), service.CreateCardInput{
		CardID:  req.CardID,
		Pin:     req.Pin,
		AdminID: adminID,
	})
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, card)
}

// UnclaimCard 解除绑定，重复调用同样成功
func (h *Handler) UnclaimCard(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	card, err := h.CardService.Unclaim(c.Request.Context(), c.Param("card_id"), adminID)
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"card_id":        card.CardID,
		"state":          card.State(),
		"linked_user_id": card.LinkedUserID,
		"claimed_at":     card.ClaimedAt,
	})
}

// SetCardStatus 启用或停用卡片，不影响绑定关系
func (h *Handler) SetCardStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req SetCardStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	card, err := h.CardService.SetActive(c.Request.Context(), c.Param("card_id"), *req.IsActive, adminID)
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"card_id":   card.CardID,
		"state":     card.State(),
		"is_active": card.IsActive,
	})
}

// GetCardQRCode 认领链接二维码
func (h *Handler) GetCardQRCode(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	body, err := h.CardService.QRCode(c.Request.Context(), c.Param("card_id"), size)
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.qrcode_failed")
		return
	}
	response.PNG(c, service.NormalizeCardID(c.Param("card_id"))+".png", body)
}

// ExportCards 导出 CSV
func (h *Handler) ExportCards(c *gin.Context) {
	body, err := h.CardService.ExportCSV(c.Request.Context(), cardListFilter(c))
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.export_failed")
		return
	}
	filename := "cards-" + time.Now().Format("20060102150405") + "." + constants.ExportFormatCSV
	response.Attachment(c, filename, "text/csv; charset=utf-8", body)
}

// ListCardEvents 卡片流水
func (h *Handler) ListCardEvents(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	events, total, err := h.CardService.ListEvents(c.Request.Context(), repository.CardEventListFilter{
		Page:     page,
		PageSize: pageSize,
		CardID:   c.Param("card_id"),
		Action:   strings.TrimSpace(c.Query("action")),
	})
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.SuccessWithPage(c, events, response.NewPagination(page, pageSize, total))
}

// GetCardOperatorStatus 运营视角状态，始终返回真实状态
func (h *Handler) GetCardOperatorStatus(c *gin.Context) {
	status, err := h.CardStatusService.StatusForOperator(c.Request.Context(), c.Param("card_id"))
	if err != nil {
		respondWithMappedError(c, err, cardAdminErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, status)
}
