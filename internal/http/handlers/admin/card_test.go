package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/provider"
	"github.com/tapbio-next/internal/repository"
	"github.com/tapbio-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func newAdminTestContainer(t *testing.T) (*provider.Container, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:admin_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	prevDB := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = prevDB
		_ = sqlDB.Close()
	})

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1}
	cfg.UserJWT = config.JWTConfig{SecretKey: "user-secret", ExpireHours: 1}
	cfg.Card = config.CardConfig{
		IDPrefix:      "card-",
		IDLength:      6,
		PinLength:     6,
		PinHashCost:   bcrypt.MinCost,
		MaxGenerate:   10,
		PublicBaseURL: "https://tap.example",
		QRCodeSize:    256,
	}
	c, err := provider.NewContainerWithDB(cfg, db)
	require.NoError(t, err)
	return c, db
}

func newAdminTestRouter(c *provider.Container, adminID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(c)
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		ctx.Set("admin_id", adminID)
		ctx.Next()
	})
	r.GET("/admin/cards", h.ListCards)
	r.GET("/admin/cards/stats", h.GetCardStats)
	r.GET("/admin/cards/export", h.ExportCards)
	r.POST("/admin/cards", h.CreateCard)
	r.POST("/admin/cards/generate", h.GenerateCards)
	r.GET("/admin/cards/:card_id", h.GetCard)
	r.GET("/admin/cards/:card_id/qr", h.GetCardQRCode)
	r.GET("/admin/cards/:card_id/events", h.ListCardEvents)
	r.POST("/admin/cards/:card_id/unclaim", h.UnclaimCard)
	r.PATCH("/admin/cards/:card_id/status", h.SetCardStatus)
	r.PUT("/admin/authz/admins/:id/roles", h.SetAuthzAdminRoles)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGenerateCardsHandler(t *testing.T) {
	c, _ := newAdminTestContainer(t)
	r := newAdminTestRouter(c, 1)

	resp := decode(t, serve(r, http.MethodPost, "/admin/cards/generate", `{"count":3}`))
	require.Equal(t, 0, resp.StatusCode)
	var payload struct {
		Cards []service.GeneratedCard `json:"cards"`
		Count int                     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	require.Equal(t, 3, payload.Count)
	for _, card := range payload.Cards {
		require.True(t, strings.HasPrefix(card.CardID, "card-"))
		require.Len(t, card.Pin, 6)
		require.Equal(t, "https://tap.example/c/"+card.CardID, card.ClaimURL)
	}

	resp = decode(t, serve(r, http.MethodPost, "/admin/cards/generate", `{"count":11}`))
	require.Equal(t, 400, resp.StatusCode)
	require.Contains(t, resp.Msg, "10")

	resp = decode(t, serve(r, http.MethodPost, "/admin/cards/generate", `{}`))
	require.Equal(t, 400, resp.StatusCode)

	// 列表与导出都不包含 PIN
	w := serve(r, http.MethodGet, "/admin/cards?page=1&page_size=10", "")
	resp = decode(t, w)
	require.Equal(t, 0, resp.StatusCode)
	require.NotContains(t, w.Body.String(), payload.Cards[0].Pin)
	require.NotContains(t, w.Body.String(), "secret_pin_hash")

	w = serve(r, http.MethodGet, "/admin/cards/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, w.Body.String(), payload.Cards[0].CardID)
	require.NotContains(t, w.Body.String(), payload.Cards[0].Pin)

	resp = decode(t, serve(r, http.MethodGet, "/admin/cards/stats", ""))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), `"total":3`)
}

func TestCreateCardHandlerValidation(t *testing.T) {
	c, _ := newAdminTestContainer(t)
	r := newAdminTestRouter(c, 1)

	resp := decode(t, serve(r, http.MethodPost, "/admin/cards", `{"card_id":"Print-001","pin":"123456"}`))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), `"card_id":"print-001"`)

	resp = decode(t, serve(r, http.MethodPost, "/admin/cards", `{"card_id":"print-001","pin":"123456"}`))
	require.Equal(t, 409, resp.StatusCode)

	resp = decode(t, serve(r, http.MethodPost, "/admin/cards", `{"card_id":"print-002","pin":"12ab"}`))
	require.Equal(t, 400, resp.StatusCode)
}

func TestUnclaimAndStatusHandlers(t *testing.T) {
	c, _ := newAdminTestContainer(t)
	r := newAdminTestRouter(c, 1)
	ctx := t.Context()

	_, err := c.CardService.CreateCard(ctx, service.CreateCardInput{CardID: "card-unc001", Pin: "123456"})
	require.NoError(t, err)
	user, _, _, err := c.UserAuthService.Register(service.RegisterInput{Email: "dora@example.com", Username: "dora", Password: "secret123"})
	require.NoError(t, err)
	_, err = c.CardClaimService.Claim(ctx, service.CardClaimInput{CardID: "card-unc001", Pin: "123456", UserID: user.ID})
	require.NoError(t, err)

	resp := decode(t, serve(r, http.MethodPost, "/admin/cards/card-unc001/unclaim", ""))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), `"state":"unclaimed"`)
	require.Contains(t, string(resp.Data), `"linked_user_id":null`)

	// 重复解绑同样成功
	resp = decode(t, serve(r, http.MethodPost, "/admin/cards/card-unc001/unclaim", ""))
	require.Equal(t, 0, resp.StatusCode)

	resp = decode(t, serve(r, http.MethodPost, "/admin/cards/card-none/unclaim", ""))
	require.Equal(t, 404, resp.StatusCode)

	resp = decode(t, serve(r, http.MethodPatch, "/admin/cards/card-unc001/status", `{"is_active":false}`))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), `"state":"inactive"`)

	resp = decode(t, serve(r, http.MethodPatch, "/admin/cards/card-unc001/status", `{}`))
	require.Equal(t, 400, resp.StatusCode)

	resp = decode(t, serve(r, http.MethodGet, "/admin/cards/card-unc001/events?page=1&page_size=20", ""))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), "unclaimed")
}

func TestGetCardQRCodeHandler(t *testing.T) {
	c, _ := newAdminTestContainer(t)
	r := newAdminTestRouter(c, 1)

	_, err := c.CardService.CreateCard(t.Context(), service.CreateCardInput{CardID: "card-qr0001", Pin: "123456"})
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/admin/cards/card-qr0001/qr?size=200", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	resp := decode(t, serve(r, http.MethodGet, "/admin/cards/card-missing/qr", ""))
	require.Equal(t, 404, resp.StatusCode)
}

func TestSetAuthzAdminRolesHandler(t *testing.T) {
	c, db := newAdminTestContainer(t)
	r := newAdminTestRouter(c, 1)

	admin := &models.Admin{Username: "ops", PasswordHash: "x"}
	require.NoError(t, db.Create(admin).Error)

	resp := decode(t, serve(r, http.MethodPut, fmt.Sprintf("/admin/authz/admins/%d/roles", admin.ID), `{"roles":["card_operator"]}`))
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), "card_operator")

	allowed, err := c.AuthzService.EnforceAdmin(admin.ID, "/api/v1/admin/cards/:card_id/unclaim", http.MethodPost)
	require.NoError(t, err)
	require.True(t, allowed)

	logs, total, err := c.AuthzAuditService.List(t.Context(), repository.AuthzAuditLogListFilter{TargetAdminID: admin.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "admin_roles_set", logs[0].Action)
	require.Equal(t, uint(1), logs[0].OperatorAdminID)
	require.Equal(t, "card_operator", logs[0].Role)

	resp = decode(t, serve(r, http.MethodPut, "/admin/authz/admins/9999/roles", `{"roles":["card_operator"]}`))
	require.Equal(t, 404, resp.StatusCode)
	resp = decode(t, serve(r, http.MethodPut, "/admin/authz/admins/abc/roles", `{"roles":[]}`))
	require.Equal(t, 400, resp.StatusCode)
}
