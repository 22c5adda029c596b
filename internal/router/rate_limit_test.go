package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	handlershared "github.com/tapbio-next/internal/http/handlers/shared"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newRateLimitRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func performRateLimited(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		return w.Code
	}
	return resp.StatusCode
}

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"account":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("account")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByCardParamAndUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "card_id", Value: " Card-AB12 "}}
	if got := KeyByCardParam(c); got != "card|card-ab12" {
		t.Fatalf("card key want card|card-ab12 got %s", got)
	}
	if got := KeyByUser(c); got != "" {
		t.Fatalf("user key without login should be empty, got %s", got)
	}
	c.Set("user_id", uint(42))
	if got := KeyByUser(c); got != "user|42" {
		t.Fatalf("user key want user|42 got %s", got)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := newRateLimitRedis(t)

	r := gin.New()
	r.POST("/cards/:card_id/claim",
		RateLimitMiddleware(client, RateLimitRule{Prefix: "test:rate:claim", WindowSeconds: 60, MaxRequests: 2, MessageKey: "error.claim_too_many"}, KeyByCardParam),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) },
	)

	for i := 0; i < 2; i++ {
		if code := performRateLimited(r, "/cards/abc/claim"); code != 0 {
			t.Fatalf("attempt %d should pass, got %d", i+1, code)
		}
	}
	if code := performRateLimited(r, "/cards/abc/claim"); code != 429 {
		t.Fatalf("third attempt want 429 got %d", code)
	}
	if code := performRateLimited(r, "/cards/other/claim"); code != 0 {
		t.Fatalf("other card should not share the budget, got %d", code)
	}

	mr.FastForward(61 * time.Second)
	if code := performRateLimited(r, "/cards/abc/claim"); code != 0 {
		t.Fatalf("window reset should pass, got %d", code)
	}
}

func TestRateLimitMiddlewareBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := newRateLimitRedis(t)

	r := gin.New()
	r.POST("/login",
		RateLimitMiddleware(client, RateLimitRule{Prefix: "test:rate:login", WindowSeconds: 10, MaxRequests: 1, BlockSeconds: 300}, KeyByIP),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) },
	)

	if code := performRateLimited(r, "/login"); code != 0 {
		t.Fatalf("first attempt should pass, got %d", code)
	}
	if code := performRateLimited(r, "/login"); code != 429 {
		t.Fatalf("second attempt want 429 got %d", code)
	}
	if !mr.Exists("test:rate:login:10.0.0.1:blocked") {
		t.Fatalf("block key should be set")
	}

	// 窗口已过但封禁仍在
	mr.FastForward(20 * time.Second)
	if code := performRateLimited(r, "/login"); code != 429 {
		t.Fatalf("blocked attempt want 429 got %d", code)
	}

	mr.FastForward(300 * time.Second)
	if code := performRateLimited(r, "/login"); code != 0 {
		t.Fatalf("attempt after block should pass, got %d", code)
	}
}

func TestRateLimitFailuresMiddlewareCountsOnlyFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := newRateLimitRedis(t)

	rule := RateLimitRule{Prefix: "test:rate:claim_card", WindowSeconds: 60, MaxRequests: 2, BlockSeconds: 120, MessageKey: "error.claim_too_many"}
	r := gin.New()
	r.POST("/cards/:card_id/claim",
		RateLimitFailuresMiddleware(client, rule, KeyByCardParam),
		func(c *gin.Context) {
			if c.Query("fail") == "1" {
				handlershared.MarkAttemptFailed(c)
				c.JSON(http.StatusOK, gin.H{"status_code": 400})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status_code": 0})
		},
	)

	for i := 0; i < 5; i++ {
		if code := performRateLimited(r, "/cards/abc/claim"); code != 0 {
			t.Fatalf("successful attempt %d should not be limited, got %d", i+1, code)
		}
	}
	for i := 0; i < 3; i++ {
		if code := performRateLimited(r, "/cards/abc/claim?fail=1"); code != 400 {
			t.Fatalf("failed attempt %d should reach the handler, got %d", i+1, code)
		}
	}
	if !mr.Exists("test:rate:claim_card:card|abc:blocked") {
		t.Fatalf("expected block key after exceeding failures, keys=%v", mr.Keys())
	}
	if code := performRateLimited(r, "/cards/abc/claim"); code != 429 {
		t.Fatalf("blocked card want 429 got %d", code)
	}
	if code := performRateLimited(r, "/cards/other/claim?fail=1"); code != 400 {
		t.Fatalf("other card should not be blocked, got %d", code)
	}

	mr.FastForward(121 * time.Second)
	if code := performRateLimited(r, "/cards/abc/claim"); code != 0 {
		t.Fatalf("block expiry should pass, got %d", code)
	}
}

func TestRateLimitMiddlewareRedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := newRateLimitRedis(t)
	mr.Close()

	r := gin.New()
	r.POST("/login",
		RateLimitMiddleware(client, RateLimitRule{WindowSeconds: 10, MaxRequests: 1}, KeyByIP),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) },
	)
	if code := performRateLimited(r, "/login"); code != 503 {
		t.Fatalf("redis failure want 503 got %d", code)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
