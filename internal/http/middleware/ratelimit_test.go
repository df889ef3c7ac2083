package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

func TestRateLimiterIsPerTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(logger.Nop(), 0.001, 2)
	tenantA, tenantB := uuid.New(), uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		id, _ := uuid.Parse(c.GetHeader("X-Tenant"))
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{TenantID: id}))
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(tenant uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/ping", nil)
		req.Header.Set("X-Tenant", tenant.String())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(tenantA); rec.Code != http.StatusOK {
			t.Fatalf("request %d within burst: %d", i, rec.Code)
		}
	}
	rec := do(tenantA)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("want 429 with Retry-After, got %d", rec.Code)
	}
	if rec := do(tenantB); rec.Code != http.StatusOK {
		t.Fatalf("other tenant throttled: %d", rec.Code)
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(logger.Nop(), 10, 10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.limiter("tenant:a")
	rl.now = func() time.Time { return base.Add(11 * time.Minute) }
	rl.limiter("tenant:b")
	if n := rl.Prune(); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok := rl.limiters["tenant:b"]; !ok {
		t.Fatalf("recent bucket pruned")
	}
}
