package jdcache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newHandlerRouter(cache *Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group("/api/v1", func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(cache).RegisterRoutes(rg)
	return r
}

func TestHandlerStatsAndInvalidate(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	if _, err := cache.Store(context.Background(), "user-1", "Acme", "https://jobs.acme.com/1", json.RawMessage(`{"skills":["go"]}`)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	r := newHandlerRouter(cache)
	q := "?" + url.Values{"company": {"acme"}, "jd_url": {"https://jobs.acme.com/1/"}}.Encode()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/jd-cache"+q, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.Code)
	}
	var st Stats
	if err := json.Unmarshal(resp.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.HasCache || !st.CacheValid || st.UseCount != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/jd-cache"+q, nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.Code)
	}

	if _, hit, err := cache.Lookup(context.Background(), "user-1", "acme", "https://jobs.acme.com/1"); err != nil || hit {
		t.Fatalf("expected miss after delete, hit=%v err=%v", hit, err)
	}
}

func TestHandlerRequiresCompany(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	r := newHandlerRouter(cache)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/jd-cache?jd_url=https://x.com/1", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
