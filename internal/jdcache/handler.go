package jdcache

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/server/respond"
)

// Handler exposes cache inspection and eviction.
type Handler struct {
	Cache *Cache
}

// NewHandler constructs a Handler.
func NewHandler(cache *Cache) *Handler {
	return &Handler{Cache: cache}
}

// RegisterRoutes attaches JD cache routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jd-cache", h.stats)
	rg.DELETE("/jd-cache", h.invalidate)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Cache.Stats(c.Request.Context(), middleware.UserIDFromContext(c), c.Query("company"), c.Query("jd_url"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, st)
}

func (h *Handler) invalidate(c *gin.Context) {
	if err := h.Cache.Invalidate(c.Request.Context(), middleware.UserIDFromContext(c), c.Query("company"), c.Query("jd_url")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidKey) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "company and jd_url are required", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "jd cache unavailable", nil)
}
