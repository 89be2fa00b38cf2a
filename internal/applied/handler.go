package applied

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/server/respond"
)

// Handler exposes applied flags over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches application routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications", h.list)
	rg.GET("/applications/:company/:jobId", h.get)
	rg.PUT("/applications/:company/:jobId", h.set)
}

type setRequest struct {
	Applied *bool `json:"applied"`
}

func (h *Handler) set(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Applied == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "applied is required", nil)
		return
	}
	f, err := h.Svc.Set(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("company"), c.Param("jobId"), *req.Applied)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, f)
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("company"), c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, f)
}

func (h *Handler) list(c *gin.Context) {
	flags, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": flags})
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrInvalidInput) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "company and job id are required", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to access applications", nil)
}
