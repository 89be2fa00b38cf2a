package analysis

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/server/respond"
	"cvtailor-backend/internal/shared/telemetry"
)

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes. analyzeMW runs only in front of
// the analysis endpoint (rate limiting).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, analyzeMW ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, analyzeMW...), h.analyze)
	rg.POST("/context-aware-analysis", handlers...)
	rg.GET("/cv-context/:company", h.context)
}

// actionableError is the flat envelope for user-actionable failures.
type actionableError struct {
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, actionableError{
			ErrorType: ErrorTypeInvalidRequest,
			Error:     "invalid JSON body",
		})
		return
	}
	req.UserID = middleware.UserIDFromContext(c)

	result, err := h.Svc.Analyze(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) context(c *gin.Context) {
	isRerun := false
	if raw := c.Query("is_rerun"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, actionableError{
				ErrorType: ErrorTypeInvalidRequest,
				Error:     "is_rerun must be a boolean",
			})
			return
		}
		isRerun = parsed
	}

	view, err := h.Svc.Context(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("company"), c.Query("jd_url"), isRerun)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil {
		telemetry.Info("analysis.client_gone", map[string]any{
			"request_id": c.GetString("requestId"),
		})
		c.Abort()
		return
	}
	kind := ErrorType(err)
	if kind == "" {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis failed", nil)
		return
	}
	status := http.StatusBadRequest
	if kind == ErrorTypeCVNotFound || kind == ErrorTypeTailoredCVNotFound {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, actionableError{ErrorType: kind, Error: err.Error()})
}
