package cvversions

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cvtailor-backend/internal/extract"
	"cvtailor-backend/internal/shared/server/middleware"
	"cvtailor-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler exposes CV artifacts over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches CV routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cvs/original", h.saveOriginal)
	rg.GET("/cvs/original", h.getOriginal)
	rg.GET("/cvs/tailored/:company", h.listTailored)
	rg.GET("/cvs/tailored/:company/latest", h.latestTailored)
}

func (h *Handler) saveOriginal(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	var content Content
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
			return
		}
		text, err := extract.Text(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error(), nil)
				return
			}
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", err.Error(), nil)
			return
		}
		content.PlainText = text
	} else {
		var req saveOriginalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		content = Content{Structured: req.Structured, PlainText: req.PlainText}
	}

	a, err := h.Svc.SaveOriginal(c.Request.Context(), userID, content)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(a))
}

func (h *Handler) getOriginal(c *gin.Context) {
	a, err := h.Svc.GetOriginal(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := toResponse(a)
	if c.Query("include_content") == "true" {
		content, err := h.Svc.Load(c.Request.Context(), a)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Structured = content.Structured
		resp.PlainText = content.PlainText
	}
	respond.OK(c, resp)
}

func (h *Handler) listTailored(c *gin.Context) {
	versions, err := h.Svc.ListTailored(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("company"))
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]ArtifactResponse, 0, len(versions))
	for _, a := range versions {
		items = append(items, toResponse(a))
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) latestTailored(c *gin.Context) {
	a, err := h.Svc.GetLatestTailored(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("company"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(a))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "cv not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to access cv", nil)
	}
}
