package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"talentranker/internal/shared/server/middleware"
	"talentranker/internal/shared/server/respond"
)

// Handler exposes listing and archival of stored job descriptions and resumes.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/job-descriptions", h.listJobDescriptions)
	rg.GET("/job-descriptions/:id", h.getJobDescription)
	rg.POST("/job-descriptions/:id/archive", h.archiveJobDescription)
	rg.GET("/resumes", h.listResumes)
	rg.POST("/resumes/:id/archive", h.archiveResume)
}

func (h *Handler) listJobDescriptions(c *gin.Context) {
	jds, err := h.Svc.ListJobDescriptions(c.Request.Context(), middleware.SubscriberIDFromContext(c), queryLimit(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list job descriptions", nil)
		return
	}
	if jds == nil {
		jds = []JobDescription{}
	}
	respond.OK(c, gin.H{"count": len(jds), "data": jds})
}

func (h *Handler) getJobDescription(c *gin.Context) {
	jd, err := h.Svc.GetJobDescription(c.Request.Context(), middleware.SubscriberIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "job description")
		return
	}
	respond.OK(c, jd)
}

func (h *Handler) archiveJobDescription(c *gin.Context) {
	if err := h.Svc.ArchiveJobDescription(c.Request.Context(), middleware.SubscriberIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "job description")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listResumes(c *gin.Context) {
	resumes, err := h.Svc.ListResumes(c.Request.Context(), middleware.SubscriberIDFromContext(c), queryLimit(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	if resumes == nil {
		resumes = []Resume{}
	}
	respond.OK(c, gin.H{"count": len(resumes), "data": resumes})
}

func (h *Handler) archiveResume(c *gin.Context) {
	if err := h.Svc.ArchiveResume(c.Request.Context(), middleware.SubscriberIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "resume")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", what+" not found", nil)
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load "+what, nil)
	}
}

func queryLimit(c *gin.Context) int {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	return limit
}
