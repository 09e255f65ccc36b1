package rankings

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"talentranker/internal/extract"
	"talentranker/internal/ledger"
	"talentranker/internal/plans"
	"talentranker/internal/shared/server/middleware"
	"talentranker/internal/shared/server/respond"
)

var validate = validator.New()

// Handler wires HTTP handlers to the ranking orchestrator.
type Handler struct {
	Svc            *Service
	Subscribers    ledger.SubscriberEnsurer
	MaxUploadBytes int64
}

func NewHandler(svc *Service, subs ledger.SubscriberEnsurer, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = extract.DefaultMaxBytes
	}
	return &Handler{Svc: svc, Subscribers: subs, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches ranking routes. submit runs in front of POST /rankings only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, submit ...gin.HandlerFunc) {
	rg.POST("/rankings", append(submit, h.create)...)
	rg.GET("/rankings", h.list)
	rg.GET("/rankings/:id", h.get)
	rg.DELETE("/rankings/:id", h.delete)
}

type createRequest struct {
	JobDescriptionID   string   `json:"jobDescriptionId" validate:"omitempty,uuid"`
	JobTitle           string   `json:"jobTitle" validate:"max=200"`
	JobDescriptionText string   `json:"jobDescriptionText" validate:"max=200000"`
	ResumeIDs          []string `json:"resumeIds" validate:"max=200,dive,uuid"`
	ResumeTexts        []string `json:"resumeTexts" validate:"max=200"`
}

func (h *Handler) create(c *gin.Context) {
	subscriberID := middleware.SubscriberIDFromContext(c)
	if subscriberID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if _, err := h.Subscribers.Ensure(ctx, subscriberID, middleware.SubscriberEmailFromContext(c)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load subscriber", nil)
		return
	}

	var (
		req Request
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = h.parseMultipart(c)
	} else {
		req, err = parseJSON(c)
	}
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	req.SubscriberID = subscriberID
	req.Async = strings.EqualFold(c.Query("mode"), "async")

	rec, err := h.Svc.Submit(ctx, req)
	if rec.ID != "" {
		c.Set(middleware.RankingIDKey, rec.ID)
		c.Set(middleware.StatusTransitionKey, "received->"+string(rec.Status))
	}
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if rec.Status == StatusProcessing {
		status = http.StatusAccepted
	}
	respond.JSON(c, status, gin.H{
		"status":        rec.Status,
		"rankingRecord": rec,
	})
}

func parseJSON(c *gin.Context) (Request, error) {
	var body createRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return Request{}, errors.New("invalid JSON body")
	}
	if err := validate.Struct(body); err != nil {
		return Request{}, errors.New("invalid ranking request: " + err.Error())
	}
	return Request{
		JobDescriptionID:   body.JobDescriptionID,
		JobTitle:           body.JobTitle,
		JobDescriptionText: body.JobDescriptionText,
		ResumeIDs:          body.ResumeIDs,
		ResumeTexts:        body.ResumeTexts,
	}, nil
}

func (h *Handler) parseMultipart(c *gin.Context) (Request, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return Request{}, errors.New("invalid multipart form")
	}
	req := Request{
		JobDescriptionID:   firstValue(form, "jobDescriptionId"),
		JobTitle:           firstValue(form, "jobTitle"),
		JobDescriptionText: firstValue(form, "jobDescriptionText"),
		ResumeTexts:        form.Value["resumeTexts"],
	}
	for _, raw := range form.Value["resumeIds"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.ResumeIDs = append(req.ResumeIDs, id)
			}
		}
	}

	jdFiles := filesFor(form, "jobDescriptionFile", "jd")
	if len(jdFiles) > 1 {
		return Request{}, errors.New("only one job description file is allowed")
	}
	if len(jdFiles) == 1 {
		up, err := h.readUpload(jdFiles[0])
		if err != nil {
			return Request{}, err
		}
		req.JobDescriptionFile = &up
	}
	for _, fh := range filesFor(form, "resumeFiles", "cvs") {
		up, err := h.readUpload(fh)
		if err != nil {
			return Request{}, err
		}
		req.ResumeFiles = append(req.ResumeFiles, up)
	}

	check := createRequest{
		JobDescriptionID: req.JobDescriptionID,
		JobTitle:         req.JobTitle,
		ResumeIDs:        req.ResumeIDs,
		ResumeTexts:      req.ResumeTexts,
	}
	if err := validate.Struct(check); err != nil {
		return Request{}, errors.New("invalid ranking request: " + err.Error())
	}
	return req, nil
}

// readUpload reads at most one byte past the ceiling so oversize files still fail extraction.
func (h *Handler) readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, errors.New("failed to read " + fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.MaxUploadBytes+1))
	if err != nil {
		return Upload{}, errors.New("failed to read " + fh.Filename)
	}
	return Upload{Filename: fh.Filename, MediaType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func (h *Handler) list(c *gin.Context) {
	subscriberID := middleware.SubscriberIDFromContext(c)
	if subscriberID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	recs, err := h.Svc.List(c.Request.Context(), subscriberID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list rankings", nil)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	respond.OK(c, recs)
}

func (h *Handler) get(c *gin.Context) {
	subscriberID := middleware.SubscriberIDFromContext(c)
	if subscriberID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	rec, err := h.Svc.Get(c.Request.Context(), subscriberID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "ranking not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch ranking", nil)
		return
	}
	c.Set(middleware.RankingIDKey, rec.ID)
	respond.OK(c, rec)
}

func (h *Handler) delete(c *gin.Context) {
	subscriberID := middleware.SubscriberIDFromContext(c)
	if subscriberID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), subscriberID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "ranking not found", nil)
		case errors.Is(err, ErrStillProcessing):
			respond.Error(c, http.StatusConflict, "conflict", "ranking is still processing", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete ranking", nil)
		}
		return
	}
	c.Set(middleware.RankingIDKey, id)
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	var (
		invalidErr *InvalidRequestError
		quotaErr   *ledger.QuotaExceededError
		extractErr *ExtractionError
		persistErr *PersistenceError
	)
	switch {
	case errors.As(err, &invalidErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", invalidErr.Message, nil)
	case errors.As(err, &quotaErr):
		ledger.WriteQuotaExceeded(c, quotaErr)
	case errors.Is(err, plans.ErrNoActivePlan):
		ledger.WriteNoActivePlan(c)
	case errors.Is(err, ErrJobDescriptionNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Job description not found", nil)
	case errors.Is(err, ErrNoResumesFound):
		respond.Error(c, http.StatusNotFound, "not_found", "No valid resumes found", nil)
	case errors.As(err, &extractErr):
		respond.Error(c, http.StatusBadRequest, "extraction_failed", extractErr.Error(), nil)
	case errors.As(err, &persistErr) && persistErr.RecordID != "":
		respond.Error(c, http.StatusInternalServerError, "ranking_failed", "Ranking failed", gin.H{"recordId": persistErr.RecordID})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to rank resumes", nil)
	}
}

func firstValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

func filesFor(form *multipart.Form, keys ...string) []*multipart.FileHeader {
	var out []*multipart.FileHeader
	for _, key := range keys {
		out = append(out, form.File[key]...)
	}
	return out
}
