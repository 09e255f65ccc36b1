package ledger

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"talentranker/internal/plans"
	"talentranker/internal/shared/server/middleware"
	"talentranker/internal/shared/server/respond"
	"talentranker/internal/subscribers"
)

// SubscriberEnsurer provisions subscribers on first contact.
type SubscriberEnsurer interface {
	Ensure(ctx context.Context, id, email string) (subscribers.Subscriber, error)
}

type Handler struct {
	Svc         *Service
	Subscribers SubscriberEnsurer
}

func NewHandler(svc *Service, subs SubscriberEnsurer) *Handler {
	return &Handler{Svc: svc, Subscribers: subs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.usage)
}

func (h *Handler) usage(c *gin.Context) {
	if h.Svc == nil || h.Subscribers == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	subscriberID := middleware.SubscriberIDFromContext(c)
	if subscriberID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Subscribers.Ensure(ctx, subscriberID, middleware.SubscriberEmailFromContext(c)); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load subscriber", nil)
		return
	}
	summary, err := h.Svc.Summary(ctx, subscriberID)
	if err != nil {
		if errors.Is(err, plans.ErrNoActivePlan) {
			WriteNoActivePlan(c)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load usage", nil)
		return
	}
	respond.OK(c, summary)
}

// WriteQuotaExceeded sends the flat 403 body for a rejected reservation.
func WriteQuotaExceeded(c *gin.Context, err *QuotaExceededError) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"kind":      "QuotaExceeded",
		"dimension": string(err.Dimension),
		"limit":     err.Limit,
		"current":   err.Current,
		"requested": err.Requested,
		"message":   err.Error(),
	})
}

// WriteNoActivePlan sends the 403 body for subscribers without an active plan.
func WriteNoActivePlan(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"kind":    "NoActivePlan",
		"message": "No active plan",
	})
}
