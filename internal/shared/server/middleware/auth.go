package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"talentranker/internal/shared/auth"
	"talentranker/internal/shared/server/respond"
)

const (
	subscriberIDKey    = "userId"
	subscriberEmailKey = "userEmail"

	devSubscriberHeader = "X-Subscriber-Id"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthOptions configures Auth.
type AuthOptions struct {
	Verifier TokenVerifier
	// AllowDevHeader accepts X-Subscriber-Id without a token. Only enabled in dev.
	AllowDevHeader bool
	// Public lists path prefixes that skip authentication.
	Public []string
}

// Auth validates bearer tokens and stores the subscriber identity in context.
func Auth(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range opts.Public {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") || opts.Verifier == nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			claims, err := opts.Verifier.Verify(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			c.Set(subscriberIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(subscriberEmailKey, claims.Email)
			}
			c.Next()
			return
		}

		if opts.AllowDevHeader {
			if id := strings.TrimSpace(c.GetHeader(devSubscriberHeader)); id != "" {
				c.Set(subscriberIDKey, id)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// SubscriberIDFromContext fetches the subscriber ID set by the auth middleware.
func SubscriberIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(subscriberIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SubscriberEmailFromContext fetches the email claim, if any.
func SubscriberEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(subscriberEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}
