package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"talentranker/internal/shared/auth"
)

func newAuthRouter(t *testing.T, opts AuthOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(opts))
	router.GET("/api/v1/usage", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subscriberId": SubscriberIDFromContext(c)})
	})
	router.OPTIONS("/api/v1/rankings", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter(t, AuthOptions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/rankings", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthAcceptsValidBearer(t *testing.T) {
	verifier, err := auth.NewVerifier("test-secret", "dev")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := verifier.Sign("sub-42", auth.Claims{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	router := newAuthRouter(t, AuthOptions{Verifier: verifier})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Body.String(); got != `{"subscriberId":"sub-42"}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	verifier, _ := auth.NewVerifier("test-secret", "dev")
	router := newAuthRouter(t, AuthOptions{Verifier: verifier})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthDevHeader(t *testing.T) {
	router := newAuthRouter(t, AuthOptions{AllowDevHeader: true})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil)
	req.Header.Set("X-Subscriber-Id", "dev-sub")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	strict := newAuthRouter(t, AuthOptions{})
	resp = httptest.NewRecorder()
	strict.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without dev header support, got %d", resp.Code)
	}
}

func TestAuthSkipsPublicPrefixes(t *testing.T) {
	router := newAuthRouter(t, AuthOptions{Public: []string{"/health"}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
