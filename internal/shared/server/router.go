package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"talentranker/internal/documents"
	"talentranker/internal/ledger"
	"talentranker/internal/rankings"
	"talentranker/internal/services/health"
	"talentranker/internal/shared/config"
	"talentranker/internal/shared/metrics"
	"talentranker/internal/shared/server/middleware"
	"talentranker/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	Verifier        middleware.TokenVerifier
	RankingHandler  *rankings.Handler
	DocumentHandler *documents.Handler
	LedgerHandler   *ledger.Handler
	// RateLimiter meters ranking submissions; nil builds one from Config.RankingsPerMinute.
	RateLimiter *middleware.SubmissionLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.IsDevLike() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	healthHandler := func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)

	authed := api.Group("")
	authed.Use(middleware.Auth(middleware.AuthOptions{
		Verifier:       deps.Verifier,
		AllowDevHeader: cfg.IsDevLike(),
	}))

	if deps.RankingHandler != nil {
		limiter := deps.RateLimiter
		if limiter == nil {
			limiter = middleware.NewSubmissionLimiter(cfg.RankingsPerMinute, nil)
		}
		deps.RankingHandler.RegisterRoutes(authed, middleware.RankingsRateLimit(limiter))
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}
	if deps.LedgerHandler != nil {
		deps.LedgerHandler.RegisterRoutes(authed)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
