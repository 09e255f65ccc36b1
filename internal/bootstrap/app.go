package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"talentranker/internal/documents"
	"talentranker/internal/extract"
	"talentranker/internal/ledger"
	"talentranker/internal/plans"
	"talentranker/internal/queue"
	"talentranker/internal/rankings"
	"talentranker/internal/scoring"
	"talentranker/internal/services/health"
	"talentranker/internal/shared/auth"
	"talentranker/internal/shared/config"
	"talentranker/internal/shared/server"
	"talentranker/internal/shared/server/middleware"
	"talentranker/internal/shared/storage/cache"
	"talentranker/internal/shared/storage/db"
	"talentranker/internal/shared/storage/object"
	localstore "talentranker/internal/shared/storage/object/local"
	s3store "talentranker/internal/shared/storage/object/s3"
	"talentranker/internal/shared/telemetry"
	"talentranker/internal/subscribers"
	"talentranker/internal/workerproc"
)

// Role selects which pool sizing and side effects Build applies.
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	Queue  queue.Client

	PlansRepo       plans.Repo
	SubscribersSvc  *subscribers.Service
	LedgerSvc       *ledger.Service
	DocumentsSvc    *documents.Service
	RankingsSvc     *rankings.Service
	Health          *health.Service
	Verifier        *auth.Verifier
	RankingHandler  *rankings.Handler
	DocumentHandler *documents.Handler
	LedgerHandler   *ledger.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("postgres", sqlDB.PingContext)
	}

	app.Redis = buildRedis(ctx, cfg)
	if app.Redis != nil {
		client := app.Redis
		app.Health.Register("redis", func(ctx context.Context) error { return cache.Ping(ctx, client) })
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}
	app.Verifier = verifier

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	if role == RoleAPI {
		if err := buildQueue(ctx, app); err != nil {
			return nil, err
		}
		app.RankingsSvc.Queue = app.Queue
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          app.Health,
		Verifier:        app.Verifier,
		RankingHandler:  app.RankingHandler,
		DocumentHandler: app.DocumentHandler,
		LedgerHandler:   app.LedgerHandler,
		RateLimiter:     middleware.NewSubmissionLimiter(cfg.RankingsPerMinute, nil),
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	defaults := db.DefaultServerOptions()
	if role == RoleWorker {
		defaults = db.DefaultWorkerOptions()
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildRedis returns nil when Redis is unset or unreachable; the plan cache is optional.
func buildRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		telemetry.Warn("bootstrap.redis.disabled", map[string]any{"error": err})
		return nil
	}
	return client
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	var (
		planRepo   plans.Repo
		subRepo    subscribers.Repo
		ledgerRepo ledger.Store
		docRepo    documents.Repo
		rankRepo   rankings.Repo
	)
	if app.DB != nil {
		planRepo = &plans.PGRepo{DB: app.DB}
		subRepo = &subscribers.PGRepo{DB: app.DB}
		ledgerRepo = ledger.NewPGStore(app.DB)
		docRepo = &documents.PGRepo{DB: app.DB}
		rankRepo = &rankings.PGRepo{DB: app.DB}
	} else {
		memPlans, err := plans.NewMemoryRepo(plans.DefaultCatalog()...)
		if err != nil {
			return err
		}
		planRepo = memPlans
		subRepo = subscribers.NewMemoryRepo()
		ledgerRepo = ledger.NewMemoryStore()
		docRepo = documents.NewMemoryRepo()
		rankRepo = rankings.NewMemoryRepo()
	}
	planRepo = plans.NewCachedRepo(planRepo, app.Redis, cfg.PlanCacheTTL)

	scorer, err := buildScorer(ctx, cfg)
	if err != nil {
		return err
	}

	subSvc := subscribers.NewService(subRepo, planRepo, cfg.DefaultPlanID)
	ledgerSvc := ledger.NewService(ledgerRepo, subSvc, cfg.ReservationMaxAge)
	docSvc := documents.NewService(docRepo, app.Store)
	rankSvc := &rankings.Service{
		Repo:         rankRepo,
		Ledger:       ledgerSvc,
		Documents:    docSvc,
		Extractor:    extract.New(cfg.ExtractMaxBytes, cfg.ExtractTimeout),
		Scorer:       scorer,
		MaxParallel:  cfg.ScoringMaxParallel,
		ScoreTimeout: cfg.ScoringTimeout,
	}

	app.PlansRepo = planRepo
	app.SubscribersSvc = subSvc
	app.LedgerSvc = ledgerSvc
	app.DocumentsSvc = docSvc
	app.RankingsSvc = rankSvc
	app.RankingHandler = rankings.NewHandler(rankSvc, subSvc, cfg.ExtractMaxBytes)
	app.DocumentHandler = documents.NewHandler(docSvc)
	app.LedgerHandler = ledger.NewHandler(ledgerSvc, subSvc)
	return nil
}

func buildScorer(ctx context.Context, cfg config.Config) (scoring.Client, error) {
	if cfg.ScoringAPIURL == "" {
		telemetry.Warn("bootstrap.scoring.disabled", map[string]any{"reason": "SCORING_API_URL empty"})
		return nil, nil
	}
	client, err := scoring.NewHTTPClient(ctx, cfg.ScoringAPIURL, cfg.ScoringTimeout, scoring.OAuthConfig{
		ClientID:     cfg.ScoringOAuthClientID,
		ClientSecret: cfg.ScoringOAuthClientSecret,
		TokenURL:     cfg.ScoringOAuthTokenURL,
	})
	if err != nil {
		return nil, err
	}
	return scoring.WithRetry(client, cfg.ScoringRetryDelay), nil
}

// buildQueue prefers SQS. Dev without a queue runs async rankings in-process.
func buildQueue(ctx context.Context, app *App) error {
	cfg := app.Config
	if cfg.RankingQueueURL != "" {
		client, err := queue.NewSQSClient(ctx, cfg.RankingQueueURL, cfg.AWSRegion)
		if err != nil {
			return err
		}
		app.Queue = client
		return nil
	}
	if !cfg.IsDevLike() {
		return nil
	}
	svc := app.RankingsSvc
	app.Queue = &queue.LocalClient{Handle: func(ctx context.Context, msg queue.Message) error {
		return workerproc.HandleMessage(ctx, svc, msg)
	}}
	return nil
}
