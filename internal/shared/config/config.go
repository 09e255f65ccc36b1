package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string

	DatabaseURL  string
	RedisURL     string
	PlanCacheTTL time.Duration

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	RankingQueueURL string

	WorkerConcurrency       int
	WorkerVisibilityTimeout time.Duration
	WorkerShutdownTimeout   time.Duration

	ScoringAPIURL            string
	ScoringTimeout           time.Duration
	ScoringMaxParallel       int
	ScoringRetryDelay        time.Duration
	ScoringOAuthClientID     string
	ScoringOAuthClientSecret string
	ScoringOAuthTokenURL     string

	ExtractMaxBytes int64
	ExtractTimeout  time.Duration

	ReservationMaxAge time.Duration
	ReaperInterval    time.Duration

	JWTSecret     string
	DefaultPlanID string

	RankingsPerMinute int
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"ENV":                         "dev",
	"LOG_LEVEL":                   "info",
	"CORS_ALLOW_ORIGINS":          "http://localhost:5173",
	"PLAN_CACHE_TTL":              "5m",
	"OBJECT_STORE":                "local",
	"LOCAL_STORE_DIR":             "./data",
	"AWS_REGION":                  "us-east-1",
	"WORKER_CONCURRENCY":          4,
	"WORKER_VISIBILITY_TIMEOUT":   "20m",
	"WORKER_SHUTDOWN_TIMEOUT":     "30s",
	"SCORING_API_URL":             "https://ahmadmahmood447.pythonanywhere.com/api",
	"SCORING_TIMEOUT":             "30s",
	"SCORING_MAX_PARALLEL":        4,
	"SCORING_RETRY_DELAY":         "300ms",
	"EXTRACT_MAX_BYTES":           10 << 20,
	"EXTRACT_TIMEOUT":             "20s",
	"RESERVATION_MAX_AGE":         "15m",
	"REAPER_INTERVAL":             "1m",
	"DEFAULT_PLAN_ID":             "freemium",
	"RATE_LIMIT_RANKINGS_PER_MIN": 30,
}

// Load reads configuration from the environment (and local .env files) with defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	return v
}

// FromViper maps a viper instance onto Config.
func FromViper(v *viper.Viper) Config {
	return Config{
		Port:            v.GetString("PORT"),
		Env:             normalizeEnv(v.GetString("ENV")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),

		DatabaseURL:  strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisURL:     strings.TrimSpace(v.GetString("REDIS_URL")),
		PlanCacheTTL: v.GetDuration("PLAN_CACHE_TTL"),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),

		RankingQueueURL: strings.TrimSpace(v.GetString("RANKING_QUEUE_URL")),

		WorkerConcurrency:       v.GetInt("WORKER_CONCURRENCY"),
		WorkerVisibilityTimeout: v.GetDuration("WORKER_VISIBILITY_TIMEOUT"),
		WorkerShutdownTimeout:   v.GetDuration("WORKER_SHUTDOWN_TIMEOUT"),

		ScoringAPIURL:            strings.TrimSpace(v.GetString("SCORING_API_URL")),
		ScoringTimeout:           v.GetDuration("SCORING_TIMEOUT"),
		ScoringMaxParallel:       v.GetInt("SCORING_MAX_PARALLEL"),
		ScoringRetryDelay:        v.GetDuration("SCORING_RETRY_DELAY"),
		ScoringOAuthClientID:     v.GetString("SCORING_OAUTH_CLIENT_ID"),
		ScoringOAuthClientSecret: v.GetString("SCORING_OAUTH_CLIENT_SECRET"),
		ScoringOAuthTokenURL:     v.GetString("SCORING_OAUTH_TOKEN_URL"),

		ExtractMaxBytes: v.GetInt64("EXTRACT_MAX_BYTES"),
		ExtractTimeout:  v.GetDuration("EXTRACT_TIMEOUT"),

		ReservationMaxAge: v.GetDuration("RESERVATION_MAX_AGE"),
		ReaperInterval:    v.GetDuration("REAPER_INTERVAL"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		DefaultPlanID: strings.TrimSpace(v.GetString("DEFAULT_PLAN_ID")),

		RankingsPerMinute: v.GetInt("RATE_LIMIT_RANKINGS_PER_MIN"),
	}
}

// Validate reports settings that are required outside dev.
func (c Config) Validate() error {
	if c.Env != "production" {
		return nil
	}
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether in-memory fallbacks are allowed.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
