package plans

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"talentranker/internal/shared/telemetry"
)

const cacheKeyPrefix = "plan:"

// CachedRepo is a read-through Redis cache in front of another Repo.
// Cache failures degrade to the underlying repo.
type CachedRepo struct {
	Next   Repo
	Client *redis.Client
	TTL    time.Duration
}

// NewCachedRepo wraps next. A nil client disables caching.
func NewCachedRepo(next Repo, client *redis.Client, ttl time.Duration) Repo {
	if client == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepo{Next: next, Client: client, TTL: ttl}
}

func (r *CachedRepo) Get(ctx context.Context, id string) (Plan, error) {
	key := cacheKeyPrefix + id
	if raw, err := r.Client.Get(ctx, key).Bytes(); err == nil {
		var p Plan
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		telemetry.Warn("plans.cache.decode_failed", map[string]any{"plan_id": id})
	} else if !errors.Is(err, redis.Nil) {
		telemetry.Warn("plans.cache.get_failed", map[string]any{"plan_id": id, "error": err})
	}

	p, err := r.Next.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := r.Client.Set(ctx, key, data, r.TTL).Err(); err != nil {
			telemetry.Warn("plans.cache.set_failed", map[string]any{"plan_id": id, "error": err})
		}
	}
	return p, nil
}

func (r *CachedRepo) List(ctx context.Context) ([]Plan, error) {
	return r.Next.List(ctx)
}
