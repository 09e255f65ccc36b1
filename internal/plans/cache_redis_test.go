package plans

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	Repo
	gets atomic.Int32
}

func (r *countingRepo) Get(ctx context.Context, id string) (Plan, error) {
	r.gets.Add(1)
	return r.Repo.Get(ctx, id)
}

func newCachedFixture(t *testing.T) (*miniredis.Miniredis, *countingRepo, Repo) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem, err := NewMemoryRepo(DefaultCatalog()...)
	require.NoError(t, err)
	counting := &countingRepo{Repo: mem}
	return srv, counting, NewCachedRepo(counting, client, time.Minute)
}

func TestCachedRepoReadsThrough(t *testing.T) {
	srv, counting, repo := newCachedFixture(t)
	ctx := context.Background()

	first, err := repo.Get(ctx, "starter-intl-monthly")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "starter-intl-monthly")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), counting.gets.Load())
	assert.True(t, srv.Exists("plan:starter-intl-monthly"))
	assert.Equal(t, time.Minute, srv.TTL("plan:starter-intl-monthly"))
}

func TestCachedRepoFallsBackWhenRedisDown(t *testing.T) {
	srv, counting, repo := newCachedFixture(t)
	srv.Close()

	p, err := repo.Get(context.Background(), "freemium")
	require.NoError(t, err)
	assert.Equal(t, "Freemium", p.Name)
	assert.Equal(t, int32(1), counting.gets.Load())
}

func TestCachedRepoDoesNotCacheMisses(t *testing.T) {
	srv, _, repo := newCachedFixture(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, srv.Exists("plan:missing"))
}

func TestNewCachedRepoWithoutClientReturnsNext(t *testing.T) {
	mem, err := NewMemoryRepo()
	require.NoError(t, err)
	assert.Same(t, mem, NewCachedRepo(mem, nil, time.Minute))
}
