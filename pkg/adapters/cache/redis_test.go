package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/linkstats/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
)

// unreachable returns a client pointed at a closed port with no retries.
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:       "localhost:1",
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNewClient_Fail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := NewClient(ctx, "localhost:1")
	assert.Error(t, err)
	assert.Nil(t, client)

	client, err = NewClient(ctx, "redis://localhost:1/0")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "http://localhost:6379")
	assert.Error(t, err)
}

func TestLinkCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	repo := memory.NewRepository()
	link := &domain.Link{ID: "id-1", Slug: "abc", TargetURL: "https://example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, link))

	c := NewLinkCache(repo, unreachable(t), 0, logger)
	assert.Equal(t, DefaultTTL, c.ttl)

	got, err := c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	got, err = c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	missing, err := c.GetBySlug(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, "cache", entry.Data["component"])
	}
}

func TestLinkCache_DeleteAndPassThrough(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	repo := memory.NewRepository()
	c := NewLinkCache(repo, unreachable(t), time.Minute, logger)

	link := &domain.Link{ID: "id-1", Slug: "abc", TargetURL: "https://example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, c.Create(ctx, link))
	assert.ErrorIs(t, c.Create(ctx, &domain.Link{ID: "id-2", Slug: "abc"}), domain.ErrSlugTaken)

	links, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	require.NoError(t, c.Delete(ctx, "id-1"))
	assert.ErrorIs(t, c.Delete(ctx, "id-1"), domain.ErrNotFound)

	got, err := c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "link:slug:abc", slugKey("abc"))
	assert.Equal(t, "link:id:42", idKey("42"))
}

// interceptRepo runs afterGet once, right after the wrapped GetByID returns.
type interceptRepo struct {
	*memory.Repository
	afterGet func()
}

func (r *interceptRepo) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	link, err := r.Repository.GetByID(ctx, id)
	if hook := r.afterGet; hook != nil {
		r.afterGet = nil
		hook()
	}
	return link, err
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewClient_Live(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	rdb, err = NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())
}

func TestLinkCache_HitServesFromRedis(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	mr, rdb := setupMiniredis(t)

	repo := memory.NewRepository()
	link := &domain.Link{ID: "id-1", Slug: "abc", TargetURL: "https://example.com", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, link))

	c := NewLinkCache(repo, rdb, time.Minute, logger)

	got, err := c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	// One lookup fills both keys.
	assert.True(t, mr.Exists(slugKey("abc")))
	assert.True(t, mr.Exists(idKey("id-1")))
	assert.Equal(t, time.Minute, mr.TTL(slugKey("abc")))
	assert.Equal(t, time.Minute, mr.TTL(idKey("id-1")))

	// Remove it from the store behind the cache's back: both keys still answer.
	require.NoError(t, repo.Delete(ctx, "id-1"))

	got, err = c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, link.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, link.TargetURL, got.TargetURL)

	got, err = c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Slug)

	// Entries expire with the TTL.
	mr.FastForward(2 * time.Minute)
	got, err = c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLinkCache_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	mr, rdb := setupMiniredis(t)

	repo := memory.NewRepository()
	c := NewLinkCache(repo, rdb, time.Minute, logger)

	got, err := c.GetBySlug(ctx, "later")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(slugKey("later")))
	assert.Empty(t, mr.Keys())

	require.NoError(t, repo.Create(ctx, &domain.Link{ID: "id-2", Slug: "later", TargetURL: "https://example.com"}))

	got, err = c.GetBySlug(ctx, "later")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-2", got.ID)
}

func TestLinkCache_DeleteInvalidatesBothKeys(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	mr, rdb := setupMiniredis(t)

	repo := memory.NewRepository()
	require.NoError(t, repo.Create(ctx, &domain.Link{ID: "id-1", Slug: "abc", TargetURL: "https://example.com"}))
	c := NewLinkCache(repo, rdb, time.Minute, logger)

	_, err := c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, mr.Exists(slugKey("abc")))

	require.NoError(t, c.Delete(ctx, "id-1"))
	assert.False(t, mr.Exists(slugKey("abc")))
	assert.False(t, mr.Exists(idKey("id-1")))
	assert.True(t, mr.Exists(deletedKey("id-1")))

	got, err := c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The slug can be reused by a new link, which caches normally.
	require.NoError(t, c.Create(ctx, &domain.Link{ID: "id-9", Slug: "abc", TargetURL: "https://example.org"}))
	got, err = c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-9", got.ID)
	assert.True(t, mr.Exists(idKey("id-9")))
}

func TestLinkCache_DeleteDuringLookupDoesNotRefill(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	mr, rdb := setupMiniredis(t)

	repo := &interceptRepo{Repository: memory.NewRepository()}
	require.NoError(t, repo.Create(ctx, &domain.Link{ID: "id-1", Slug: "abc", TargetURL: "https://example.com"}))
	c := NewLinkCache(repo, rdb, time.Minute, logger)

	// The lookup has read the link from the store when the delete lands.
	repo.afterGet = func() {
		require.NoError(t, c.Delete(ctx, "id-1"))
	}

	got, err := c.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists(idKey("id-1")))
	assert.False(t, mr.Exists(slugKey("abc")))

	got, err = c.GetBySlug(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}
