package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

const DefaultTTL = 10 * time.Minute

// NewClient accepts either a redis:// URL or a bare host:port and checks the
// connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// LinkCache serves link lookups from Redis before falling back to the wrapped
// repository. Links are immutable, so only Delete has to invalidate; it also
// leaves a tombstone so an in-flight lookup cannot refill a deleted link.
// Redis failures are logged and never surface to callers.
type LinkCache struct {
	ports.LinkRepository
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewLinkCache(next ports.LinkRepository, rdb *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *LinkCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LinkCache{
		LinkRepository: next,
		rdb:            rdb,
		ttl:            ttl,
		log:            logger.WithField("component", "cache"),
	}
}

var errDeleted = errors.New("link deleted")

func slugKey(slug string) string  { return "link:slug:" + slug }
func idKey(id string) string      { return "link:id:" + id }
func deletedKey(id string) string { return "link:deleted:" + id }

func (c *LinkCache) GetBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return c.readThrough(ctx, slugKey(slug), func() (*domain.Link, error) {
		return c.LinkRepository.GetBySlug(ctx, slug)
	})
}

func (c *LinkCache) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	return c.readThrough(ctx, idKey(id), func() (*domain.Link, error) {
		return c.LinkRepository.GetByID(ctx, id)
	})
}

func (c *LinkCache) Delete(ctx context.Context, id string) error {
	link, err := c.LinkRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.LinkRepository.Delete(ctx, id); err != nil {
		return err
	}

	keys := []string{idKey(id)}
	if link != nil {
		keys = append(keys, slugKey(link.Slug))
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, deletedKey(id), 1, c.ttl)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("id", id).Warn("Cache invalidation failed")
	}
	return nil
}

func (c *LinkCache) readThrough(ctx context.Context, key string, load func() (*domain.Link, error)) (*domain.Link, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var link domain.Link
		if jsonErr := json.Unmarshal(val, &link); jsonErr == nil {
			return &link, nil
		}
		c.log.WithField("key", key).Warn("Discarding unreadable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("key", key).Debug("Cache lookup failed")
	}

	link, err := load()
	if err != nil || link == nil {
		// Misses are not cached so a link created later is found at once.
		return link, err
	}

	err = c.fill(ctx, link)
	switch {
	case err == nil:
	case errors.Is(err, errDeleted), errors.Is(err, redis.TxFailedErr):
		// Deleted while it was being loaded.
		c.log.WithField("id", link.ID).Debug("Skipping cache fill for deleted link")
		return nil, nil
	default:
		c.log.WithError(err).WithField("key", key).Debug("Cache fill failed")
	}
	return link, nil
}

// fill stores link under both keys unless its tombstone exists or appears
// before the transaction commits.
func (c *LinkCache) fill(ctx context.Context, link *domain.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	tombstone := deletedKey(link.ID)
	return c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, tombstone).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errDeleted
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, slugKey(link.Slug), data, c.ttl)
			pipe.Set(ctx, idKey(link.ID), data, c.ttl)
			return nil
		})
		return err
	}, tombstone)
}

var _ ports.LinkRepository = (*LinkCache)(nil)
