package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/mmynk/grouporder/internal/models"
)

// generationTTL bounds how long a group's write generation is remembered.
// It must outlive any backend read that could race a write.
const generationTTL = 24 * time.Hour

// errStaleRead aborts a cache fill whose read predates a write.
var errStaleRead = errors.New("group changed while reading")

// Cache wraps a Backend with a Redis read-through cache for GetGroup.
// Writes go to the base backend, then bump the group's generation and evict
// the cached document. A fill is only written if the generation it observed
// before reading the backend is still current, so a slow read can never put
// back a document older than a completed write.
type Cache struct {
	base  Backend
	redis *redis.Client
	ttl   time.Duration
}

type cacheEntry struct {
	Group    *models.Group `json:"group"`
	Revision string        `json:"revision"`
}

// appendingCache is returned for bases that implement AtomicAppender, so
// GroupStore keeps using their atomic path through the cache.
type appendingCache struct {
	*Cache
	appender AtomicAppender
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or a zero TTL disables caching.
func NewCache(base Backend, client *redis.Client, ttl time.Duration) Backend {
	if base == nil {
		panic("storage.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{base: base, redis: client, ttl: ttl}
	if appender, ok := base.(AtomicAppender); ok {
		return &appendingCache{Cache: c, appender: appender}
	}
	return c
}

func (c *Cache) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return c.base.ListGroups(ctx)
}

func (c *Cache) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := c.base.CreateGroup(ctx, group); err != nil {
		return err
	}
	// A new group has never been written to, so it has no generation yet.
	c.store(ctx, group, "")
	return nil
}

func (c *Cache) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if group, ok := c.load(ctx, groupID); ok {
		return group, nil
	}

	gen, ok := c.generation(ctx, groupID)
	group, err := c.base.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if ok {
		c.store(ctx, group, gen)
	}
	return group, nil
}

func (c *Cache) ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, revision string) (string, error) {
	rev, err := c.base.ReplaceOrders(ctx, groupID, orders, revision)
	c.evict(ctx, groupID)
	return rev, err
}

func (c *Cache) Close() error {
	return c.base.Close()
}

func (c *appendingCache) AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error) {
	orders, err := c.appender.AppendOrder(ctx, groupID, order)
	c.evict(ctx, groupID)
	return orders, err
}

func (c *Cache) load(ctx context.Context, groupID string) (*models.Group, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, groupCacheKey(groupID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis read failed, using backend", "group_id", groupID, "error", err)
		}
		return nil, false
	}
	var entry cacheEntry
	if err := sonic.Unmarshal(data, &entry); err != nil || entry.Group == nil {
		slog.Warn("Dropping unreadable cache entry", "group_id", groupID, "error", err)
		if err := c.redis.Del(ctx, groupCacheKey(groupID)).Err(); err != nil {
			slog.Warn("Failed to drop cache entry", "group_id", groupID, "error", err)
		}
		return nil, false
	}
	entry.Group.Revision = entry.Revision
	return entry.Group, true
}

// generation returns the group's write generation ("" if never written).
// ok is false when Redis cannot be asked, in which case nothing is cached.
func (c *Cache) generation(ctx context.Context, groupID string) (string, bool) {
	if c.redis == nil || c.ttl == 0 {
		return "", false
	}
	gen, err := c.redis.Get(ctx, generationKey(groupID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		slog.Warn("Redis read failed, not caching", "group_id", groupID, "error", err)
		return "", false
	}
	return gen, true
}

// store caches group if the group's generation still equals gen.
func (c *Cache) store(ctx context.Context, group *models.Group, gen string) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(cacheEntry{Group: group, Revision: group.Revision})
	if err != nil {
		slog.Warn("Failed to encode cache entry", "group_id", group.ID, "error", err)
		return
	}

	genKey := generationKey(group.ID)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, groupCacheKey(group.ID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleRead), errors.Is(err, redis.TxFailedErr):
		slog.Debug("Skipped caching group read during a write", "group_id", group.ID)
	default:
		slog.Warn("Failed to cache group", "group_id", group.ID, "error", err)
	}
}

// evict bumps the group's generation and drops the cached document. It runs
// even when the write's context is done, since the write may have landed.
func (c *Cache) evict(ctx context.Context, groupID string) {
	if c.redis == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	genKey := generationKey(groupID)
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, groupCacheKey(groupID))
		return nil
	})
	if err != nil {
		slog.Warn("Failed to evict cached group", "group_id", groupID, "error", err)
	}
}

func groupCacheKey(groupID string) string {
	return "group:" + groupID
}

func generationKey(groupID string) string {
	return "group:" + groupID + ":gen"
}
