package storage_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/internal/storage/memory"
)

// countingBackend counts reads that reach the base backend.
type countingBackend struct {
	storage.Backend
	mu   sync.Mutex
	gets int
}

func (c *countingBackend) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Backend.GetGroup(ctx, id)
}

func (c *countingBackend) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// pausingBackend holds the first GetGroup issued after arm() until resume is
// closed. The read itself has already completed when it pauses.
type pausingBackend struct {
	storage.Backend
	armed  atomic.Bool
	paused chan struct{}
	resume chan struct{}
}

func newPausingBackend(base storage.Backend) *pausingBackend {
	return &pausingBackend{Backend: base, paused: make(chan struct{}), resume: make(chan struct{})}
}

func (p *pausingBackend) arm() { p.armed.Store(true) }

func (p *pausingBackend) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := p.Backend.GetGroup(ctx, id)
	if p.armed.CompareAndSwap(true, false) {
		close(p.paused)
		<-p.resume
	}
	return group, err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheGetGroupMissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := &countingBackend{Backend: memory.New()}
	group := &models.Group{Orders: []models.Order{order("1", "Ana")}}
	require.NoError(t, base.CreateGroup(ctx, group))
	mr.FlushAll()

	cache := storage.NewCache(base, client, time.Minute)

	first, err := cache.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	second, err := cache.GetGroup(ctx, group.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, base.count())
	assert.Equal(t, first.Revision, second.Revision)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, "Ana", second.Orders[0].Name)

	ttl := mr.TTL("group:" + group.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestCacheEvictsOnReplace(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	cache := storage.NewCache(memory.New(), client, time.Minute)
	group := &models.Group{}
	require.NoError(t, cache.CreateGroup(ctx, group))
	assert.True(t, mr.Exists("group:"+group.ID), "created group should be cached")

	_, err := cache.ReplaceOrders(ctx, group.ID, []models.Order{order("1", "Ana")}, group.Revision)
	require.NoError(t, err)
	assert.False(t, mr.Exists("group:"+group.ID), "write should evict the cached group")

	gen, err := mr.Get("group:" + group.ID + ":gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	assert.Greater(t, mr.TTL("group:"+group.ID+":gen"), time.Duration(0))

	fetched, err := cache.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Orders, 1)
}

func TestCacheEvictsOnConflict(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	cache := storage.NewCache(memory.New(), client, time.Minute)
	group := &models.Group{}
	require.NoError(t, cache.CreateGroup(ctx, group))

	_, err := cache.ReplaceOrders(ctx, group.ID, nil, "stale")
	require.Error(t, err)
	assert.False(t, mr.Exists("group:"+group.ID))
}

func TestCacheEvictsWhenWriteContextIsDone(t *testing.T) {
	mr, client := newRedis(t)

	cache := storage.NewCache(memory.New(), client, time.Minute)
	group := &models.Group{}
	require.NoError(t, cache.CreateGroup(context.Background(), group))
	require.True(t, mr.Exists("group:"+group.ID))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = cache.ReplaceOrders(ctx, group.ID, []models.Order{order("1", "Ana")}, group.Revision)

	assert.False(t, mr.Exists("group:"+group.ID))
}

func TestCacheSkipsFillOverlappingAppend(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	backend := newPausingBackend(memory.New())
	store := storage.NewGroupStore(storage.NewCache(backend, client, time.Minute))
	group, err := store.CreateGroup(ctx)
	require.NoError(t, err)
	mr.Del("group:" + group.ID)

	// A reader misses the cache and reads the group before the append lands.
	backend.arm()
	type result struct {
		group *models.Group
		err   error
	}
	done := make(chan result, 1)
	go func() {
		g, err := store.FetchGroup(ctx, group.ID)
		done <- result{g, err}
	}()
	<-backend.paused

	_, err = store.AppendOrder(ctx, group.ID, order("", "Ana"))
	require.NoError(t, err)

	close(backend.resume)
	slow := <-done
	require.NoError(t, slow.err)
	assert.Empty(t, slow.group.Orders)
	assert.False(t, mr.Exists("group:"+group.ID), "read older than the append must not be cached")

	fetched, err := store.FetchGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Orders, 1)
	assert.Equal(t, "Ana", fetched.Orders[0].Name)
}

func TestCacheFallsBackOnRedisFailure(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	base := memory.New()
	group := &models.Group{}
	require.NoError(t, base.CreateGroup(ctx, group))
	mr.Close()

	cache := storage.NewCache(base, client, time.Minute)
	fetched, err := cache.GetGroup(ctx, group.ID)
	require.NoError(t, err, "expected fallback to base storage")
	assert.Equal(t, group.ID, fetched.ID)

	_, err = cache.ReplaceOrders(ctx, group.ID, []models.Order{order("1", "Ana")}, fetched.Revision)
	assert.NoError(t, err)
}

func TestCacheWithGroupStoreAppends(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	store := storage.NewGroupStore(storage.NewCache(memory.New(), client, time.Minute))
	group, err := store.CreateGroup(ctx)
	require.NoError(t, err)
	for _, name := range []string{"Ana", "Ivo"} {
		_, err := store.AppendOrder(ctx, group.ID, order("", name))
		require.NoError(t, err)
	}
	fetched, err := store.FetchGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Orders, 2)
}

func TestCacheKeepsAtomicAppender(t *testing.T) {
	_, client := newRedis(t)
	backend := &atomicBackend{Backend: memory.New()}

	_, ok := storage.NewCache(backend, client, time.Minute).(storage.AtomicAppender)
	assert.True(t, ok, "cache over an atomic backend should expose AppendOrder")

	_, ok = storage.NewCache(memory.New(), client, time.Minute).(storage.AtomicAppender)
	assert.False(t, ok, "plain cache should not expose AppendOrder")
}
