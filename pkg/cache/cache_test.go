package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetRoundtrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:abc", entry{Name: "gophers", Count: 3}, 0)

	var got entry
	require.True(t, c.Get(ctx, "community:abc", &got))
	assert.Equal(t, entry{Name: "gophers", Count: 3}, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got entry
	assert.False(t, c.Get(context.Background(), "community:absent", &got))
}

func TestSetAppliesDefaultTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:ttl", entry{Name: "x"}, 0)
	assert.Equal(t, 5*time.Minute, mr.TTL("community:ttl"))

	c.Set(ctx, "community:short", entry{Name: "y"}, 30*time.Second)
	assert.Equal(t, 30*time.Second, mr.TTL("community:short"))
}

func TestEntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:exp", entry{Name: "x"}, time.Minute)
	mr.FastForward(2 * time.Minute)

	var got entry
	assert.False(t, c.Get(ctx, "community:exp", &got))
}

func TestDeleteIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:del", entry{Name: "x"}, 0)
	c.Delete(ctx, "community:del")
	c.Delete(ctx, "community:del")

	var got entry
	assert.False(t, c.Get(ctx, "community:del", &got))
}

func TestDeletePattern(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:abc:members:1", entry{}, 0)
	c.Set(ctx, "community:abc:posts:1", entry{}, 0)
	c.Set(ctx, "community:xyz:members:1", entry{}, 0)

	c.DeletePattern(ctx, "community:abc:*")

	var got entry
	assert.False(t, c.Get(ctx, "community:abc:members:1", &got))
	assert.False(t, c.Get(ctx, "community:abc:posts:1", &got))
	assert.True(t, c.Get(ctx, "community:xyz:members:1", &got), "other tenants' keys must survive")
}

func TestDeletePatternLargeKeyspace(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// More keys than one SCAN page so the cursor loop has to iterate.
	for i := 0; i < 500; i++ {
		c.Set(ctx, fmt.Sprintf("community:big:posts:%d", i), entry{Count: i}, 0)
	}
	c.DeletePattern(ctx, "community:big:*")

	var got entry
	for i := 0; i < 500; i += 100 {
		assert.False(t, c.Get(ctx, fmt.Sprintf("community:big:posts:%d", i), &got))
	}
}

func TestFailOpenAfterBackendLoss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "community:gone", entry{Name: "x"}, 0)
	mr.Close()

	var got entry
	assert.False(t, c.Get(ctx, "community:gone", &got))
	// None of these may panic or error out.
	c.Set(ctx, "community:gone", entry{Name: "y"}, 0)
	c.Delete(ctx, "community:gone")
	c.DeletePattern(ctx, "community:*")
	_, ok := c.Incr(ctx, "community:counter")
	assert.False(t, ok)
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	// Unreachable address: New must return a disabled cache, not fail.
	c := New(context.Background(), "127.0.0.1:1", "", 0, Options{}, nil)
	ctx := context.Background()

	var got entry
	assert.False(t, c.Get(ctx, "k", &got))
	c.Set(ctx, "k", entry{}, 0)
	c.Delete(ctx, "k")
	c.DeletePattern(ctx, "*")
	_, ok := c.Incr(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestIncr(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	n, ok := c.Incr(ctx, "views:post:1")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)

	n, ok = c.Incr(ctx, "views:post:1")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestKeys(t *testing.T) {
	k := NewKeys("community:")

	assert.Equal(t, "community:community:abc", k.Community("abc"))
	assert.Equal(t, "community:community:abc:*", k.CommunityPattern("abc"))
	assert.Equal(t, "community:community:abc:members:2", k.CommunityMembers("abc", 2))
}
