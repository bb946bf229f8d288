package docstore

import (
	"fmt"
	"os"
	"testing"

	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
)

// Tests here require a reachable redis server; they are skipped unless
// DOCSTORE_REDIS_ADDR is set (e.g. DOCSTORE_REDIS_ADDR=localhost:6379).
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DOCSTORE_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCSTORE_REDIS_ADDR unset")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	cache := NewRedisCache[string](client, fmt.Sprintf("docstore.test.%d", os.Getpid()))
	t.Run("set get del", func(t *testing.T) {
		cache.Set("a", "1")
		assert.True(t, cache.Exists("a"))
		assert.Equal(t, "1", cache.Get("a"))
		cache.Del("a")
		assert.False(t, cache.Exists("a"))
	})
	t.Run("entries survive a fresh local view", func(t *testing.T) {
		cache.Set("b", "2")
		fresh := NewRedisCache[string](client, cache.namespace)
		assert.True(t, fresh.Exists("b"))
		assert.Equal(t, "2", fresh.Get("b"))
		cache.Del("b")
	})
	t.Run("len and range", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			cache.Set(fmt.Sprintf("k.%d", i), fmt.Sprint(i))
		}
		assert.Equal(t, 5, cache.Len())
		var seen int
		cache.Range(func(key string, value string) bool {
			seen++
			return seen < 3
		})
		assert.Equal(t, 3, seen)
		for i := 0; i < 5; i++ {
			cache.Del(fmt.Sprintf("k.%d", i))
		}
	})
	t.Run("session ids over a shared cache", func(t *testing.T) {
		shared := NewRedisCache[bool](client, fmt.Sprintf("docstore.ids.%d", os.Getpid()))
		ids := NewSessionIDs(shared)
		ids.Add("x", "y")
		assert.True(t, ids.Has("x"))
		other := NewSessionIDs(NewRedisCache[bool](client, shared.namespace))
		assert.True(t, other.Has("y"))
		shared.Del("x")
		shared.Del("y")
	})
}
