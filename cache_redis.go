package docstore

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v9"
)

// RedisCache is a write-through Cache: entries are kept in process and mirrored
// to redis under a namespace so that processes sharing the namespace observe
// each other's writes. The cache is not authoritative storage; remote failures
// degrade reads to the in process view rather than erroring.
type RedisCache[T any] struct {
	client    redis.UniversalClient
	namespace string
	local     Cache[T]
}

// NewRedisCache returns a write-through cache mirroring entries to redis under
// the given namespace
func NewRedisCache[T any](client redis.UniversalClient, namespace string) *RedisCache[T] {
	return &RedisCache[T]{
		client:    client,
		namespace: namespace,
		local:     NewInMemCache[T](nil),
	}
}

func (r *RedisCache[T]) key(key string) string {
	return r.namespace + ":" + key
}

// Get gets a value, reading through to redis on a local miss
func (r *RedisCache[T]) Get(key string) T {
	if r.local.Exists(key) {
		return r.local.Get(key)
	}
	var value T
	bits, err := r.client.Get(context.Background(), r.key(key)).Bytes()
	if err != nil {
		return value
	}
	if err := json.Unmarshal(bits, &value); err != nil {
		return value
	}
	r.local.Set(key, value)
	return value
}

// Exists returns true if the key has a value locally or in redis
func (r *RedisCache[T]) Exists(key string) bool {
	if r.local.Exists(key) {
		return true
	}
	count, err := r.client.Exists(context.Background(), r.key(key)).Result()
	return err == nil && count > 0
}

// Set sets the key value pair locally and in redis
func (r *RedisCache[T]) Set(key string, value T) {
	r.local.Set(key, value)
	bits, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.client.Set(context.Background(), r.key(key), bits, 0)
}

// Del deletes the key locally and in redis
func (r *RedisCache[T]) Del(key string) {
	r.local.Del(key)
	r.client.Del(context.Background(), r.key(key))
}

// Len returns the number of entries under the namespace, falling back to the
// local count when redis is unreachable
func (r *RedisCache[T]) Len() int {
	var (
		cursor uint64
		count  int
	)
	ctx := context.Background()
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), 512).Result()
		if err != nil {
			return r.local.Len()
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

// Range iterates the entries under the namespace until fn returns false,
// falling back to the local entries when redis is unreachable
func (r *RedisCache[T]) Range(fn func(key string, t T) bool) {
	var cursor uint64
	ctx := context.Background()
	prefix := r.key("")
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), 512).Result()
		if err != nil {
			r.local.Range(fn)
			return
		}
		for _, k := range keys {
			bits, err := r.client.Get(ctx, k).Bytes()
			if err != nil {
				continue
			}
			var value T
			if err := json.Unmarshal(bits, &value); err != nil {
				continue
			}
			if !fn(k[len(prefix):], value) {
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
