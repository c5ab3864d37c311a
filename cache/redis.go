package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

// RedisBackend delegates to a Redis-style cache server, grounded on the
// teacher's db/repository/redis.go SetCache/GetCache/DeleteCache
// methods, generalized to the four-method Backend contract instead of
// a single fixed "cache:" prefix (namespacing is layered on top by
// Namespace).
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to host:port and verifies reachability with
// a bounded ping, matching the teacher's NewRedisRepository.
func NewRedisBackend(ctx context.Context, host string, port int, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     hostPort(host, port),
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, pipelineerr.NewResource(err, "connect to cache backend at %s", hostPort(host, port))
	}
	return &RedisBackend{client: client}, nil
}

func hostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pipelineerr.NewResource(err, "cache get %s", key)
	}
	return val, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return pipelineerr.NewResource(err, "cache set %s", key)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return pipelineerr.NewResource(err, "cache delete %s", key)
	}
	return nil
}

// Clear removes every key under this client's logical database. Redis
// has no namespaced flush, so callers that share a database with other
// tenants should prefer Delete per key; Clear is intended for tests.
func (r *RedisBackend) Clear(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return pipelineerr.NewResource(err, "cache clear")
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
