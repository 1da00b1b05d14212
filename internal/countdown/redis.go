package countdown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces countdown keys in a shared Redis.
const keyPrefix = "courseflow:countdown:"

// RedisStore keeps deadlines in Redis as Unix milliseconds.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	deadline, err := decodeDeadline(val)
	if err != nil {
		return time.Time{}, false, err
	}
	return deadline, true, nil
}

// SetIfAbsent implements Store using SET NX. When another request created
// the key first, its value is read back and returned.
func (r *RedisStore) SetIfAbsent(ctx context.Context, key string, deadline time.Time, ttl time.Duration) (time.Time, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, encodeDeadline(deadline), ttl).Result()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return deadline, nil
	}

	existing, found, err := r.Get(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		// Expired between SETNX and GET.
		return deadline, nil
	}
	return existing, nil
}

func encodeDeadline(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func decodeDeadline(val string) (time.Time, error) {
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("countdown: malformed deadline %q: %w", val, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

var _ Store = (*RedisStore)(nil)
