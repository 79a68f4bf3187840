package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound     = errors.New("key not found")
	ErrEncodeFailed = errors.New("failed to encode value")
	ErrDecodeFailed = errors.New("failed to decode value")
)

// Encoder converts a value of type T to a byte slice for storage in Redis.
type Encoder[T any] func(value T) ([]byte, error)

// Decoder converts a byte slice from Redis back to a value of type T.
type Decoder[T any] func(data []byte) (T, error)

// Cache is a generic cache backed by Redis.
type Cache[T any] struct {
	client  *redis.Client
	encoder Encoder[T]
	decoder Decoder[T]
	prefix  string
}

type Options[T any] struct {
	Client  *redis.Client
	Encoder Encoder[T]
	Decoder Decoder[T]
	Prefix  string
}

func New[T any](opts Options[T]) *Cache[T] {
	return &Cache[T]{
		client:  opts.Client,
		encoder: opts.Encoder,
		decoder: opts.Decoder,
		prefix:  opts.Prefix,
	}
}

func (c *Cache[T]) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// versionGrace keeps version markers alive past the values they guard, so a
// read that started before an invalidation still sees the new version.
const versionGrace = time.Minute

func (c *Cache[T]) versionKey(k string) string {
	return c.key("version:" + k)
}

func (c *Cache[T]) versionCounter() string {
	return c.key("version")
}

// Set stores a value under key. Use ttl=0 for no expiration.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := c.encoder(value)
	if err != nil {
		return errors.Join(ErrEncodeFailed, err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Get returns ErrNotFound if the key does not exist.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return c.decode(data)
}

// GetEx retrieves a value and extends its TTL, so traces that keep being
// requested stay cached.
func (c *Cache[T]) GetEx(ctx context.Context, key string, ttl time.Duration) (T, error) {
	var zero T

	data, err := c.client.GetEx(ctx, c.key(key), ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return c.decode(data)
}

func (c *Cache[T]) decode(data []byte) (T, error) {
	value, err := c.decoder(data)
	if err != nil {
		var zero T
		return zero, errors.Join(ErrDecodeFailed, err)
	}
	return value, nil
}

// MGetEx retrieves multiple values and extends their TTL in one pipeline.
// Keys that are missing or fail to decode are left out of the result.
func (c *Cache[T]) MGetEx(ctx context.Context, ttl time.Duration, keys ...string) (map[string]T, error) {
	if len(keys) == 0 {
		return make(map[string]T), nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.GetEx(ctx, c.key(k), ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	values := make(map[string]T)
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		value, err := c.decoder(data)
		if err != nil {
			continue
		}
		values[keys[i]] = value
	}
	return values, nil
}

// Versions returns the current version of each key, 0 for keys that were
// never invalidated. Pass a version to SetIfVersion to store a value built
// from data read after this call.
func (c *Cache[T]) Versions(ctx context.Context, keys ...string) (map[string]int64, error) {
	res := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return res, nil
	}
	vkeys := make([]string, len(keys))
	for i, k := range keys {
		vkeys[i] = c.versionKey(k)
	}
	values, err := c.client.MGet(ctx, vkeys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			res[keys[i]] = 0
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, err
		}
		res[keys[i]] = n
	}
	return res, nil
}

// Invalidate deletes keys and moves each to a new version, so values built
// from data read before the call are not stored by SetIfVersion. Versions are
// drawn from a shared counter and never repeat.
func (c *Cache[T]) Invalidate(ctx context.Context, ttl time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	next, err := c.client.IncrBy(ctx, c.versionCounter(), int64(len(keys))).Result()
	if err != nil {
		return err
	}
	version_ttl := time.Duration(0)
	if ttl > 0 {
		version_ttl = ttl + versionGrace
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			pipe.Set(ctx, c.versionKey(k), next-int64(len(keys)-1-i), version_ttl)
			pipe.Del(ctx, c.key(k))
		}
		return nil
	})
	return err
}

// SetIfVersion stores a value only while key is still at version. It reports
// whether the value was stored.
func (c *Cache[T]) SetIfVersion(ctx context.Context, key string, value T, ttl time.Duration, version int64) (bool, error) {
	data, err := c.encoder(value)
	if err != nil {
		return false, errors.Join(ErrEncodeFailed, err)
	}
	vkey := c.versionKey(key)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(key), data, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}
