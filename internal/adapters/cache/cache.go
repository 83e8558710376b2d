// Package cache shares fetched snapshot documents and derived views between
// dashboard replicas through Redis. Keys carry a global version so a manual
// refresh on any replica invalidates every cached entry at once.
//
// A nil *Cache, or one without a client, is valid and simply calls the loader.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ipa27/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "ipa27"
	cacheVersionKey = "ipa27:cache:version"
	bumpChannel     = "ipa27.bump"
)

// Cache wraps Redis based caching with versioning controls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New instantiates the cache helper.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes a namespaced cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{keyPrefix}, parts...), ":")
	if !c.Enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchBytes returns the cached value for key or stores the loader's result.
// hit reports whether the value came from Redis. Redis errors on read fall
// through to the loader so an unavailable cache never hides the origin.
func (c *Cache) FetchBytes(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) (value []byte, hit bool, err error) {
	return c.FetchValidBytes(ctx, key, loader, nil)
}

// FetchValidBytes is FetchBytes with a check on loaded values. A value that
// fails valid is still returned to the caller but never stored.
func (c *Cache) FetchValidBytes(ctx context.Context, key string, loader func(context.Context) ([]byte, error), valid func([]byte) error) (value []byte, hit bool, err error) {
	if loader == nil {
		return nil, false, ErrLoaderRequired
	}
	if !c.Enabled() {
		value, err = loader(ctx)
		return value, false, err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.RecordCacheLookup("hit")
		return payload, true, nil
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheLookup("miss")
	default:
		metrics.RecordCacheLookup("error")
	}

	value, err = loader(ctx)
	if err != nil {
		return nil, false, err
	}
	if valid != nil {
		if verr := valid(value); verr != nil {
			metrics.RecordCacheLookup("rejected")
			return value, false, nil
		}
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		metrics.RecordCacheLookup("error")
	}
	return value, false, nil
}

// FetchJSON loads a cached value into dest or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return ErrLoaderRequired
	}
	raw, _, err := c.FetchBytes(ctx, key, func(ctx context.Context) ([]byte, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version and
// publishing the new version to other replicas.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, err
	}
	return ver, c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bumps and calls onBump with
// each published version until ctx is done. The subscription is confirmed
// before returning.
func (c *Cache) ListenForInvalidation(ctx context.Context, onBump func(version int64)) error {
	if !c.Enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ver)
				}
			}
		}
	}()
	return nil
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
