package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

const scanBatch = 500

// RedisBackend is a Backend shared between replicas. Keys are namespaced
// with a prefix; values are JSON arrays with a native redis TTL.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend connects to the redis server at url and verifies it with PING.
func NewRedisBackend(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBackendFromClient(client, prefix), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// Get returns the cached roles for key.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		b.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	roles := []string{}
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil, false, fmt.Errorf("decode cached roles: %w", err)
	}
	b.hits.Add(1)
	return roles, true, nil
}

// Set stores roles under key for ttl.
func (b *RedisBackend) Set(ctx context.Context, key string, roles []string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	raw, err := json.Marshal(copyRoles(roles))
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	if err := b.client.Set(ctx, b.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (b *RedisBackend) Delete(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Del(ctx, b.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// DeletePattern removes every key starting with prefix using SCAN + DEL.
func (b *RedisBackend) DeletePattern(ctx context.Context, prefix string) (int, error) {
	removed := 0
	err := b.scan(ctx, prefix, func(keys []string) error {
		n, err := b.client.Del(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		removed += int(n)
		return nil
	})
	return removed, err
}

// Clear drops every key under the backend's namespace.
func (b *RedisBackend) Clear(ctx context.Context) error {
	_, err := b.DeletePattern(ctx, "")
	return err
}

// Stats counts keys under the namespace. Size is approximate since SCAN may
// return a key twice. MaxSize is 0: eviction is left to redis.
func (b *RedisBackend) Stats(ctx context.Context) (Stats, error) {
	size := 0
	err := b.scan(ctx, "", func(keys []string) error {
		size += len(keys)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Size:   size,
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
	}, nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) scan(ctx context.Context, prefix string, fn func(keys []string) error) error {
	match := escapeGlob(b.prefix+prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
