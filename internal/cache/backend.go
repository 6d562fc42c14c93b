package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidTTL is returned by Set when ttl is not positive.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Backend stores role sets with an absolute TTL.
//
// An empty role set is a valid cached value; ok=false from Get means the key
// is absent or expired.
type Backend interface {
	Get(ctx context.Context, key string) (roles []string, ok bool, err error)
	Set(ctx context.Context, key string, roles []string, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	DeletePattern(ctx context.Context, prefix string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// Stats is a point-in-time view of a backend. MaxSize is 0 when unbounded.
type Stats struct {
	Size      int    `json:"size"`
	MaxSize   int    `json:"max_size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

func copyRoles(roles []string) []string {
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
