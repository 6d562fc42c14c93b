package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Defaults applied by NewRoleCache for zero Options fields.
const (
	DefaultMaxSize       = 10000
	DefaultSweepInterval = time.Minute
)

// Options configures a RoleCache.
type Options struct {
	MaxSize       int
	SweepInterval time.Duration
	Clock         clock.Clock
}

type entry struct {
	key        string
	roles      []string
	insertedAt time.Time
	expiresAt  time.Time
}

// RoleCache is a bounded in-memory Backend.
//
// Eviction follows insertion order: updating an existing key refreshes its
// value and TTL but keeps its position, and reads never reorder. Expired
// entries are dropped when read and by a background sweep.
type RoleCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
	clock   clock.Clock

	hits      uint64
	misses    uint64
	evictions uint64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Backend = (*RoleCache)(nil)

// NewRoleCache creates the cache and starts its sweeper. Call Close to stop it.
func NewRoleCache(opts Options) *RoleCache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	c := &RoleCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: opts.MaxSize,
		clock:   opts.Clock,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	ticker := c.clock.Ticker(opts.SweepInterval)
	go c.sweepLoop(ticker)

	return c
}

func (c *RoleCache) sweepLoop(ticker *clock.Ticker) {
	defer close(c.done)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.sweep(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("role cache sweep")
			}
		}
	}
}

// Close stops the sweeper and waits for it to exit. Safe to call more than once.
func (c *RoleCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	return nil
}

// Get returns a copy of the cached roles. Expired entries count as misses and are removed.
func (c *RoleCache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}

	e := elem.Value.(*entry)
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, false, nil
	}

	c.hits++
	return copyRoles(e.roles), true, nil
}

// Set stores roles under key for ttl.
func (c *RoleCache) Set(_ context.Context, key string, roles []string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.roles = copyRoles(roles)
		e.expiresAt = now.Add(ttl)
		return nil
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}

	c.items[key] = c.order.PushBack(&entry{
		key:        key,
		roles:      copyRoles(roles),
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	})
	return nil
}

// Delete removes key and reports whether it was present.
func (c *RoleCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.removeElement(elem)
	return true, nil
}

// DeletePattern removes every key starting with prefix and returns how many were removed.
func (c *RoleCache) DeletePattern(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed, nil
}

// Clear drops every entry. Counters are kept.
func (c *RoleCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Stats reports the current size and counters.
func (c *RoleCache) Stats(_ context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}, nil
}

// Keys returns the live keys from oldest to newest insertion.
func (c *RoleCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}

func (c *RoleCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*entry).expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// removeElement must be called with mu held.
func (c *RoleCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
