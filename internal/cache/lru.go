// Package cache holds short-lived per-user read results in front of the
// ledger, so dashboard refreshes do not hit the spreadsheet every time.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"spesewa/internal/log"
)

// UserLRU is an LRU cache with TTL whose entries belong to a user. All
// entries of one user can be dropped at once when that user's data changes.
type UserLRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[entryKey]*list.Element
	byUser  map[string]map[entryKey]struct{}
	lru     *list.List
}

type entryKey struct {
	user string
	key  string
}

type entry[T any] struct {
	k         entryKey
	data      T
	expiresAt time.Time
}

// NewUserLRU creates a cache holding at most maxSize entries for ttl each.
func NewUserLRU[T any](maxSize int, ttl time.Duration) *UserLRU[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &UserLRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[entryKey]*list.Element),
		byUser:  make(map[string]map[entryKey]struct{}),
		lru:     list.New(),
	}
}

func (c *UserLRU[T]) Get(user, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[entryKey{user, key}]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return e.data, true
}

func (c *UserLRU[T]) Set(user, key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := entryKey{user, key}
	e := &entry[T]{k: k, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[k]; ok {
		elem.Value = e
		c.lru.MoveToFront(elem)
		return
	}

	c.items[k] = c.lru.PushFront(e)
	keys := c.byUser[user]
	if keys == nil {
		keys = make(map[entryKey]struct{})
		c.byUser[user] = keys
	}
	keys[k] = struct{}{}

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// InvalidateUser drops every entry cached for user.
func (c *UserLRU[T]) InvalidateUser(user string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.byUser[user] {
		if elem, ok := c.items[k]; ok {
			c.remove(elem)
			n++
		}
	}
	return n
}

func (c *UserLRU[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.k)
	if keys := c.byUser[e.k.user]; keys != nil {
		delete(keys, e.k)
		if len(keys) == 0 {
			delete(c.byUser, e.k.user)
		}
	}
	c.lru.Remove(elem)
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *UserLRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.remove(elem)
	}
	return len(expired)
}

func (c *UserLRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// RunCleanup calls CleanExpired on every cache each interval until ctx is
// done. logger may be nil.
func RunCleanup(ctx context.Context, interval time.Duration, logger *log.Logger, caches ...Cleaner) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentCache)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := 0
			for _, c := range caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				logger.DebugContext(ctx, "Expired cache entries removed", "removed", removed)
			}
		}
	}
}
