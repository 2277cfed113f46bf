package mem_cache

import (
	"sync/atomic"
	"time"

	"github.com/pmkol/ringlist/pkg/cache"
	"github.com/pmkol/ringlist/pkg/concurrent_lru"
)

const (
	shardSize              = 64
	defaultCleanerInterval = time.Minute
)

var _ cache.Backend = (*MemCache)(nil)

// MemCache is an in-memory cache.Backend on top of a sharded LRU.
type MemCache struct {
	closed           atomic.Bool
	closeCleanerChan chan struct{}
	lru              *concurrent_lru.ShardedLRU[*elem]
}

type elem struct {
	v          []byte
	storedTime time.Time
	expire     time.Time
}

// NewMemCache returns a cache that holds roughly size entries.
// If cleanerInterval > 0, expired entries are removed in background
// until Close is called.
func NewMemCache(size int, cleanerInterval time.Duration) *MemCache {
	sizePerShard := size / shardSize
	if sizePerShard < 16 {
		sizePerShard = 16
	}
	c := &MemCache{
		closeCleanerChan: make(chan struct{}),
		lru:              concurrent_lru.NewShardedLRU[*elem](shardSize, sizePerShard, nil),
	}

	if cleanerInterval > 0 {
		go c.startCleaner(cleanerInterval)
	}
	return c
}

// Close stops the cleaner and releases all entries.
func (c *MemCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.closeCleanerChan)
		c.lru.Release()
	}
	return nil
}

func (c *MemCache) Get(key string) ([]byte, time.Time, bool) {
	if c.closed.Load() {
		return nil, time.Time{}, false
	}

	e, ok := c.lru.Get(key)
	if !ok || time.Now().After(e.expire) {
		return nil, time.Time{}, false
	}
	return e.v, e.storedTime, true
}

func (c *MemCache) Store(key string, v []byte, expire time.Time) error {
	if c.closed.Load() {
		return nil
	}

	buf := make([]byte, len(v))
	copy(buf, v)
	return c.lru.Add(key, &elem{
		v:          buf,
		storedTime: time.Now(),
		expire:     expire,
	})
}

func (c *MemCache) startCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanerInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCleanerChan:
			return
		case <-ticker.C:
			now := time.Now()
			c.lru.Clean(func(_ string, e *elem) bool {
				return !e.expire.After(now)
			})
		}
	}
}

func (c *MemCache) Len() int {
	return c.lru.Len()
}
