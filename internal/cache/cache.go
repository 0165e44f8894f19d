package cache

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultMaxSize = 50
	DefaultExpiry  = time.Hour
)

type Options struct {
	MaxSize int
	Expiry  time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Cache is a bounded, time-expiring result store persisted to a Storage
// after every mutation. All operations are atomic with respect to each
// other, including the persistence write.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	store   Storage
	maxSize int
	expiry  time.Duration
	now     func() time.Time
	log     *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Open restores the cache from store and runs one cleanup pass. Unreadable
// or corrupt storage yields an empty cache.
func Open(store Storage, opts Options) *Cache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Cache{
		entries: make(map[string]Entry),
		store:   store,
		maxSize: opts.MaxSize,
		expiry:  opts.Expiry,
		now:     opts.Now,
		log:     opts.Logger.With("component", "cache"),
	}

	c.restore()
	if err := c.Cleanup(); err != nil {
		c.log.Warn("startup cleanup failed", "err", err)
	}
	return c
}

func (c *Cache) restore() {
	data, err := c.store.Load()
	if err != nil {
		c.log.Warn("cache storage unreadable, starting empty", "err", err)
		return
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		c.log.Warn("cache snapshot corrupt, starting empty", "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, se := range snap.Entries {
		c.entries[se.Key] = se.Entry
	}
	c.log.Debug("cache restored", "entries", len(c.entries))
}

// Get returns the entry for key if it is still valid. Expired entries are
// reported absent but stay in memory until the next Cleanup.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok || !e.validAt(c.now(), c.expiry) {
		c.misses.Add(1)
		return Entry{}, false
	}
	c.hits.Add(1)
	return e.clone(), true
}

// Set stores e under key, replacing any previous entry.
func (c *Cache) Set(key string, e Entry) error {
	if key == "" {
		return errors.New("cache: empty key")
	}
	e.Key = key

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e.clone()
	return c.persistLocked()
}

func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return nil
	}
	delete(c.entries, key)
	return c.persistLocked()
}

// Cleanup drops expired entries, then evicts the oldest until the cache
// fits MaxSize. Equal timestamps are evicted in key order.
func (c *Cache) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for k, e := range c.entries {
		if e.expiredAt(now, c.expiry) {
			delete(c.entries, k)
			expired++
		}
	}

	evicted := 0
	if over := len(c.entries) - c.maxSize; over > 0 {
		for _, e := range c.oldestFirstLocked()[:over] {
			delete(c.entries, e.Key)
			evicted++
		}
	}

	if expired > 0 || evicted > 0 {
		c.log.Debug("cache cleanup", "expired", expired, "evicted", evicted, "size", len(c.entries))
	}
	return c.persistLocked()
}

// Clear empties the cache and its durable copy.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	if err := c.store.Remove(); err != nil {
		return fmt.Errorf("failed to clear cache storage: %w", err)
	}
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a copy of every stored entry, newest first, including
// ones that expired since the last cleanup.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	out := c.oldestFirstLocked()
	c.mu.Unlock()

	slices.Reverse(out)
	for i := range out {
		out[i] = out[i].clone()
	}
	return out
}

// Expiry returns the configured validity window.
func (c *Cache) Expiry() time.Duration {
	return c.expiry
}

// Stats returns lookup hit and miss counts since Open.
func (c *Cache) Stats() (hits uint64, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) oldestFirstLocked() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		if n := a.Timestamp.Compare(b.Timestamp); n != 0 {
			return n
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// persistLocked writes the full snapshot. When storage is out of space the
// cache goes cold: memory and the durable copy are both cleared.
func (c *Cache) persistLocked() error {
	data, err := EncodeSnapshot(c.oldestFirstLocked(), c.now())
	if err != nil {
		return err
	}

	err = c.store.Save(data)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) {
		c.log.Warn("cache storage full, dropping cache", "entries", len(c.entries), "bytes", len(data))
		c.entries = make(map[string]Entry)
		if rmErr := c.store.Remove(); rmErr != nil {
			c.log.Warn("failed to remove durable cache", "err", rmErr)
		}
	}
	return fmt.Errorf("failed to persist cache: %w", err)
}
