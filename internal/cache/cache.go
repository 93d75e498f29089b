// Package cache provides a two-tier cache: an in-memory L1 and an optional
// Redis L2 that survives restarts and is shared between instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Config configures a Cache.
type Config struct {
	// RedisURL enables L2 when set, e.g. redis://localhost:6379/0.
	RedisURL        string
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	// Prefix namespaces keys in the shared L2.
	Prefix string
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache implements L1 (memory) + L2 (Redis) caching of JSON values.
type Cache struct {
	l1         sync.Map // key -> *entry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	prefix     string
	group      singleflight.Group
	logger     *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	done     chan struct{}
	stopOnce sync.Once
}

// New sets up the cache. An unreachable or invalid Redis URL disables L2
// with a warning instead of failing.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 6 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ares"
	}

	c := &Cache{
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		prefix:     cfg.Prefix,
		logger:     logger,
		done:       make(chan struct{}),
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				logger.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				logger.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	go c.cleanupLoop(cfg.CleanupInterval)
	return c
}

// Key builds a deterministic cache key from parts.
func (c *Cache) Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%x", c.prefix, hash[:12])
}

// Get loads the value stored under key into dst. It tries L1, then L2; an
// L2 hit repopulates L1.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if time.Now().Before(e.expiresAt) && json.Unmarshal(e.data, dst) == nil {
			c.hits.Add(1)
			return true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil && json.Unmarshal(data, dst) == nil {
			c.hits.Add(1)
			c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})
			return true
		}
		if err != nil && err != redis.Nil {
			c.logger.Debug("cache: L2 get failed", slog.Any("error", err))
		}
	}

	c.misses.Add(1)
	return false
}

// Set stores value in both tiers.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("cache: marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Redis reports whether L2 is active.
func (c *Cache) Redis() bool {
	return c.rdb != nil
}

// Close stops the cleanup loop and closes the Redis connection.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.done) })
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// GetOrLoad returns the cached value for key or calls load once, even when
// several goroutines ask for the same key concurrently, and caches its result.
// Load errors are not cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if c.Get(ctx, key, &out) {
		return out, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		var cached T
		if c.Get(ctx, key, &cached) {
			return cached, nil
		}
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		case <-c.done:
			return
		}
	}
}

// evictIfNeeded removes expired entries, then the entries closest to expiry,
// until L1 is below MaxEntries.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := now.Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if e, ok := val.(*entry); ok && e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}
