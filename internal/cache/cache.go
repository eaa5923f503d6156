package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bjaergning/rapport/internal/config"
	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DocumentCachePrefix is the key prefix of rendered report documents.
const DocumentCachePrefix = "report-pdf-"

// DocumentCacheTag groups all rendered documents so they can be cleared without touching
// other keys of a shared store.
const DocumentCacheTag = "report-pdf"

// ErrMiss is returned when a document is not cached.
var ErrMiss = errors.New("cache miss")

// DocumentCache stores rendered PDF documents by report id.
type DocumentCache struct {
	cache  *cache.Cache[any]
	prefix string
	ttl    time.Duration
}

// NewDocumentCache creates a document cache backed by the configured store.
func NewDocumentCache(cfg *config.CacheConfig) *DocumentCache {
	ttl := time.Hour
	if cfg != nil && cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	return &DocumentCache{
		cache:  newCacheInstanceByType(cfg, ttl),
		prefix: DocumentCachePrefix,
		ttl:    ttl,
	}
}

func (d *DocumentCache) key(reportID uint) string {
	return fmt.Sprintf("%s%d", d.prefix, reportID)
}

// Get returns the cached document of a report, or ErrMiss.
func (d *DocumentCache) Get(ctx context.Context, reportID uint) ([]byte, error) {
	value, err := d.cache.Get(ctx, d.key(reportID))
	if err != nil {
		return nil, ErrMiss
	}
	// the redis store hands values back as strings
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, ErrMiss
	}
}

// Set stores the document of a report.
func (d *DocumentCache) Set(ctx context.Context, reportID uint, pdf []byte) error {
	return d.cache.Set(ctx, d.key(reportID), pdf,
		store.WithExpiration(d.ttl),
		store.WithTags([]string{DocumentCacheTag}),
	)
}

// Delete removes the document of a report.
func (d *DocumentCache) Delete(ctx context.Context, reportID uint) error {
	return d.cache.Delete(ctx, d.key(reportID))
}

// Clear removes all cached documents. Other keys in the store are left alone.
func (d *DocumentCache) Clear(ctx context.Context) error {
	return d.cache.Invalidate(ctx, store.WithInvalidateTags([]string{DocumentCacheTag}))
}

// GetType returns the cache type.
func (d *DocumentCache) GetType() string {
	return d.cache.GetType()
}

// GetStats returns the cache statistics.
func (d *DocumentCache) GetStats() *codec.Stats {
	return d.cache.GetCodec().GetStats()
}

func newCacheInstanceByType(cfg *config.CacheConfig, ttl time.Duration) *cache.Cache[any] {
	if cfg == nil {
		return newMemoryCache(ttl)
	}
	switch cfg.Type {
	case config.CacheTypeMemory:
		return newMemoryCache(ttl)
	case config.CacheTypeRedis:
		return newRedisCache(cfg.RedisURL)
	default:
		log.Warn("unknown cache type, falling back to memory", "type", cfg.Type)
		return newMemoryCache(ttl)
	}
}

func newMemoryCache(ttl time.Duration) *cache.Cache[any] {
	gocacheClient := gocache.New(ttl, 10*time.Minute)
	gocacheStore := go_store.NewGoCache(gocacheClient)
	return cache.New[any](gocacheStore)
}

// newRedisCache accepts a redis:// URL or a plain host:port address.
func newRedisCache(redisURL string) *cache.Cache[any] {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	redisClient := redis.NewClient(opts)
	redisStore := redis_store.NewRedis(redisClient)
	return cache.New[any](redisStore)
}
