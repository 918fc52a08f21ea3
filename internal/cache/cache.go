package cache

import (
	"bytes"
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
)

const (
	// DefaultMaxEntries bounds memory when run reports are large.
	DefaultMaxEntries = 256
	sweepInterval     = 5 * time.Minute
)

// CacheItem is one stored response body.
type CacheItem struct {
	Key         string    `json:"-"`
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c *CacheItem) expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries caps the entry count; the least recently used entry goes
// first.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// Cache is a TTL plus LRU response cache safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	ttl        time.Duration
	maxEntries int
	evictions  int64
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewCache creates a cache and starts its background sweeper. Call Close
// to stop it.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepEvery(sweepInterval)
	return c
}

func (c *Cache) sweepEvery(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		if e.Value.(*CacheItem).expired(now) {
			c.remove(e)
		}
		e = prev
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Key hashes a request URI into a fixed-length cache key.
func Key(requestURI string) string {
	sum := sha256.Sum256([]byte(requestURI))
	return hex.EncodeToString(sum[:12])
}

// Get returns a live entry and marks it recently used.
func (c *Cache) Get(key string) (*CacheItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := e.Value.(*CacheItem)
	if item.expired(c.now()) {
		c.remove(e)
		return nil, false
	}
	c.order.MoveToFront(e)
	return item, true
}

// Set stores data under key, evicting the least recently used entries
// beyond the cap.
func (c *Cache) Set(key string, data []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &CacheItem{Key: key, Data: data, ContentType: contentType, ExpiresAt: c.now().Add(c.ttl)}
	if e, ok := c.items[key]; ok {
		e.Value = item
		c.order.MoveToFront(e)
		return
	}
	c.items[key] = c.order.PushFront(item)
	for c.order.Len() > c.maxEntries {
		c.remove(c.order.Back())
		c.evictions++
	}
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Size is the number of stored entries, expired or not.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) remove(e *list.Element) {
	c.order.Remove(e)
	delete(c.items, e.Value.(*CacheItem).Key)
}

// Stats reports entry counts for /metrics.
func (c *Cache) Stats() map[string]interface{} {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for e := c.order.Front(); e != nil; e = e.Next() {
		if e.Value.(*CacheItem).expired(now) {
			expired++
		}
	}
	total := c.order.Len()
	return map[string]interface{}{
		"total_items":   total,
		"expired_items": expired,
		"active_items":  total - expired,
		"max_items":     c.maxEntries,
		"evictions":     c.evictions,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware caches successful GET responses under prefix. Stored runs
// never change, so the only invalidation needed is Clear after erasure.
func (c *Cache) Middleware(prefix string, metrics *monitoring.Metrics, logger *monitoring.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = monitoring.NewNopLogger()
	}
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet || !strings.HasPrefix(ctx.Request.URL.Path, prefix) {
			ctx.Next()
			return
		}

		key := Key(ctx.Request.URL.RequestURI())
		item, hit := c.Get(key)
		logger.CacheLogger("lookup", key[:8], hit, c.Size())
		if metrics != nil {
			if hit {
				metrics.IncrementCacheHit()
			} else {
				metrics.IncrementCacheMiss()
			}
		}

		if hit {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, item.ContentType, item.Data)
			ctx.Abort()
			return
		}

		rec := &recorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		if rec.Status() == http.StatusOK && len(ctx.Errors) == 0 {
			c.Set(key, rec.body.Bytes(), rec.Header().Get("Content-Type"))
		}
	}
}

// recorder tees the response body so it can be stored after the handler.
type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *recorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
