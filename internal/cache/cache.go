package cache

import (
	"errors"
	"fmt"

	cache_structs "httpProxy/internal/cache/structs"
	"httpProxy/internal/logging"
	"httpProxy/internal/metrics"
)

const (
	MaxObjectSize = 102400
	MaxCacheSize  = 1049000
)

var ErrObjectTooLarge = errors.New("object exceeds maximum cacheable size")

// Cache pairs a Store with the Coordinator that guards it. It is built once
// and shared by every connection handler.
type Cache struct {
	store         *Store
	coordinator   *Coordinator
	maxObjectSize int
	logger        logging.Logger
}

func NewCache(maxObjectSize int, logger logging.Logger) *Cache {
	if maxObjectSize <= 0 {
		maxObjectSize = MaxObjectSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Cache{
		store:         NewStore(),
		coordinator:   &Coordinator{},
		maxObjectSize: maxObjectSize,
		logger:        logger,
	}
}

func (c *Cache) MaxObjectSize() int {
	return c.maxObjectSize
}

// Get looks key up under read permission.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.coordinator.AcquireRead()
	value, ok := c.store.Lookup([]byte(key))
	c.coordinator.ReleaseRead()

	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		c.logger.Log(logging.LogLevelDebug, "Cache hit for request: %q", key)
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		c.logger.Log(logging.LogLevelDebug, "Cache miss for request: %q", key)
	}
	return value, ok
}

// Put stores value under write permission. Values larger than the maximum
// object size are rejected.
func (c *Cache) Put(key string, value []byte) error {
	if len(value) > c.maxObjectSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrObjectTooLarge, len(value), c.maxObjectSize)
	}

	c.coordinator.AcquireWrite()
	idx, evicted := c.store.Insert([]byte(key), value)
	entries, size := c.store.Len(), c.store.Size()
	c.coordinator.ReleaseWrite()

	metrics.CacheInserts.Inc()
	if evicted {
		metrics.CacheEvictions.Inc()
	}
	metrics.CacheEntries.Set(float64(entries))
	metrics.CacheBytes.Set(float64(size))

	c.logger.Log(logging.LogLevelDebug, "Stored %d bytes for %q in slot %d (evicted: %t)", len(value), key, idx, evicted)
	return nil
}

func (c *Cache) Len() int {
	c.coordinator.AcquireRead()
	defer c.coordinator.ReleaseRead()
	return c.store.Len()
}

func (c *Cache) Snapshot() []cache_structs.SlotInfo {
	c.coordinator.AcquireRead()
	defer c.coordinator.ReleaseRead()
	return c.store.Snapshot()
}

// Purge empties every slot.
func (c *Cache) Purge() {
	c.coordinator.AcquireWrite()
	c.store.Reset()
	c.coordinator.ReleaseWrite()

	metrics.CacheEntries.Set(0)
	metrics.CacheBytes.Set(0)
	c.logger.Log(logging.LogLevelInfo, "Cache purged")
}
