package lifecycle

import (
	"sync"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/health"
)

// cacheTTL bounds probe frequency so a struggling service is not hammered
// by status queries. Entries expire by TTL only; lifecycle commands do not
// invalidate them.
const cacheTTL = 30 * time.Second

type cachedResult struct {
	result   health.Result
	storedAt time.Time
}

// resultCache is a read-through TTL cache of health results keyed by
// service name. Entries are replaced atomically under the lock so
// concurrent readers never observe a half-written result.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedResult
	now     func() time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = cacheTTL
	}
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cachedResult),
		now:     time.Now,
	}
}

// get returns the cached result for name if it is still fresh.
func (c *resultCache) get(name string) (health.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[name]
	if !ok || c.now().Sub(entry.storedAt) >= c.ttl {
		return health.Result{}, false
	}
	return entry.result, true
}

// put stores a fresh result for name.
func (c *resultCache) put(name string, result health.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = cachedResult{result: result, storedAt: c.now()}
}
