package validation

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// CacheEntry is a memoized offline verdict for one payload.
type CacheEntry struct {
	Key        string
	TicketID   string
	Result     domain.ValidationResult
	InsertedAt time.Time
	TTL        time.Duration
	// Generation is the blacklist generation observed when the entry was written.
	Generation uint64
}

func (e CacheEntry) expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Cache is a capacity-bounded TTL map from payload hash to verdict. When full
// it evicts the oldest insertion first.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	order    *list.List
	entries  map[string]*list.Element
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock overrides the time source.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache builds a cache holding at most capacity entries for ttl each.
func NewCache(capacity int, ttl time.Duration, opts ...CacheOption) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	c := &Cache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Key hashes an encoded payload into a cache key.
func Key(encoded string) string {
	sum := sha256.Sum256([]byte(encoded))
	return hex.EncodeToString(sum[:])
}

// Get returns the live entry for key. Expired entries are dropped.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	entry := el.Value.(CacheEntry)
	if entry.expired(c.now()) {
		c.removeElement(el)
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores result under key. A rewrite counts as a fresh insertion.
func (c *Cache) Put(key, ticketID string, result domain.ValidationResult, generation uint64) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	for c.order.Len() >= c.capacity {
		c.removeElement(c.order.Front())
	}
	entry := CacheEntry{
		Key:        key,
		TicketID:   ticketID,
		Result:     result,
		InsertedAt: c.now(),
		TTL:        c.ttl,
		Generation: generation,
	}
	c.entries[key] = c.order.PushBack(entry)
}

// Invalidate drops key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// InvalidateTicket drops every entry for ticketID and returns how many went.
func (c *Cache) InvalidateTicket(ticketID string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(CacheEntry).TicketID == ticketID {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.capacity)
}

func (c *Cache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(CacheEntry)
	delete(c.entries, entry.Key)
}
