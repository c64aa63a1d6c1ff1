package validation

import (
	"sync"
	"time"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// DefaultHistorySize is the number of attempts kept per ticket.
const DefaultHistorySize = 10

// History keeps a bounded ring buffer of validation attempts per ticket. Each
// ticket has its own lock, so unrelated tickets never contend.
type History struct {
	capacity int
	logs     sync.Map // ticketID -> *ticketLog
}

type ticketLog struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	start   int
	size    int
	pending bool
	removed bool
	// admittedAt is the latest successful attempt. It outlives ring eviction.
	admittedAt time.Time
}

// NewHistory builds a history keeping capacity attempts per ticket.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{capacity: capacity}
}

// lock returns the locked log for ticketID, creating it if needed.
func (h *History) lock(ticketID string) *ticketLog {
	for {
		v, _ := h.logs.LoadOrStore(ticketID, &ticketLog{entries: make([]domain.HistoryEntry, h.capacity)})
		log := v.(*ticketLog)
		log.mu.Lock()
		if !log.removed {
			return log
		}
		log.mu.Unlock()
	}
}

func (l *ticketLog) push(e domain.HistoryEntry) {
	if e.Valid && e.Timestamp.After(l.admittedAt) {
		l.admittedAt = e.Timestamp
	}
	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = e
		l.size++
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % capacity
}

func (l *ticketLog) snapshot() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.entries[(l.start+i)%len(l.entries)])
	}
	return out
}

func (l *ticketLog) last() (domain.HistoryEntry, bool) {
	if l.size == 0 {
		return domain.HistoryEntry{}, false
	}
	return l.entries[(l.start+l.size-1)%len(l.entries)], true
}

// admittedWithin reports whether the latest successful attempt falls within
// window of now, whether or not it is still in the ring.
func (l *ticketLog) admittedWithin(now time.Time, window time.Duration) bool {
	if l.admittedAt.IsZero() {
		return false
	}
	return now.Sub(l.admittedAt) < window
}

// Append records an attempt for ticketID.
func (h *History) Append(ticketID string, e domain.HistoryEntry) {
	log := h.lock(ticketID)
	defer log.mu.Unlock()
	log.push(e)
}

// Entries returns the recorded attempts for ticketID, oldest first.
func (h *History) Entries(ticketID string) []domain.HistoryEntry {
	v, ok := h.logs.Load(ticketID)
	if !ok {
		return []domain.HistoryEntry{}
	}
	log := v.(*ticketLog)
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.snapshot()
}

// Claim reserves the admitting scan for ticketID. It fails when a successful
// attempt was recorded within window of now, or another claim is in flight.
// At most one claim per ticket is outstanding at any time.
func (h *History) Claim(ticketID string, now time.Time, window time.Duration) (*Claim, bool) {
	log := h.lock(ticketID)
	defer log.mu.Unlock()
	if log.pending || log.admittedWithin(now, window) {
		return nil, false
	}
	log.pending = true
	return &Claim{log: log}, true
}

// Claim is an outstanding admission reservation.
type Claim struct {
	log  *ticketLog
	once sync.Once
}

// Commit records the attempt and releases the reservation.
func (c *Claim) Commit(e domain.HistoryEntry) {
	c.once.Do(func() {
		c.log.mu.Lock()
		defer c.log.mu.Unlock()
		c.log.push(e)
		c.log.pending = false
	})
}

// Release drops the reservation without recording. It is a no-op after Commit.
func (c *Claim) Release() {
	c.once.Do(func() {
		c.log.mu.Lock()
		defer c.log.mu.Unlock()
		c.log.pending = false
	})
}

// Prune forgets tickets whose latest attempt is older than before and that
// have no claim in flight. It returns the number of tickets removed.
func (h *History) Prune(before time.Time) int {
	removed := 0
	h.logs.Range(func(key, value any) bool {
		log := value.(*ticketLog)
		log.mu.Lock()
		last, ok := log.last()
		if !log.pending && (!ok || last.Timestamp.Before(before)) {
			log.removed = true
			h.logs.Delete(key)
			removed++
		}
		log.mu.Unlock()
		return true
	})
	return removed
}

// Range calls fn with a snapshot of every ticket's attempts.
func (h *History) Range(fn func(ticketID string, entries []domain.HistoryEntry)) {
	h.logs.Range(func(key, value any) bool {
		log := value.(*ticketLog)
		log.mu.Lock()
		entries := log.snapshot()
		log.mu.Unlock()
		fn(key.(string), entries)
		return true
	})
}
