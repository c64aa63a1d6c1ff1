package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BlacklistStore persists revocations outside the process.
type BlacklistStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Add(ctx context.Context, ticketID, reason string) error
}

// BlacklistEntry describes one revoked ticket.
type BlacklistEntry struct {
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

// Blacklist is the in-process revocation set. Every change that adds a ticket
// bumps Generation so memoized verdicts written earlier can be discarded.
type Blacklist struct {
	mu          sync.RWMutex
	entries     map[string]BlacklistEntry
	unpersisted map[string]BlacklistEntry
	// local holds revocations made here that no Load has returned yet.
	local       map[string]BlacklistEntry
	generation  atomic.Uint64
	store       BlacklistStore
	now         func() time.Time
}

// BlacklistOption configures a Blacklist.
type BlacklistOption func(*Blacklist)

// WithBlacklistClock overrides the time source.
func WithBlacklistClock(now func() time.Time) BlacklistOption {
	return func(b *Blacklist) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBlacklist builds an empty blacklist. store may be nil for a purely local set.
func NewBlacklist(store BlacklistStore, opts ...BlacklistOption) *Blacklist {
	b := &Blacklist{
		entries:     make(map[string]BlacklistEntry),
		unpersisted: make(map[string]BlacklistEntry),
		local:       make(map[string]BlacklistEntry),
		store:       store,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Contains reports whether ticketID is revoked.
func (b *Blacklist) Contains(ticketID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[ticketID]
	return ok
}

// Generation returns a counter that increases whenever a ticket is revoked.
func (b *Blacklist) Generation() uint64 {
	return b.generation.Load()
}

// Len returns the number of revoked tickets.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Entries returns a copy of the revocation set.
func (b *Blacklist) Entries() map[string]BlacklistEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]BlacklistEntry, len(b.entries))
	for id, e := range b.entries {
		out[id] = e
	}
	return out
}

// Add revokes ticketID. The revocation applies to this process immediately;
// a persistence failure is returned and retried on the next Reload.
func (b *Blacklist) Add(ctx context.Context, ticketID, reason string) error {
	if ticketID == "" {
		return errors.New("ticket id required")
	}
	entry := BlacklistEntry{Reason: reason, AddedAt: b.now()}

	b.mu.Lock()
	if prev, exists := b.entries[ticketID]; exists {
		entry = prev
	} else {
		b.entries[ticketID] = entry
		b.generation.Add(1)
	}
	b.local[ticketID] = entry
	b.mu.Unlock()

	if b.store == nil {
		return nil
	}
	if err := b.store.Add(ctx, ticketID, reason); err != nil {
		b.mu.Lock()
		b.unpersisted[ticketID] = entry
		b.mu.Unlock()
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// Reload replaces the set with the persisted one. Local revocations are kept
// until a Load returns them, so an Add racing the Load is never dropped.
// Revocations that failed to persist are persisted again.
func (b *Blacklist) Reload(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	b.mu.RLock()
	retry := make(map[string]BlacklistEntry, len(b.unpersisted))
	for id, e := range b.unpersisted {
		retry[id] = e
	}
	b.mu.RUnlock()

	var persistErr error
	persisted := make([]string, 0, len(retry))
	for id, e := range retry {
		if err := b.store.Add(ctx, id, e.Reason); err != nil {
			persistErr = errors.Join(persistErr, err)
			continue
		}
		persisted = append(persisted, id)
	}

	loaded, err := b.store.Load(ctx)
	if err != nil {
		return errors.Join(persistErr, fmt.Errorf("load blacklist: %w", err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range persisted {
		delete(b.unpersisted, id)
	}
	next := make(map[string]BlacklistEntry, len(loaded)+len(b.unpersisted))
	added := false
	for id, reason := range loaded {
		if prev, ok := b.entries[id]; ok {
			next[id] = prev
			continue
		}
		next[id] = BlacklistEntry{Reason: reason, AddedAt: b.now()}
		added = true
	}
	for id, e := range b.unpersisted {
		next[id] = e
	}
	for id, e := range b.local {
		if _, seen := loaded[id]; seen {
			delete(b.local, id)
			continue
		}
		next[id] = e
	}
	b.entries = next
	if added {
		b.generation.Add(1)
	}
	return persistErr
}
