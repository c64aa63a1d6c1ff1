package validation

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

func entryAt(ts time.Time, valid bool) domain.HistoryEntry {
	e := domain.HistoryEntry{Timestamp: ts, Valid: valid, Method: domain.MethodOffline}
	if !valid {
		e.Reason = domain.ReasonDuplicate
	}
	return e
}

func TestHistoryIsBoundedRingBuffer(t *testing.T) {
	h := NewHistory(3)
	base := newClock().Now()
	for i := 0; i < 5; i++ {
		h.Append("t-1", entryAt(base.Add(time.Duration(i)*time.Second), true))
	}

	entries := h.Entries("t-1")
	require.Len(t, entries, 3)
	assert.Equal(t, base.Add(2*time.Second), entries[0].Timestamp)
	assert.Equal(t, base.Add(4*time.Second), entries[2].Timestamp)
	assert.Empty(t, h.Entries("unknown"))
}

func TestClaimRejectsRecentAdmission(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()
	window := time.Minute

	claim, ok := h.Claim("t-1", now, window)
	require.True(t, ok)
	claim.Commit(entryAt(now, true))

	_, ok = h.Claim("t-1", now.Add(59*time.Second), window)
	assert.False(t, ok, "inside replay window")

	_, ok = h.Claim("t-1", now.Add(time.Minute), window)
	assert.True(t, ok, "window is exclusive at its end")
}

func TestClaimLooksPastFailedAttempts(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()
	h.Append("t-1", entryAt(now, true))
	h.Append("t-1", entryAt(now.Add(time.Second), false))

	_, ok := h.Claim("t-1", now.Add(2*time.Second), time.Minute)
	assert.False(t, ok, "a later duplicate must not mask the admission")
}

func TestAdmissionOutlivesRingEviction(t *testing.T) {
	h := NewHistory(3)
	now := newClock().Now()
	window := time.Minute

	claim, ok := h.Claim("t-1", now, window)
	require.True(t, ok)
	claim.Commit(entryAt(now, true))
	for i := 1; i <= 5; i++ {
		h.Append("t-1", entryAt(now.Add(time.Duration(i)*time.Second), false))
	}

	entries := h.Entries("t-1")
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.False(t, e.Valid, "admitting entry evicted from the ring")
	}

	_, ok = h.Claim("t-1", now.Add(10*time.Second), window)
	assert.False(t, ok, "rejected rescans must not reopen the window")

	_, ok = h.Claim("t-1", now.Add(window), window)
	assert.True(t, ok)
}

func TestPendingClaimBlocksSecondClaim(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()

	claim, ok := h.Claim("t-1", now, time.Minute)
	require.True(t, ok)
	_, ok = h.Claim("t-1", now, time.Minute)
	assert.False(t, ok)

	claim.Release()
	claim.Release()
	_, ok = h.Claim("t-1", now, time.Minute)
	assert.True(t, ok)
	assert.Empty(t, h.Entries("t-1"), "release records nothing")
}

func TestConcurrentClaimsAdmitExactlyOnce(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()
	var admitted atomic.Int32

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if claim, ok := h.Claim("t-1", now, time.Minute); ok {
				admitted.Add(1)
				claim.Commit(entryAt(now, true))
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestPruneForgetsIdleTickets(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()
	h.Append("old", entryAt(now.Add(-2*time.Hour), true))
	h.Append("new", entryAt(now, true))
	claim, ok := h.Claim("pending", now, time.Minute)
	require.True(t, ok)

	removed := h.Prune(now.Add(-time.Hour))

	assert.Equal(t, 1, removed)
	assert.Empty(t, h.Entries("old"))
	assert.Len(t, h.Entries("new"), 1)

	claim.Commit(entryAt(now, true))
	assert.Len(t, h.Entries("pending"), 1)
}

func TestRangeVisitsEveryTicket(t *testing.T) {
	h := NewHistory(10)
	now := newClock().Now()
	h.Append("a", entryAt(now, true))
	h.Append("b", entryAt(now, false))
	h.Append("b", entryAt(now, true))

	seen := map[string]int{}
	h.Range(func(id string, entries []domain.HistoryEntry) {
		seen[id] = len(entries)
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}
