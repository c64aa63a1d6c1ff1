package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/service"
	"github.com/paraiso-astral/gate-service/internal/validation"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func (r *countingReloader) Len() int { return 0 }

func TestBlacklistRefresherReloadsUntilCancelled(t *testing.T) {
	reloader := &countingReloader{err: errors.New("redis down")}
	refresher := NewBlacklistRefresher(reloader, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return reloader.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestHistoryPrunerDropsIdleTickets(t *testing.T) {
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)
	history := validation.NewHistory(10)
	history.Append("old", domain.HistoryEntry{Timestamp: now.Add(-48 * time.Hour), Valid: true})
	history.Append("fresh", domain.HistoryEntry{Timestamp: now.Add(-time.Hour), Valid: true})

	pruner := NewHistoryPruner(history, 24*time.Hour, nil)
	pruner.now = func() time.Time { return now }

	assert.Equal(t, 1, pruner.PruneOnce())
	assert.Empty(t, history.Entries("old"))
	assert.Len(t, history.Entries("fresh"), 1)
	assert.Equal(t, 6*time.Hour, pruner.interval)
}

func TestHistoryPrunerStopsOnCancel(t *testing.T) {
	pruner := NewHistoryPruner(validation.NewHistory(1), time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		pruner.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop")
	}
}

func TestStartEventSubscribers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartEventSubscribers(dispatcher, service.NewAuditService(dispatcher, nil), nil)
	StartEventSubscribers(nil, nil, nil)

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventTicketValidated,
		Payload: events.TicketValidatedPayload{Valid: false, Reason: domain.ReasonRevoked},
	}))
}
