package validation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBlacklistStore struct {
	mock.Mock
}

func (m *mockBlacklistStore) Load(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	loaded, _ := args.Get(0).(map[string]string)
	return loaded, args.Error(1)
}

func (m *mockBlacklistStore) Add(ctx context.Context, ticketID, reason string) error {
	args := m.Called(ctx, ticketID, reason)
	return args.Error(0)
}

func TestBlacklistAddTakesEffectImmediately(t *testing.T) {
	store := new(mockBlacklistStore)
	store.On("Add", mock.Anything, "t-1", "chargeback").Return(nil)
	bl := NewBlacklist(store)

	require.NoError(t, bl.Add(context.Background(), "t-1", "chargeback"))

	assert.True(t, bl.Contains("t-1"))
	assert.False(t, bl.Contains("t-2"))
	assert.Equal(t, uint64(1), bl.Generation())
	assert.Equal(t, "chargeback", bl.Entries()["t-1"].Reason)
	store.AssertExpectations(t)
}

func TestBlacklistAddIsIdempotentForGeneration(t *testing.T) {
	bl := NewBlacklist(nil)
	ctx := context.Background()

	require.NoError(t, bl.Add(ctx, "t-1", "fraud"))
	require.NoError(t, bl.Add(ctx, "t-1", "fraud"))

	assert.Equal(t, uint64(1), bl.Generation())
	assert.Equal(t, 1, bl.Len())
	assert.Error(t, bl.Add(ctx, "", "x"))
}

func TestBlacklistKeepsUnpersistedRevocationAcrossReload(t *testing.T) {
	store := new(mockBlacklistStore)
	ctx := context.Background()
	store.On("Add", mock.Anything, "t-1", "fraud").Return(errors.New("redis down")).Once()
	bl := NewBlacklist(store)

	err := bl.Add(ctx, "t-1", "fraud")
	require.Error(t, err)
	assert.True(t, bl.Contains("t-1"), "local revocation survives persistence failure")

	store.On("Add", mock.Anything, "t-1", "fraud").Return(errors.New("still down")).Once()
	store.On("Load", mock.Anything).Return(map[string]string{"t-9": "lost"}, nil).Once()
	err = bl.Reload(ctx)
	require.Error(t, err)
	assert.True(t, bl.Contains("t-1"))
	assert.True(t, bl.Contains("t-9"))

	store.On("Add", mock.Anything, "t-1", "fraud").Return(nil).Once()
	store.On("Load", mock.Anything).Return(map[string]string{"t-1": "fraud"}, nil).Once()
	require.NoError(t, bl.Reload(ctx))
	assert.True(t, bl.Contains("t-1"))
	assert.False(t, bl.Contains("t-9"), "reload replaces the persisted set")
	store.AssertExpectations(t)
}

func TestBlacklistReloadBumpsGenerationOnlyForNewRevocations(t *testing.T) {
	store := new(mockBlacklistStore)
	ctx := context.Background()
	store.On("Load", mock.Anything).Return(map[string]string{"t-1": "fraud"}, nil).Twice()
	bl := NewBlacklist(store)

	require.NoError(t, bl.Reload(ctx))
	assert.Equal(t, uint64(1), bl.Generation())

	require.NoError(t, bl.Reload(ctx))
	assert.Equal(t, uint64(1), bl.Generation())
}

func TestBlacklistReloadLoadFailureKeepsCurrentSet(t *testing.T) {
	store := new(mockBlacklistStore)
	ctx := context.Background()
	store.On("Add", mock.Anything, "t-1", "x").Return(nil)
	store.On("Load", mock.Anything).Return(nil, errors.New("timeout"))
	bl := NewBlacklist(store)
	require.NoError(t, bl.Add(ctx, "t-1", "x"))

	assert.Error(t, bl.Reload(ctx))
	assert.True(t, bl.Contains("t-1"))
}

type racingStore struct {
	mu     sync.Mutex
	items  map[string]string
	onLoad func()
}

func (s *racingStore) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	snapshot := make(map[string]string, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	hook := s.onLoad
	s.onLoad = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return snapshot, nil
}

func (s *racingStore) Add(_ context.Context, ticketID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[ticketID] = reason
	return nil
}

func TestBlacklistAddDuringReloadIsKept(t *testing.T) {
	store := &racingStore{items: map[string]string{"t-0": "old"}}
	bl := NewBlacklist(store)
	ctx := context.Background()
	store.onLoad = func() {
		require.NoError(t, bl.Add(ctx, "t-1", "fraud"))
	}

	require.NoError(t, bl.Reload(ctx))
	assert.True(t, bl.Contains("t-0"))
	assert.True(t, bl.Contains("t-1"), "revocation made while the snapshot was taken")
	assert.Equal(t, "fraud", store.items["t-1"])

	require.NoError(t, bl.Reload(ctx))
	assert.True(t, bl.Contains("t-1"), "kept once the store returns it")
	assert.Equal(t, 2, bl.Len())
}
