package persistence_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/persistence"
	"github.com/vytor/logicbuild/internal/progress"
	"github.com/vytor/logicbuild/internal/repository"
	"github.com/vytor/logicbuild/internal/repository/sqlite"
	"github.com/vytor/logicbuild/internal/testutil"
	"github.com/vytor/logicbuild/internal/testutil/mocks"
	"github.com/vytor/logicbuild/internal/worker"
)

// memoryStore is a StateStore that counts writes.
type memoryStore struct {
	mu      sync.Mutex
	states  map[string]models.StoredState
	upserts int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: map[string]models.StoredState{}}
}

func (s *memoryStore) Get(_ context.Context, playerID string) (*models.StoredState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[playerID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *memoryStore) Upsert(_ context.Context, state models.StoredState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.states[state.PlayerID] = state
	return nil
}

func (s *memoryStore) Delete(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, playerID)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func newPool(t *testing.T) *worker.Pool {
	t.Helper()
	pool := worker.NewPool(1, 4)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	return pool
}

func newKV(t *testing.T) repository.KeyValueStore {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewKeyValueStore(db)
}

func stateWithXP(xp int) *models.GameState {
	s := progress.NewGameState(models.DifficultyBeginner)
	s.TotalXP = xp
	return s
}

func xpOf(t *testing.T, data []byte) int {
	t.Helper()
	var s models.GameState
	require.NoError(t, json.Unmarshal(data, &s))
	return s.TotalXP
}

func TestSave_CoalescesBurstIntoOneRemoteWrite(t *testing.T) {
	ctx := context.Background()
	remote := newMemoryStore()
	g := persistence.New(remote, newKV(t), newPool(t), 40*time.Millisecond)

	for xp := 10; xp <= 50; xp += 10 {
		g.Save(ctx, stateWithXP(xp))
	}

	require.Eventually(t, func() bool { return remote.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, remote.count())

	stored, err := remote.Get(ctx, g.PlayerID(ctx))
	require.NoError(t, err)
	assert.Equal(t, 50, xpOf(t, stored.Data))
}

func TestSave_WritesLocalCacheImmediately(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	g := persistence.New(newMemoryStore(), kv, newPool(t), time.Hour)

	g.Save(ctx, stateWithXP(30))

	value, ok, err := kv.Get(ctx, persistence.StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30, xpOf(t, []byte(value)))
}

func TestPlayerID_GeneratedOnceAndReused(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)

	first := persistence.New(newMemoryStore(), kv, newPool(t), time.Hour).PlayerID(ctx)
	second := persistence.New(newMemoryStore(), kv, newPool(t), time.Hour).PlayerID(ctx)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestLoad_RemoteFirstAndRefreshesLocal(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	remote := newMemoryStore()
	g := persistence.New(remote, kv, newPool(t), time.Hour)

	data, err := json.Marshal(stateWithXP(70))
	require.NoError(t, err)
	require.NoError(t, remote.Upsert(ctx, models.StoredState{PlayerID: g.PlayerID(ctx), Data: data}))
	require.NoError(t, kv.Set(ctx, persistence.StateKey, `{"stale":true}`))

	state, source := g.Load(ctx)
	require.NotNil(t, state)
	assert.Equal(t, models.SourceRemote, source)
	assert.Equal(t, 70, state.TotalXP)

	value, ok, err := kv.Get(ctx, persistence.StateKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 70, xpOf(t, []byte(value)))
}

func TestLoad_RemoteUnreachableUsesLocalCache(t *testing.T) {
	ctx := context.Background()
	remote := new(mocks.MockStateStore)
	remote.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))
	remote.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("dial tcp: connection refused"))

	g := persistence.New(remote, newKV(t), newPool(t), time.Hour)
	g.Save(ctx, stateWithXP(20))

	state, source := g.Load(ctx)
	require.NotNil(t, state)
	assert.Equal(t, models.SourceLocal, source)
	assert.Equal(t, 20, state.TotalXP)
}

func TestLoad_InvalidRemoteFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	remote := newMemoryStore()
	kv := newKV(t)
	g := persistence.New(remote, kv, newPool(t), time.Hour)

	require.NoError(t, remote.Upsert(ctx, models.StoredState{PlayerID: g.PlayerID(ctx), Data: []byte(`{"bosses":[]}`)}))
	data, err := json.Marshal(stateWithXP(40))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, persistence.StateKey, string(data)))

	state, source := g.Load(ctx)
	require.NotNil(t, state)
	assert.Equal(t, models.SourceLocal, source)
	assert.Equal(t, 40, state.TotalXP)
}

func TestLoad_FallbacksAreCountedAsStateLoads(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	remote := newMemoryStore()
	g := persistence.New(remote, newKV(t), newPool(t), time.Hour, persistence.WithMetrics(m))
	require.NoError(t, remote.Upsert(ctx, models.StoredState{PlayerID: g.PlayerID(ctx), Data: []byte("{")}))

	g.Load(ctx)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `logicbuild_state_load_fallback_total{reason="invalid_state"} 1`)
	assert.NotContains(t, rec.Body.String(), `logicbuild_content_fallback_total{`)
}

func TestLoad_BothAbsent(t *testing.T) {
	g := persistence.New(newMemoryStore(), newKV(t), newPool(t), time.Hour)

	state, source := g.Load(context.Background())
	assert.Nil(t, state)
	assert.Empty(t, source)
}

func TestLoad_CorruptLocalIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	require.NoError(t, kv.Set(ctx, persistence.StateKey, "not json"))
	g := persistence.New(newMemoryStore(), kv, newPool(t), time.Hour)

	state, _ := g.Load(ctx)
	assert.Nil(t, state)
}

func TestReset_RemoteFailureStillClearsLocal(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	remote := new(mocks.MockStateStore)
	remote.On("Delete", mock.Anything, mock.Anything).Return(errors.New("timeout"))

	g := persistence.New(remote, kv, newPool(t), time.Hour)
	playerID := g.PlayerID(ctx)
	require.NoError(t, kv.Set(ctx, persistence.StateKey, "{}"))

	assert.NotPanics(t, func() { g.Reset(ctx) })

	_, ok, err := kv.Get(ctx, persistence.StateKey)
	require.NoError(t, err)
	assert.False(t, ok)

	token, ok, err := kv.Get(ctx, persistence.PlayerIDKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, playerID, token)
	remote.AssertCalled(t, "Delete", mock.Anything, playerID)
}

func TestReset_CancelsPendingWrite(t *testing.T) {
	ctx := context.Background()
	remote := newMemoryStore()
	g := persistence.New(remote, newKV(t), newPool(t), 30*time.Millisecond)

	g.Save(ctx, stateWithXP(10))
	g.Reset(ctx)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, remote.count())
	state, _ := g.Load(ctx)
	assert.Nil(t, state)
}

func TestFlush_WritesPendingSnapshot(t *testing.T) {
	ctx := context.Background()
	remote := newMemoryStore()
	g := persistence.New(remote, newKV(t), newPool(t), time.Hour)

	g.Flush(ctx)
	assert.Equal(t, 0, remote.count())

	g.Save(ctx, stateWithXP(10))
	g.Save(ctx, stateWithXP(20))
	g.Flush(ctx)

	assert.Equal(t, 1, remote.count())
	stored, err := remote.Get(ctx, g.PlayerID(ctx))
	require.NoError(t, err)
	assert.Equal(t, 20, xpOf(t, stored.Data))
}

func TestWriteState_NeverGoesBackwards(t *testing.T) {
	ctx := context.Background()
	remote := newMemoryStore()
	g := persistence.New(remote, newKV(t), newPool(t), time.Hour)

	newer, _ := json.Marshal(stateWithXP(90))
	older, _ := json.Marshal(stateWithXP(10))
	require.NoError(t, g.WriteState(ctx, 2, newer))
	require.NoError(t, g.WriteState(ctx, 1, older))

	assert.Equal(t, 1, remote.count())
	stored, err := remote.Get(ctx, g.PlayerID(ctx))
	require.NoError(t, err)
	assert.Equal(t, 90, xpOf(t, stored.Data))
}
