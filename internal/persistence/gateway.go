package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/progress"
	"github.com/vytor/logicbuild/internal/repository"
	"github.com/vytor/logicbuild/internal/worker"
)

// Local cache keys.
const (
	StateKey    = "logicBuildGameState"
	PlayerIDKey = "logicbuild_player_id"
)

// Submitter queues background jobs. *worker.Pool satisfies it.
type Submitter interface {
	Submit(job worker.Job) error
}

// Gateway saves and loads the game state across the remote store and the local
// fallback cache. None of its methods return storage errors: failures are logged
// and the caller always gets either a valid state or "absent".
type Gateway struct {
	remote   repository.StateStore
	local    repository.StateStore
	kv       repository.KeyValueStore
	jobs     Submitter
	debounce time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	playerID string
	timer    *time.Timer
	seq      uint64
	pending  *worker.SaveStateJob

	// writeMu serializes remote writes; written is the newest seq stored remotely
	// or superseded by a reset.
	writeMu sync.Mutex
	written uint64
}

type Option func(*Gateway)

// WithMetrics records remote writes and load fallbacks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClock replaces time.Now for stored timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New creates a gateway. The local state tier lives in kv under StateKey, next
// to the player token.
func New(remote repository.StateStore, kv repository.KeyValueStore, jobs Submitter, debounce time.Duration, opts ...Option) *Gateway {
	g := &Gateway{
		remote:   remote,
		local:    repository.NewKeyedStateStore(kv, StateKey),
		kv:       kv,
		jobs:     jobs,
		debounce: debounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PlayerID returns the device's opaque player token, creating and caching it
// on first use. A cache failure yields a token that only lives for this process.
func (g *Gateway) PlayerID(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerIDLocked(ctx)
}

func (g *Gateway) playerIDLocked(ctx context.Context) string {
	if g.playerID != "" {
		return g.playerID
	}
	log := logger.FromContext(ctx).WithPrefix("gateway")

	id, ok, err := g.kv.Get(ctx, PlayerIDKey)
	if err != nil {
		log.WithError(err).Warn("failed to read player id")
	}
	if !ok || id == "" {
		id = uuid.NewString()
		if err := g.kv.Set(ctx, PlayerIDKey, id); err != nil {
			log.WithError(err).Warn("failed to cache player id")
		}
		log.Info("created player id %s", id)
	}
	g.playerID = id
	return id
}

// Save writes the local copy immediately and schedules a debounced remote
// write. Every call restarts the debounce window.
func (g *Gateway) Save(ctx context.Context, state *models.GameState) {
	log := logger.FromContext(ctx).WithPrefix("gateway")

	data, err := json.Marshal(state)
	if err != nil {
		log.WithError(err).Error("failed to encode game state")
		return
	}

	g.mu.Lock()
	playerID := g.playerIDLocked(ctx)
	g.seq++
	g.pending = &worker.SaveStateJob{Writer: g, Seq: g.seq, Data: data}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(g.debounce, g.fire)
	g.mu.Unlock()

	if err := g.local.Upsert(ctx, models.StoredState{PlayerID: playerID, Data: data, UpdatedAt: g.now()}); err != nil {
		log.WithError(err).Warn("failed to write local cache")
	}
}

// fire hands the pending snapshot to the writer queue when the debounce window closes.
func (g *Gateway) fire() {
	g.mu.Lock()
	job := g.pending
	g.pending = nil
	g.timer = nil
	g.mu.Unlock()
	if job == nil {
		return
	}

	log := logger.Default().WithPrefix("gateway")
	if err := g.jobs.Submit(job); err != nil {
		log.WithError(err).Warn("writer queue unavailable, writing inline")
		_ = job.Run(logger.NewContext(context.Background(), log))
	}
}

// WriteState upserts one snapshot remotely unless a newer one is already stored.
func (g *Gateway) WriteState(ctx context.Context, seq uint64, data []byte) error {
	log := logger.FromContext(ctx).WithPrefix("gateway")

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if seq <= g.written {
		log.Debug("skipping superseded write seq=%d", seq)
		return nil
	}

	err := g.remote.Upsert(ctx, models.StoredState{PlayerID: g.PlayerID(ctx), Data: data, UpdatedAt: g.now()})
	if err != nil {
		g.metrics.RemoteWrite(metrics.ResultError)
		log.WithError(err).Warn("remote save failed, local cache keeps the state")
		return nil
	}
	g.written = seq
	g.metrics.RemoteWrite(metrics.ResultOK)
	log.Debug("remote save seq=%d bytes=%d", seq, len(data))
	return nil
}

// Flush writes any snapshot still waiting for its debounce window.
func (g *Gateway) Flush(ctx context.Context) {
	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	job := g.pending
	g.pending = nil
	g.mu.Unlock()

	if job != nil {
		_ = job.Run(ctx)
	}
}

// Load returns the stored state and where it came from. Remote is tried first;
// on failure, absence or an invalid blob the local cache is used. A nil state
// means neither tier has one.
func (g *Gateway) Load(ctx context.Context) (*models.GameState, string) {
	log := logger.FromContext(ctx).WithPrefix("gateway")
	playerID := g.PlayerID(ctx)

	stored, err := g.remote.Get(ctx, playerID)
	switch {
	case err != nil:
		log.WithError(err).Warn("remote load failed, trying local cache")
		g.metrics.StateLoadFallback(metrics.ReasonRemoteError)
	case stored == nil:
		log.Debug("no remote state for player %s", playerID)
	default:
		state, derr := decode(stored.Data)
		if derr == nil {
			if err := g.local.Upsert(ctx, models.StoredState{PlayerID: playerID, Data: stored.Data, UpdatedAt: g.now()}); err != nil {
				log.WithError(err).Warn("failed to refresh local cache")
			}
			return state, models.SourceRemote
		}
		log.WithError(derr).Warn("remote state is invalid, trying local cache")
		g.metrics.StateLoadFallback(metrics.ReasonInvalidState)
	}

	cached, err := g.local.Get(ctx, playerID)
	if err != nil {
		log.WithError(err).Warn("local cache unreadable")
		return nil, ""
	}
	if cached == nil {
		return nil, ""
	}
	state, err := decode(cached.Data)
	if err != nil {
		log.WithError(err).Warn("local state is invalid, ignoring it")
		return nil, ""
	}
	return state, models.SourceLocal
}

func decode(data []byte) (*models.GameState, error) {
	var state models.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	if err := progress.Validate(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Reset drops any pending write, deletes the remote state and clears the
// local copy. A failed remote delete is logged; the local copy is cleared regardless.
// The player token survives so the device keeps its identity.
func (g *Gateway) Reset(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("gateway")

	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.pending = nil
	seq := g.seq
	playerID := g.playerIDLocked(ctx)
	g.mu.Unlock()

	g.writeMu.Lock()
	if seq > g.written {
		g.written = seq
	}
	if err := g.remote.Delete(ctx, playerID); err != nil {
		log.WithError(err).Warn("remote reset failed")
	}
	g.writeMu.Unlock()

	if err := g.local.Delete(ctx, playerID); err != nil {
		log.WithError(err).Warn("failed to clear local cache")
	}
}

var _ worker.StateWriter = (*Gateway)(nil)
