package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/repository"
)

// stateKeyPrefix is the prefix for all game state keys
const stateKeyPrefix = "logicbuild:game_state:"

const (
	fieldData      = "data"
	fieldUpdatedAt = "updated_at"
)

// StateStore implements repository.StateStore with one Redis hash per player.
type StateStore struct {
	client redis.UniversalClient
}

func NewStateStore(client redis.UniversalClient) *StateStore {
	return &StateStore{client: client}
}

func stateKey(playerID string) string {
	return stateKeyPrefix + playerID
}

func (s *StateStore) Get(ctx context.Context, playerID string) (*models.StoredState, error) {
	log := logger.FromContext(ctx).WithPrefix("redis_state")

	fields, err := s.client.HGetAll(ctx, stateKey(playerID)).Result()
	if err != nil {
		log.Error("failed to get state for player %s: %v", playerID, err)
		return nil, fmt.Errorf("get state: %w", err)
	}
	data, ok := fields[fieldData]
	if !ok {
		log.Debug("no state stored for player %s", playerID)
		return nil, nil
	}

	st := &models.StoredState{PlayerID: playerID, Data: []byte(data)}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		if st.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			log.Warn("bad updated_at for player %s: %v", playerID, err)
		}
	}
	return st, nil
}

func (s *StateStore) Upsert(ctx context.Context, state models.StoredState) error {
	log := logger.FromContext(ctx).WithPrefix("redis_state")

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	err := s.client.HSet(ctx, stateKey(state.PlayerID),
		fieldData, state.Data,
		fieldUpdatedAt, updatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		log.Error("failed to set state for player %s: %v", state.PlayerID, err)
		return fmt.Errorf("set state: %w", err)
	}
	log.Debug("updated state for player %s", state.PlayerID)
	return nil
}

func (s *StateStore) Delete(ctx context.Context, playerID string) error {
	if err := s.client.Del(ctx, stateKey(playerID)).Err(); err != nil {
		logger.FromContext(ctx).WithPrefix("redis_state").Error("failed to delete state for player %s: %v", playerID, err)
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// Ping checks the connection; the server calls it at startup.
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ repository.StateStore = (*StateStore)(nil)
