package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type stateStore struct {
	db *sql.DB
}

// NewStateStore creates a StateStore backed by the game_states table.
func NewStateStore(db *sql.DB) repository.StateStore {
	return &stateStore{db: db}
}

func (r *stateStore) Get(ctx context.Context, playerID string) (*models.StoredState, error) {
	log := logger.FromContext(ctx).WithPrefix("state_repo")
	log.Debug("getting state: player_id=%s", playerID)

	query, args, err := sqlBuilder.
		Select("player_id", "data", "updated_at").
		From("game_states").
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	var s models.StoredState
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&s.PlayerID, &s.Data, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no state stored: player_id=%s", playerID)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get state: %v", err)
		return nil, err
	}
	return &s, nil
}

func (r *stateStore) Upsert(ctx context.Context, state models.StoredState) error {
	log := logger.FromContext(ctx).WithPrefix("state_repo")

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query, args, err := sqlBuilder.
		Insert("game_states").
		Columns("player_id", "data", "updated_at").
		Values(state.PlayerID, state.Data, updatedAt).
		Suffix("ON CONFLICT(player_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to upsert state: %v", err)
		return err
	}
	log.Debug("state upserted: player_id=%s, bytes=%d", state.PlayerID, len(state.Data))
	return nil
}

func (r *stateStore) Delete(ctx context.Context, playerID string) error {
	log := logger.FromContext(ctx).WithPrefix("state_repo")

	query, args, err := sqlBuilder.
		Delete("game_states").
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to delete state: %v", err)
		return err
	}
	log.Debug("state deleted: player_id=%s", playerID)
	return nil
}
