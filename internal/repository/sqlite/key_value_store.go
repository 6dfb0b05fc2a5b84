package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/repository"
)

type keyValueStore struct {
	db *sql.DB
}

// NewKeyValueStore creates a KeyValueStore backed by the local_cache table.
func NewKeyValueStore(db *sql.DB) repository.KeyValueStore {
	return &keyValueStore{db: db}
}

func (r *keyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	log := logger.FromContext(ctx).WithPrefix("cache_repo")

	query, args, err := sqlBuilder.
		Select("value").
		From("local_cache").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var value string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("cache miss: key=%s", key)
		return "", false, nil
	}
	if err != nil {
		log.Error("failed to read cache: %v", err)
		return "", false, err
	}
	return value, true, nil
}

func (r *keyValueStore) Set(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx).WithPrefix("cache_repo")

	query, args, err := sqlBuilder.
		Insert("local_cache").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to write cache: %v", err)
		return err
	}
	return nil
}

func (r *keyValueStore) Delete(ctx context.Context, key string) error {
	log := logger.FromContext(ctx).WithPrefix("cache_repo")

	query, args, err := sqlBuilder.Delete("local_cache").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to delete cache key: %v", err)
		return err
	}
	return nil
}
