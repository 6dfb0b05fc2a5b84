package repository

import (
	"context"

	"github.com/vytor/logicbuild/internal/models"
)

// StateStore persists one serialized GameState per player. Both the remote
// tier and the local fallback tier implement it.
type StateStore interface {
	// Get returns nil, nil when the player has no stored state.
	Get(ctx context.Context, playerID string) (*models.StoredState, error)
	Upsert(ctx context.Context, state models.StoredState) error
	Delete(ctx context.Context, playerID string) error
}

// KeyValueStore is the device-local string store.
type KeyValueStore interface {
	// Get reports ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
