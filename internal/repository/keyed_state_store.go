package repository

import (
	"context"

	"github.com/vytor/logicbuild/internal/models"
)

// KeyedStateStore keeps a single state under a fixed key of a KeyValueStore.
// The local cache belongs to one device, so the player id is not part of the key.
type KeyedStateStore struct {
	kv  KeyValueStore
	key string
}

func NewKeyedStateStore(kv KeyValueStore, key string) *KeyedStateStore {
	return &KeyedStateStore{kv: kv, key: key}
}

func (s *KeyedStateStore) Get(ctx context.Context, playerID string) (*models.StoredState, error) {
	value, ok, err := s.kv.Get(ctx, s.key)
	if err != nil || !ok {
		return nil, err
	}
	return &models.StoredState{PlayerID: playerID, Data: []byte(value)}, nil
}

func (s *KeyedStateStore) Upsert(ctx context.Context, state models.StoredState) error {
	return s.kv.Set(ctx, s.key, string(state.Data))
}

func (s *KeyedStateStore) Delete(ctx context.Context, _ string) error {
	return s.kv.Delete(ctx, s.key)
}

var _ StateStore = (*KeyedStateStore)(nil)
