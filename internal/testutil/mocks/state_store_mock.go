package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/logicbuild/internal/models"
)

// MockStateStore is a mock implementation of repository.StateStore
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Get(ctx context.Context, playerID string) (*models.StoredState, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoredState), args.Error(1)
}

func (m *MockStateStore) Upsert(ctx context.Context, state models.StoredState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockStateStore) Delete(ctx context.Context, playerID string) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

// MockKeyValueStore is a mock implementation of repository.KeyValueStore
type MockKeyValueStore struct {
	mock.Mock
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
