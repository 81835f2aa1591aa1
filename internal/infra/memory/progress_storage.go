package memory

import (
	"context"
	"sync"
)

// ProgressStorage is an in-memory implementation of app.ProgressStorage.
type ProgressStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewProgressStorage() *ProgressStorage {
	return &ProgressStorage{values: make(map[string]string)}
}

func (s *ProgressStorage) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *ProgressStorage) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *ProgressStorage) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// ProgressStorageSet hands out one ProgressStorage per user so state survives
// a store being disposed and recreated within the process.
type ProgressStorageSet struct {
	mu       sync.Mutex
	storages map[string]*ProgressStorage
}

func NewProgressStorageSet() *ProgressStorageSet {
	return &ProgressStorageSet{storages: make(map[string]*ProgressStorage)}
}

func (s *ProgressStorageSet) For(userID string) *ProgressStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if storage, ok := s.storages[userID]; ok {
		return storage
	}
	storage := NewProgressStorage()
	s.storages[userID] = storage
	return storage
}
