package memory

import (
	"context"
	"sync"
)

// CollectionStore is an in-memory implementation of app.CollectionRepository.
type CollectionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		data: make(map[string][]byte),
	}
}

func (s *CollectionStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (s *CollectionStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *CollectionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
