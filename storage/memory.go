package storage

import (
	"context"
	"sync"

	"github.com/ronny/linkdb/models"
)

// MemoryStorage implements the Storage interface using an in-memory map of
// databases as the storage backend.
//
// MemoryStorage is intended to be used only in development or testing, NOT in
// production.
type MemoryStorage struct {
	mu        sync.RWMutex
	databases map[string]models.Database
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		databases: make(map[string]models.Database),
	}
}

func (s *MemoryStorage) Load(ctx context.Context, name string) (models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, found := s.databases[name]
	if !found {
		return nil, &ErrDatabaseNotFound{Name: name}
	}

	clone := db.Clone()
	clone.Normalize()
	return clone, nil
}

func (s *MemoryStorage) Save(ctx context.Context, name string, db models.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := db.Clone()
	if clone == nil {
		clone = models.Database{}
	}
	s.databases[name] = clone
	return nil
}
