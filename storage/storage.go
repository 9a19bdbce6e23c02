package storage

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/ronny/linkdb/models"
)

// Storage loads and saves whole link databases. name identifies the database
// within the backend, e.g. a file path for FileStorage.
type Storage interface {
	Load(ctx context.Context, name string) (models.Database, error)
	Save(ctx context.Context, name string, db models.Database) error
}

type ErrDatabaseNotFound struct {
	Name string
}

func (e *ErrDatabaseNotFound) Error() string {
	return fmt.Sprintf("database not found: %s", e.Name)
}

// Is makes ErrDatabaseNotFound match fs.ErrNotExist, the same way a missing
// database file does.
func (e *ErrDatabaseNotFound) Is(target error) bool {
	return target == fs.ErrNotExist
}
