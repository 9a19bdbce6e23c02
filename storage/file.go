package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ronny/linkdb/models"
	"github.com/rs/zerolog/log"
)

const DefaultFileMode os.FileMode = 0o644

// FileStorage implements the Storage interface with one JSON file per
// database. The database name is the file path.
//
// Every Save rewrites the whole file. The new content is written to a
// temporary file in the same directory first and then renamed over the
// target, so readers never observe a truncated database. Symlinked databases
// are saved through to the link target and existing files keep their
// permissions. FileStorage does not
// lock the file: two processes saving the same database race and the last
// rename wins.
type FileStorage struct {
	fileMode os.FileMode
	indent   string
}

var _ Storage = (*FileStorage)(nil)

func NewFileStorage(options ...func(*FileStorage)) *FileStorage {
	s := &FileStorage{
		fileMode: DefaultFileMode,
		indent:   "\t",
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *FileStorage) Load(ctx context.Context, name string) (models.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	var db models.Database
	if err := json.Unmarshal(b, &db); err != nil {
		return nil, fmt.Errorf("json.Unmarshal %s: %w", name, err)
	}
	// A file containing `null` is not a database.
	if db == nil {
		return nil, fmt.Errorf("json.Unmarshal %s: not a JSON object", name)
	}
	db.Normalize()

	log.Debug().Str("database", name).Int("links", len(db)).Msg("loaded database file")
	return db, nil
}

func (s *FileStorage) Save(ctx context.Context, name string, db models.Database) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", s.indent)
	if err := encoder.Encode(db); err != nil {
		return fmt.Errorf("json.Encode: %w", err)
	}

	target, mode, err := s.saveTarget(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("os.Chmod: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}

	log.Debug().Str("database", name).Int("links", len(db)).Msg("saved database file")
	return nil
}

// saveTarget resolves the file Save replaces: symlinks are followed so the
// link keeps pointing at the updated file, and an existing file keeps its
// permission bits. New files get s.fileMode.
func (s *FileStorage) saveTarget(name string) (string, os.FileMode, error) {
	target, err := filepath.EvalSymlinks(name)
	if errors.Is(err, fs.ErrNotExist) {
		return name, s.fileMode, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("filepath.EvalSymlinks: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", 0, fmt.Errorf("os.Stat: %w", err)
	}
	return target, info.Mode().Perm(), nil
}

// WithFileMode sets the permissions of database files created by Save.
func WithFileMode(mode os.FileMode) func(*FileStorage) {
	return func(s *FileStorage) {
		s.fileMode = mode
	}
}

// WithIndent sets the indentation used for each JSON nesting level.
func WithIndent(indent string) func(*FileStorage) {
	return func(s *FileStorage) {
		s.indent = indent
	}
}
