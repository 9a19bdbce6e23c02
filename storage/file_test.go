package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ronny/linkdb/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDatabase = `{
	"https://www.r-project.org/": {
		"id": "r",
		"description": "A free software environment for statistical computing and graphics.",
		"short_url": "",
		"keywords": ["r", "statistics"]
	},
	"https://nodejs.org/": {
		"id": "nodejs",
		"description": "Node.js.",
		"short_url": "",
		"keywords": null
	}
}
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	return name
}

func TestFileStorageLoad(t *testing.T) {
	s := NewFileStorage()
	name := writeFixture(t, fixtureDatabase)

	db, err := s.Load(context.Background(), name)
	require.NoError(t, err)
	require.Len(t, db, 2)

	assert.Equal(t, &models.Link{
		ID:          "r",
		Description: "A free software environment for statistical computing and graphics.",
		Keywords:    []string{"r", "statistics"},
	}, db["https://www.r-project.org/"])
	assert.Equal(t, []string{}, db["https://nodejs.org/"].Keywords)
}

func TestFileStorageLoadErrors(t *testing.T) {
	s := NewFileStorage()

	_, err := s.Load(context.Background(), filepath.Join(t.TempDir(), "nonexisting.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.NotEmpty(t, err.Error())

	for name, content := range map[string]string{
		"malformed": `{"https://a/": `,
		"array":     `[]`,
		"null":      `null`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), writeFixture(t, content))
			assert.Error(t, err)
		})
	}
}

func TestFileStorageSaveRoundTrip(t *testing.T) {
	s := NewFileStorage(WithIndent("  "))
	name := writeFixture(t, "{}")

	db := models.Database{
		"http://stdlib.io/?a=1&b=2": {
			ID:          "stdlib",
			Description: "A standard library for JavaScript and Node.js.",
			Keywords:    []string{"standard"},
		},
	}
	require.NoError(t, s.Save(context.Background(), name, db))

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"http://stdlib.io/?a=1&b=2"`)
	assert.Contains(t, string(b), "\n  \"http://stdlib.io/")
	assert.Equal(t, byte('\n'), b[len(b)-1])

	loaded, err := s.Load(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, db, loaded)

	entries, err := os.ReadDir(filepath.Dir(name))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStorageSaveKeepsFileMode(t *testing.T) {
	s := NewFileStorage()
	name := writeFixture(t, "{}")
	require.NoError(t, os.Chmod(name, 0o600))

	require.NoError(t, s.Save(context.Background(), name, models.Database{}))

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStorageSaveNewFileMode(t *testing.T) {
	s := NewFileStorage(WithFileMode(0o640))
	name := filepath.Join(t.TempDir(), "database.json")

	require.NoError(t, s.Save(context.Background(), name, models.Database{}))

	info, err := os.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestFileStorageSaveThroughSymlink(t *testing.T) {
	s := NewFileStorage()
	target := writeFixture(t, "{}")
	link := filepath.Join(t.TempDir(), "link.json")
	require.NoError(t, os.Symlink(target, link))

	db := models.Database{
		"http://stdlib.io/": {ID: "stdlib", Description: "stdlib.", Keywords: []string{}},
	}
	require.NoError(t, s.Save(context.Background(), link, db))

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0, "database symlink must be kept")

	loaded, err := s.Load(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, db, loaded)

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStorageSaveMissingDirectory(t *testing.T) {
	s := NewFileStorage()
	name := filepath.Join(t.TempDir(), "missing", "database.json")

	err := s.Save(context.Background(), name, models.Database{})
	assert.Error(t, err)
}

func TestFileStorageCanceledContext(t *testing.T) {
	s := NewFileStorage()
	name := writeFixture(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx, name)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, name, models.Database{}), context.Canceled)
}
