package storage

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/ronny/linkdb/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	_, err := s.Load(ctx, "links")
	var nf *ErrDatabaseNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "links", nf.Name)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	db := models.Database{"https://golang.org/": {ID: "go", Description: "Go."}}
	require.NoError(t, s.Save(ctx, "links", db))

	// mutations after Save must not leak into the stored copy
	db["https://golang.org/"].ID = "changed"

	loaded, err := s.Load(ctx, "links")
	require.NoError(t, err)
	assert.Equal(t, "go", loaded["https://golang.org/"].ID)
	assert.Equal(t, []string{}, loaded["https://golang.org/"].Keywords)

	loaded["https://example.com/"] = &models.Link{ID: "example"}
	again, err := s.Load(ctx, "links")
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
