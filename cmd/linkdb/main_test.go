package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDatabaseFile(t *testing.T) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, os.WriteFile(name, []byte("{}\n"), 0o644))
	return name
}

func TestRunCreateAndGet(t *testing.T) {
	ctx := context.Background()
	name := newDatabaseFile(t)

	var out bytes.Buffer
	err := run(ctx, []string{
		"-database", name, "-log-level", "error",
		"create",
		"-uri", "http://usejsdoc.org/",
		"-id", "jsdoc",
		"-description", "The official website of JSDoc",
		"-keywords", "jsdoc, docs,,",
	}, &out)
	require.NoError(t, err)

	var printed models.Database
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, &models.Link{
		ID:          "jsdoc",
		Description: "The official website of JSDoc.",
		Keywords:    []string{"jsdoc", "docs"},
	}, printed["http://usejsdoc.org/"])

	out.Reset()
	require.NoError(t, run(ctx, []string{"-database", name, "-log-level", "error", "get", "-id", "jsdoc"}, &out))
	printed = nil
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Contains(t, printed, "http://usejsdoc.org/")
}

func TestRunCreateCollision(t *testing.T) {
	ctx := context.Background()
	name := newDatabaseFile(t)
	args := []string{"-database", name, "-log-level", "error", "create", "-uri", "http://stdlib.io/", "-id", "stdlib", "-description", "stdlib."}

	require.NoError(t, run(ctx, args, &bytes.Buffer{}))

	err := run(ctx, args, &bytes.Buffer{})
	var exists *linkdb.ErrLinkExists
	assert.True(t, errors.As(err, &exists))
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	name := newDatabaseFile(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: []string{"-database", name}},
		{name: "missing required options", args: []string{"-database", name, "create", "-uri", "http://stdlib.io/"}},
		{name: "missing database", args: []string{"-database", filepath.Join(t.TempDir(), "nonexisting.json"), "create", "-uri", "u", "-id", "i", "-description", "d"}},
		{name: "get needs a key", args: []string{"-database", name, "get"}},
		{name: "get not found", args: []string{"-database", name, "get", "-uri", "http://missing/"}},
		{name: "unknown storage", args: []string{"-storage", "sql", "get", "-id", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(ctx, append([]string{"-log-level", "error"}, tt.args...), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{}, splitKeywords(""))
	assert.Equal(t, []string{"standard", "library", "lib"}, splitKeywords("standard, library ,lib"))
}
