package ids

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanoIDGenerator(t *testing.T) {
	g, err := NewNanoIDGenerator(
		WithNanoIDCustomASCII("ab"),
		WithNanoIDLength(4),
		WithNanoIDDenylist([]string{}),
	)
	require.NoError(t, err)

	id, err := g.GenerateID()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[ab]{4}$`), id)
}

func TestNanoIDGeneratorDefaults(t *testing.T) {
	g, err := NewNanoIDGenerator()
	require.NoError(t, err)

	id, err := g.GenerateID()
	require.NoError(t, err)
	assert.Len(t, id, NanoIDDefaultLength)
	assert.True(t, IsAllowed(id, defaultDenylist))
}

func TestNanoIDGeneratorExhaustsAttempts(t *testing.T) {
	g, err := NewNanoIDGenerator(
		WithNanoIDCustomASCII("ab"),
		WithNanoIDLength(4),
		WithNanoIDDenylist([]string{"a", "b"}),
		WithNanoIDMaxAttempts(3),
	)
	require.NoError(t, err)

	_, err = g.GenerateID()
	assert.ErrorContains(t, err, "exhausted 3 attempts")
}

func TestNanoIDGeneratorInvalidMaxAttempts(t *testing.T) {
	_, err := NewNanoIDGenerator(WithNanoIDMaxAttempts(0))
	assert.Error(t, err)
}

func TestIsAllowed(t *testing.T) {
	denylist := Denylist{"bad", ""}

	tests := []struct {
		id   string
		want bool
	}{
		{id: "good1234", want: true},
		{id: "xxBADxx", want: false},
		{id: "bad", want: false},
		{id: "", want: true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAllowed(tt.id, denylist), tt.id)
	}
}

func TestLoadDenylist(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "denylist.txt")
	require.NoError(t, os.WriteFile(filename, []byte("# comment\nFoo\n\n  bar  \n"), 0o644))

	denylist, err := LoadDenylist(filename)
	require.NoError(t, err)
	assert.Equal(t, Denylist{"foo", "bar"}, denylist)

	_, err = LoadDenylist(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestParseDenylist(t *testing.T) {
	assert.Equal(t, Denylist{"one", "two"}, ParseDenylist(strings.NewReader("one\n#x\nTWO\n")))
	assert.NotEmpty(t, defaultDenylist)
}
