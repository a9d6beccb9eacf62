package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureIndex(t *testing.T, dir, name string) {
	t.Helper()

	base := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "shard_count"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "0", "tst"), []byte("hello,\"d1\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "0", "dst"), []byte("d1,\"hello:1\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "0", "dcs"), []byte("id,title\nd1,Hello World\n"), 0o644))
}

func TestOpenFromPath_LocalDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixtureIndex(t, dir, "myindex")

	h, err := openFromPath(context.Background(), filepath.Join(dir, "myindex"))
	require.NoError(t, err)
	assert.Equal(t, "myindex", h.Name())
	assert.Equal(t, uint32(1), h.ShardCount())
}

func TestSearchAction_RunsEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixtureIndex(t, dir, "myindex")

	root := New()

	var out bytes.Buffer
	root.Writer = &out

	err := root.Run(context.Background(), []string{
		"folder", "search", filepath.Join(dir, "myindex"), "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"id": "d1"`)
}

func TestSearchAction_MissingQueryArgument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFixtureIndex(t, dir, "myindex")

	root := New()

	err := root.Run(context.Background(), []string{"folder", "search", filepath.Join(dir, "myindex")})
	assert.ErrorIs(t, err, ErrQueryRequired)
}
