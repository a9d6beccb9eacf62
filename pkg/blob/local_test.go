package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeableful/folder/pkg/blob"
)

func TestLocalSource_Fetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "myindex", "0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "myindex", "shard_count"), []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "myindex", "0", "dcs"), []byte("id,title\n"), 0o644))

	src := blob.NewLocal(dir, "myindex")

	t.Run("existing artifact", func(t *testing.T) {
		t.Parallel()

		b, err := src.Fetch(context.Background(), blob.ShardCountArtifact)
		require.NoError(t, err)
		assert.Equal(t, "2", string(b))
	})

	t.Run("shard artifact", func(t *testing.T) {
		t.Parallel()

		b, err := src.Fetch(context.Background(), blob.ShardArtifactPath(0, blob.Documents))
		require.NoError(t, err)
		assert.Equal(t, "id,title\n", string(b))
	})

	t.Run("missing artifact returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := src.Fetch(context.Background(), blob.ShardArtifactPath(5, blob.TermStats))
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})
}
