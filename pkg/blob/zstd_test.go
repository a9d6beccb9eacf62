package blob_test

import (
	"bytes"
	"context"
	"testing"

	zstdlib "github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeableful/folder/pkg/blob"
)

// memSource is a minimal in-memory blob.Source for exercising decorators.
type memSource struct {
	artifacts map[string][]byte
}

func (m *memSource) Fetch(_ context.Context, artifactPath string) ([]byte, error) {
	b, ok := m.artifacts[artifactPath]
	if !ok {
		return nil, blob.ErrNotFound
	}

	return b, nil
}

func TestZstdSource_PrefersCompressedArtifact(t *testing.T) {
	t.Parallel()

	enc, err := zstdlib.NewWriter(nil)
	require.NoError(t, err)

	compressed := enc.EncodeAll([]byte("token,\"d1 d2\"\n"), nil)

	mem := &memSource{artifacts: map[string][]byte{
		"0/tst.zst": compressed,
	}}

	src := blob.NewZstd(mem)

	b, err := src.Fetch(context.Background(), "0/tst")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b, []byte("token,\"d1 d2\"\n")))
}

func TestZstdSource_FallsBackToUncompressed(t *testing.T) {
	t.Parallel()

	mem := &memSource{artifacts: map[string][]byte{
		"0/tst": []byte("token,\"d1 d2\"\n"),
	}}

	src := blob.NewZstd(mem)

	b, err := src.Fetch(context.Background(), "0/tst")
	require.NoError(t, err)
	assert.Equal(t, "token,\"d1 d2\"\n", string(b))
}

func TestZstdSource_PropagatesNotFound(t *testing.T) {
	t.Parallel()

	mem := &memSource{artifacts: map[string][]byte{}}
	src := blob.NewZstd(mem)

	_, err := src.Fetch(context.Background(), "0/tst")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
