package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/veeableful/folder/pkg/zstd"
)

// zstExtension is appended to a payload artifact's path to request its
// zstd-compressed form.
const zstExtension = ".zst"

// ZstdSource wraps an inner Source so that shard payloads MAY be stored
// zstd-compressed. For every fetch it first tries artifactPath+".zst",
// transparently decompressing a hit; on ErrNotFound it falls back to the
// uncompressed artifactPath unchanged. A backend that never produces
// compressed artifacts behaves identically to the inner Source alone.
type ZstdSource struct {
	inner Source
}

// NewZstd wraps inner with transparent zstd decompression.
func NewZstd(inner Source) *ZstdSource {
	return &ZstdSource{inner: inner}
}

// Fetch tries the compressed artifact first, then the uncompressed one.
func (s *ZstdSource) Fetch(ctx context.Context, artifactPath string) ([]byte, error) {
	compressed, err := s.inner.Fetch(ctx, artifactPath+zstExtension)
	if err == nil {
		return decompress(compressed)
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return s.inner.Fetch(ctx, artifactPath)
}

func decompress(b []byte) ([]byte, error) {
	r, err := zstd.NewPooledReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("blob: opening zstd reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("blob: decompressing artifact: %w", err)
	}

	return out, nil
}
