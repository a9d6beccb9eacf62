// Package blob abstracts over where an index's shard artifacts live —
// local filesystem, HTTP origin, or S3-compatible object storage — behind
// one fetch contract, so the rest of the engine never branches on
// transport.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// Category identifies one of the three payload kinds a shard carries.
type Category string

const (
	// Documents is the "dcs" payload category.
	Documents Category = "dcs"
	// DocumentStats is the "dst" payload category.
	DocumentStats Category = "dst"
	// TermStats is the "tst" payload category.
	TermStats Category = "tst"
)

// ShardCountArtifact is the name of the eagerly-loaded shard-count marker,
// relative to an index's directory.
const ShardCountArtifact = "shard_count"

// ErrNotFound is returned by a Source when the requested artifact does not
// exist. An HTTP Source maps any non-2xx response to this error; a local
// Source maps os.IsNotExist.
var ErrNotFound = errors.New("blob: artifact not found")

// Source returns the bytes of one named artifact. Implementations must
// treat a missing artifact as ErrNotFound and everything else as a
// transport error; callers translate both into errs.ErrShardFetchFailed.
type Source interface {
	// Fetch returns the bytes at artifactPath, relative to the index's
	// base location.
	Fetch(ctx context.Context, artifactPath string) ([]byte, error)
}

// ShardArtifactPath builds the "{shard_id}/{ext}" path for a payload
// artifact, per spec §6.
func ShardArtifactPath(shardID uint32, category Category) string {
	return fmt.Sprintf("%d/%s", shardID, category)
}
