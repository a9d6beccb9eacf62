// Package errs defines the sentinel errors a Handle can return, so callers
// can branch with errors.Is instead of string matching.
package errs

import "errors"

var (
	// ErrIndexNotFound is returned by Open when the shard-count artifact is
	// absent or unparseable.
	ErrIndexNotFound = errors.New("folder: index not found")

	// ErrShardFetchFailed wraps a transport failure retrieving a payload
	// artifact from a blob.Source.
	ErrShardFetchFailed = errors.New("folder: shard fetch failed")

	// ErrShardDecodeFailed is returned when a payload does not conform to
	// its schema.
	ErrShardDecodeFailed = errors.New("folder: shard decode failed")

	// ErrEmptyIndex is returned by Search, synchronously and before any
	// fetch, when the index's shard count is zero.
	ErrEmptyIndex = errors.New("folder: index has zero shards")

	// ErrBadQueryOptions is reserved for invalid SearchOptions (negative
	// offsets and the like).
	ErrBadQueryOptions = errors.New("folder: bad query options")
)
