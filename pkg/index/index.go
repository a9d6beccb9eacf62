// Package index implements the public façade (spec §4.8, component C8):
// open an index by name against a blob.Source, then issue searches
// against it. A Handle owns its IndexStore and shard cache for its whole
// lifetime; nothing it loads is ever removed.
package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veeableful/folder/pkg/blob"
	"github.com/veeableful/folder/pkg/cache"
	"github.com/veeableful/folder/pkg/engine"
	"github.com/veeableful/folder/pkg/errs"
	"github.com/veeableful/folder/pkg/metrics"
	folders3 "github.com/veeableful/folder/pkg/s3"
	"github.com/veeableful/folder/pkg/store"
)

const otelPackageName = "github.com/veeableful/folder/pkg/index"

//nolint:gochecknoglobals
var tracer trace.Tracer

//nolint:gochecknoinits
func init() {
	tracer = otel.Tracer(otelPackageName)
}

// Handle is an opened index: a name, the blob.Source its shards come
// from, and the accumulated store/cache a search call hydrates.
type Handle struct {
	name    string
	source  blob.Source
	store   *store.Store
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// Open constructs a Handle for name against source, eagerly loading the
// shard-count artifact. It fails with ErrIndexNotFound if that artifact is
// absent or unparseable.
func Open(ctx context.Context, source blob.Source, name string) (*Handle, error) {
	ctx, span := tracer.Start(
		ctx,
		"index.Open",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("index_name", name)),
	)
	defer span.End()

	raw, err := source.Fetch(ctx, blob.ShardCountArtifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrIndexNotFound, name, err)
	}

	count, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: malformed shard_count %q: %w", errs.ErrIndexNotFound, name, raw, err)
	}

	return &Handle{
		name:   name,
		source: source,
		store:  store.New(uint32(count)),
		cache:  cache.New(),
	}, nil
}

// OpenLocal opens index name from the local filesystem directory dir.
func OpenLocal(ctx context.Context, dir, name string) (*Handle, error) {
	return Open(ctx, blob.NewLocal(dir, name), name)
}

// OpenHTTP opens index name served over HTTP at baseURL.
func OpenHTTP(ctx context.Context, baseURL, name string) (*Handle, error) {
	return Open(ctx, blob.NewHTTP(baseURL, name), name)
}

// OpenS3 opens index name published to an S3-compatible bucket.
func OpenS3(ctx context.Context, cfg folders3.Config, name string) (*Handle, error) {
	source, err := blob.NewS3(cfg, name)
	if err != nil {
		return nil, err
	}

	return Open(ctx, source, name)
}

// WithZstd wraps h's blob.Source with transparent zstd decompression, so
// shards published as "<shard>/dcs.zst" (etc.) are read the same as
// uncompressed ones. Call it right after Open, before the first Search.
func (h *Handle) WithZstd() *Handle {
	h.source = blob.NewZstd(h.source)

	return h
}

// WithMetrics attaches m so every Search call records shard-load and
// latency metrics to it.
func (h *Handle) WithMetrics(m *metrics.Metrics) *Handle {
	h.metrics = m

	return h
}

// Name returns the index's name as given to Open.
func (h *Handle) Name() string { return h.name }

// ShardCount returns the index's immutable shard count.
func (h *Handle) ShardCount() uint32 { return h.store.ShardCount }

// Search runs query with the default SearchOptions (size 10, from 0,
// use_cache true).
func (h *Handle) Search(ctx context.Context, query string) (engine.SearchResult, error) {
	return h.SearchWithOptions(ctx, query, engine.DefaultOptions())
}

// SearchWithOptions runs query against h, per spec §4.7. When
// opts.UseCache is false, it operates on a fresh, throwaway store seeded
// only with h's shard count, isolating the call's hydration from h's
// persistent store (spec §9).
func (h *Handle) SearchWithOptions(
	ctx context.Context,
	query string,
	opts engine.SearchOptions,
) (engine.SearchResult, error) {
	ctx, span := tracer.Start(
		ctx,
		"index.Search",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("index_name", h.name),
			attribute.String("query", query),
			attribute.Bool("use_cache", opts.UseCache),
		),
	)
	defer span.End()

	qc := engine.Context{
		Source:  h.source,
		Store:   h.store,
		Cache:   h.cache,
		Metrics: h.metrics,
	}

	if !opts.UseCache {
		qc.Store = store.New(h.store.ShardCount)
		qc.Cache = cache.New()
	}

	return engine.Search(ctx, qc, query, opts)
}
