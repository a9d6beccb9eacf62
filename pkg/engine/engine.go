// Package engine implements the query pipeline (spec §4.7, component C7):
// analyze the query, hydrate the shards the tokens and candidates route
// to, intersect posting lists, score by TF-IDF, and paginate.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/veeableful/folder/pkg/analyzer"
	"github.com/veeableful/folder/pkg/blob"
	"github.com/veeableful/folder/pkg/cache"
	"github.com/veeableful/folder/pkg/decode"
	"github.com/veeableful/folder/pkg/errs"
	"github.com/veeableful/folder/pkg/metrics"
	"github.com/veeableful/folder/pkg/shard"
	"github.com/veeableful/folder/pkg/store"
)

const otelPackageName = "github.com/veeableful/folder/pkg/engine"

// DefaultSize is the page size DefaultOptions uses (spec §4.7). A
// SearchOptions value with Size left at zero returns no hits.
const DefaultSize = 10

//nolint:gochecknoglobals
var tracer trace.Tracer

//nolint:gochecknoinits
func init() {
	tracer = otel.Tracer(otelPackageName)
}

// SearchOptions controls a Search call's pagination and caching behavior.
type SearchOptions struct {
	// Size caps the number of hits returned.
	Size uint32
	// From is the number of ranked candidates to skip before collecting
	// hits.
	From uint32
	// UseCache, when false, runs the query against a fresh, throwaway
	// store seeded only with the shard count, so a one-shot query does
	// not grow the handle's persistent memory.
	UseCache bool
}

// DefaultOptions returns the spec's documented defaults: size 10, from 0,
// use_cache true. This is the authoritative default (see DESIGN.md for why
// the original wasm build's inconsistent use_cache:false zero value is not
// carried forward).
func DefaultOptions() SearchOptions {
	return SearchOptions{Size: DefaultSize, From: 0, UseCache: true}
}

// Hit is one ranked result: a document id, its TF-IDF score, and its
// source body.
type Hit struct {
	ID     string          `json:"id"`
	Score  float64         `json:"score"`
	Source decode.Document `json:"source"`
}

// Took reports per-phase timing, recovered from the Rust original's
// SearchTime{match_, sort, total}.
type Took struct {
	Match time.Duration `json:"match"`
	Score time.Duration `json:"score"`
	Total time.Duration `json:"total"`
}

// SearchResult is the outcome of one Search call.
type SearchResult struct {
	Count uint32 `json:"count"`
	Hits  []Hit  `json:"hits"`
	Took  Took   `json:"took"`
}

// Context bundles everything one Search call needs: where shard payloads
// come from, where ingested data accumulates, and where instrumentation
// goes. A Handle builds a fresh, throwaway Context per call when
// opts.UseCache is false and reuses its persistent one otherwise.
type Context struct {
	Source  blob.Source
	Store   *store.Store
	Cache   *cache.Cache
	Metrics *metrics.Metrics
}

// Search runs the full pipeline against qc and returns ranked, paginated
// hits.
func Search(ctx context.Context, qc Context, query string, opts SearchOptions) (SearchResult, error) {
	start := time.Now()

	requestID := uuid.New().String()

	ctx, span := tracer.Start(
		ctx,
		"engine.Search",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("request_id", requestID),
			attribute.String("query", query),
			attribute.Int64("size", int64(opts.Size)),
			attribute.Int64("from", int64(opts.From)),
		),
	)
	defer span.End()

	log := zerolog.Ctx(ctx).With().Str("request_id", requestID).Str("query", query).Logger()
	ctx = log.WithContext(ctx)

	if qc.Store.ShardCount == 0 {
		return SearchResult{}, errs.ErrEmptyIndex
	}

	tokens := analyzer.Analyze(query)

	log.Debug().Strs("tokens", tokens).Msg("analyzed query")

	matchStart := time.Now()

	if err := hydrateTermStats(ctx, qc, tokens); err != nil {
		return SearchResult{}, err
	}

	candidates := match(qc.Store, tokens)
	matchElapsed := time.Since(matchStart)

	if qc.Metrics != nil {
		qc.Metrics.ObserveCandidateSetSize(len(candidates))
	}

	scoreStart := time.Now()

	scored, err := score(ctx, qc, tokens, candidates)
	if err != nil {
		return SearchResult{}, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	scoreElapsed := time.Since(scoreStart)

	hits, count, err := paginate(ctx, qc, scored, opts)
	if err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{
		Count: count,
		Hits:  hits,
		Took: Took{
			Match: matchElapsed,
			Score: scoreElapsed,
			Total: time.Since(start),
		},
	}

	if qc.Metrics != nil {
		qc.Metrics.ObserveQueryDuration(result.Took.Total.Seconds())
	}

	log.Debug().
		Int("candidate_count", len(candidates)).
		Int("hit_count", len(hits)).
		Dur("total", result.Took.Total).
		Msg("search complete")

	return result, nil
}

// hydrateTermStats ensures the term-stats shard for every token is
// loaded. Spec §5 permits parallelizing these fetches speculatively since
// the store is monotonic; they are fanned out with an errgroup.
func hydrateTermStats(ctx context.Context, qc Context, tokens []string) error {
	if qc.Store.ShardCount == 0 {
		return errs.ErrEmptyIndex
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, token := range tokens {
		token := token

		g.Go(func() error {
			return ensureShard(ctx, qc, blob.TermStats, shard.Route(token, qc.Store.ShardCount))
		})
	}

	return g.Wait()
}

// match computes the intersection of posting-list sets for every token
// present in term_stats, per the formal definition in spec §4.7 step 3.
// A token absent from term_stats is skipped, not treated as zero-result.
func match(st *store.Store, tokens []string) []string {
	var candidates []string

	for _, token := range tokens {
		postings, ok := st.TermStatPostings(token)
		if !ok {
			continue
		}

		if candidates == nil {
			candidates = dedupePreserveOrder(postings)

			continue
		}

		if len(candidates) == 1 {
			break
		}

		postingSet := make(map[string]struct{}, len(postings))
		for _, id := range postings {
			postingSet[id] = struct{}{}
		}

		next := candidates[:0:0]

		for _, id := range candidates {
			if _, ok := postingSet[id]; ok {
				next = append(next, id)
			}
		}

		candidates = next
	}

	return candidates
}

func dedupePreserveOrder(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// score computes TF-IDF for each candidate, hydrating the owning
// document-stats shard for any candidate not yet loaded. Loads happen
// sequentially, in candidate order, per spec §5. idf is computed only
// after every candidate's document-stats shard is hydrated, and held
// fixed across all candidates: computing it earlier would read
// |document_stats| before the candidates it is about to score are even
// loaded, collapsing idf (and the score it feeds) to zero.
func score(ctx context.Context, qc Context, tokens, candidates []string) ([]Hit, error) {
	for _, id := range candidates {
		if err := ensureShard(ctx, qc, blob.DocumentStats, shard.Route(id, qc.Store.ShardCount)); err != nil {
			return nil, err
		}
	}

	idf := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		idf[token] = computeIDF(qc.Store, token)
	}

	hits := make([]Hit, 0, len(candidates))

	for _, id := range candidates {
		freqs, _ := qc.Store.DocumentStat(id)

		var total float64

		for _, token := range tokens {
			tf := float64(freqs[token])
			total += tf * idf[token]
		}

		hits = append(hits, Hit{ID: id, Score: total})
	}

	return hits, nil
}

// computeIDF implements idf(t) = log10(|document_stats| / df(t)), using
// the count of currently loaded document-stat entries as the corpus size.
// This grows as shards are hydrated across queries — a known,
// deliberately-replicated approximation (spec §9).
func computeIDF(st *store.Store, token string) float64 {
	df := st.DocumentFrequency(token)
	if df == 0 {
		return 0
	}

	total := st.DocumentStatCount()
	if total == 0 {
		return 0
	}

	return math.Log10(float64(total) / float64(df))
}

// paginate skips opts.From and takes up to opts.Size scored hits,
// hydrating the owning document shard for each retained id to attach its
// source. A retained id whose document is absent from its loaded shard
// (spec §9 open question) is skipped and the reported count decremented,
// rather than aborting the whole search. A failure to fetch or decode the
// document shard itself still aborts the search with that error.
func paginate(ctx context.Context, qc Context, scored []Hit, opts SearchOptions) ([]Hit, uint32, error) {
	count := uint32(len(scored))

	from := int(opts.From)
	if from > len(scored) {
		from = len(scored)
	}

	remaining := scored[from:]

	size := int(opts.Size)
	if size > len(remaining) {
		size = len(remaining)
	}

	page := remaining[:size]

	hits := make([]Hit, 0, len(page))

	for _, hit := range page {
		if err := ensureShard(ctx, qc, blob.Documents, shard.Route(hit.ID, qc.Store.ShardCount)); err != nil {
			return nil, 0, err
		}

		doc, ok := qc.Store.Document(hit.ID)
		if !ok {
			count--

			continue
		}

		hit.Source = doc
		hits = append(hits, hit)
	}

	return hits, count, nil
}

// ensureShard hydrates one shard in one category through qc.Cache,
// recording a metrics outcome and guarding defensively against
// shard_count == 0 even though Search already checked it at entry (spec
// §9 item recovered from fetch_document in the Rust original).
func ensureShard(ctx context.Context, qc Context, category blob.Category, shardID uint32) error {
	if qc.Store.ShardCount == 0 {
		return errs.ErrEmptyIndex
	}

	if qc.Cache.Loaded(category, shardID) {
		if qc.Metrics != nil {
			qc.Metrics.RecordShardLoad(string(category), "hit")
		}

		return nil
	}

	err := qc.Cache.Ensure(ctx, category, shardID, func(ctx context.Context) error {
		return loadShard(ctx, qc, category, shardID)
	})

	if qc.Metrics != nil {
		outcome := "loaded"
		if err != nil {
			outcome = "failed"
		}

		qc.Metrics.RecordShardLoad(string(category), outcome)
	}

	return err
}

// loadShard fetches and decodes one shard's payload and merges it into
// qc.Store. It is the sole fetch+decode+merge path for every category.
func loadShard(ctx context.Context, qc Context, category blob.Category, shardID uint32) error {
	artifactPath := blob.ShardArtifactPath(shardID, category)

	raw, err := qc.Source.Fetch(ctx, artifactPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrShardFetchFailed, artifactPath, err)
	}

	switch category {
	case blob.Documents:
		docs, err := decode.Documents(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrShardDecodeFailed, artifactPath, err)
		}

		qc.Store.MergeDocuments(docs)
	case blob.DocumentStats:
		stats, err := decode.DocumentStats(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrShardDecodeFailed, artifactPath, err)
		}

		qc.Store.MergeDocumentStats(stats)
	case blob.TermStats:
		stats, err := decode.TermStats(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrShardDecodeFailed, artifactPath, err)
		}

		qc.Store.MergeTermStats(stats)
	default:
		return fmt.Errorf("%w: unknown category %q", errs.ErrShardDecodeFailed, category)
	}

	return nil
}
