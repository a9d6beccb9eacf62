// Package store holds the in-memory corpus a query accumulates as it
// hydrates shards: documents, per-document term frequencies, and per-token
// posting lists.
package store

import (
	"sync"

	"github.com/veeableful/folder/pkg/decode"
)

// Store is the in-memory union of every shard ingested so far. Entries are
// never removed once present: documents are kept as first ingested, posting
// lists are only appended to, and document-stat counts are only added or
// overwritten per (doc, token) by a later merge (see MergeDocumentStats).
// It is safe for concurrent use so that speculative
// shard hydration can run more than one merge at a time.
type Store struct {
	// ShardCount is the total number of shards in the index. It is set
	// once, eagerly, when the handle is opened, and never changes.
	ShardCount uint32

	mu            sync.RWMutex
	documents     map[string]decode.Document
	documentStats map[string]map[string]int
	termStats     map[string][]string
}

// New returns an empty Store for an index with the given shard count.
func New(shardCount uint32) *Store {
	return &Store{
		ShardCount:    shardCount,
		documents:     make(map[string]decode.Document),
		documentStats: make(map[string]map[string]int),
		termStats:     make(map[string][]string),
	}
}

// MergeDocuments inserts every document wholesale. An id already present is
// left untouched: documents are immutable once ingested.
func (s *Store) MergeDocuments(docs map[string]decode.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, doc := range docs {
		if _, exists := s.documents[id]; exists {
			continue
		}

		s.documents[id] = doc
	}
}

// MergeDocumentStats merges per-document term frequencies. Within the
// merge, later entries win per (doc, token): this matches the decoder's
// own last-write-wins behavior for repeated rows inside one shard, applied
// again across shards.
func (s *Store) MergeDocumentStats(stats map[string]map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, freqs := range stats {
		existing, ok := s.documentStats[id]
		if !ok {
			existing = make(map[string]int, len(freqs))
			s.documentStats[id] = existing
		}

		for term, count := range freqs {
			existing[term] = count
		}
	}
}

// MergeTermStats appends posting lists. Per the wire format, duplicates
// are not deduped here: the union across shards is the raw concatenation.
func (s *Store) MergeTermStats(stats map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for term, ids := range stats {
		s.termStats[term] = append(s.termStats[term], ids...)
	}
}

// Document returns the document with the given id, if loaded.
func (s *Store) Document(id string) (decode.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]

	return doc, ok
}

// DocumentStat returns the term-frequency map for a document, if loaded.
func (s *Store) DocumentStat(id string) (map[string]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stat, ok := s.documentStats[id]

	return stat, ok
}

// TermStatPostings returns the raw (possibly duplicate-containing) posting
// list for a token, if any term-stat shard providing it has been loaded.
func (s *Store) TermStatPostings(token string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	postings, ok := s.termStats[token]

	return postings, ok
}

// DocumentFrequency returns df(t): the number of distinct documents in
// which t occurs, per the currently-loaded term-stat shards. Duplicate
// ids within a posting list (permitted by the wire format) are deduped
// here so idf stays meaningful, even though the stored posting list
// itself is kept raw.
func (s *Store) DocumentFrequency(token string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	postings, ok := s.termStats[token]
	if !ok {
		return 0
	}

	seen := make(map[string]struct{}, len(postings))
	for _, id := range postings {
		seen[id] = struct{}{}
	}

	return len(seen)
}

// DocumentStatCount returns |document_stats|: the number of document-stat
// entries currently loaded. idf uses this as its corpus-size term, so it
// grows (and idf shifts) as more shards are hydrated across queries.
func (s *Store) DocumentStatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.documentStats)
}
