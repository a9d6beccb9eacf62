// Package cache implements the shard cache (spec §4.4): for each payload
// category it tracks which shard ids have been fully ingested, and
// guarantees that concurrent callers asking for the same (category, shard)
// pair only run the loader once, joining its outcome.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/veeableful/folder/pkg/blob"
)

// Loader ingests one shard's payload into the IndexStore. It is invoked at
// most once per (category, shard id) pair for the lifetime of a Cache,
// except after a failed attempt, which callers MAY retry.
type Loader func(ctx context.Context) error

// Cache tracks, per category, which shard ids have been fully ingested.
// It is safe for concurrent use: Ensure serializes loaders per
// (category, shard) key while letting unrelated keys load in parallel,
// mirroring the keyed-mutex shape of a local lock.Locker.
type Cache struct {
	mu       sync.Mutex
	loaded   map[key]struct{}
	inFlight map[key]*call
}

type key struct {
	category blob.Category
	shardID  uint32
}

// call represents a loader in progress for one key; waiters join it instead
// of invoking the loader again.
type call struct {
	wg  sync.WaitGroup
	err error
}

// New returns an empty Cache with nothing marked loaded.
func New() *Cache {
	return &Cache{
		loaded:   make(map[key]struct{}),
		inFlight: make(map[key]*call),
	}
}

// Ensure guarantees shard id's payload in category has been ingested
// before it returns successfully.
//
//  1. If the shard is already loaded, it returns immediately.
//  2. Otherwise, it runs load — or, if another goroutine is already
//     running load for the same key, waits for that call's outcome instead
//     of starting a second one.
//  3. On success the shard is marked loaded.
//  4. On failure the shard is left unmarked so a later call retries.
func (c *Cache) Ensure(ctx context.Context, category blob.Category, shardID uint32, load Loader) error {
	k := key{category: category, shardID: shardID}

	c.mu.Lock()

	if _, ok := c.loaded[k]; ok {
		c.mu.Unlock()

		return nil
	}

	if cl, ok := c.inFlight[k]; ok {
		c.mu.Unlock()

		cl.wg.Wait()

		return cl.err
	}

	cl := &call{}
	cl.wg.Add(1)
	c.inFlight[k] = cl
	c.mu.Unlock()

	cl.err = load(ctx)

	c.mu.Lock()
	delete(c.inFlight, k)

	if cl.err == nil {
		c.loaded[k] = struct{}{}
	}

	c.mu.Unlock()

	cl.wg.Done()

	if cl.err != nil {
		return fmt.Errorf("cache: loading shard %d category %s: %w", shardID, category, cl.err)
	}

	return nil
}

// Loaded reports whether shard id in category has already been fully
// ingested.
func (c *Cache) Loaded(category blob.Category, shardID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.loaded[key{category: category, shardID: shardID}]

	return ok
}
