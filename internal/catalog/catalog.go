// Package catalog stores entity attributes and vectors keyed by id.
package catalog

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

type shard struct {
	mu       sync.RWMutex
	entities map[string]entity.Entity
}

// Catalog is a sharded map of immutable entities. Readers always observe a
// whole entity, never a vector from one version and attributes from another.
type Catalog struct {
	shards []*shard
}

// New creates an empty catalog with the given shard count.
func New(shards int) *Catalog {
	if shards <= 0 {
		shards = 16
	}
	c := &Catalog{shards: make([]*shard, shards)}
	for i := range c.shards {
		c.shards[i] = &shard{entities: make(map[string]entity.Entity)}
	}
	return c
}

func (c *Catalog) shardFor(id string) *shard {
	return c.shards[xxhash.Sum64String(id)%uint64(len(c.shards))]
}

// Put stores e, replacing any previous entity with the same id.
// Returns the previous entity, if any.
func (c *Catalog) Put(e entity.Entity) (entity.Entity, bool) {
	sh := c.shardFor(e.ID())
	sh.mu.Lock()
	prev, ok := sh.entities[e.ID()]
	sh.entities[e.ID()] = e
	sh.mu.Unlock()
	return prev, ok
}

// Get returns the entity or domain.ErrNotFound.
func (c *Catalog) Get(id string) (entity.Entity, error) {
	sh := c.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.entities[id]
	sh.mu.RUnlock()
	if !ok {
		return entity.Entity{}, fmt.Errorf("entity %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

// Delete removes id and returns the removed entity. Absent ids are a no-op.
func (c *Catalog) Delete(id string) (entity.Entity, bool) {
	sh := c.shardFor(id)
	sh.mu.Lock()
	prev, ok := sh.entities[id]
	delete(sh.entities, id)
	sh.mu.Unlock()
	return prev, ok
}

// Len returns the number of stored entities.
func (c *Catalog) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		n += len(sh.entities)
		sh.mu.RUnlock()
	}
	return n
}

// ListByKind yields ids of the given kind. The sequence is lazy (one shard is
// copied at a time), finite, and restartable: each range re-reads the catalog.
// Ids are sorted within a shard; no global order is promised.
func (c *Catalog) ListByKind(kind entity.Kind) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, sh := range c.shards {
			sh.mu.RLock()
			ids := make([]string, 0, len(sh.entities))
			for id, e := range sh.entities {
				if e.Kind() == kind {
					ids = append(ids, id)
				}
			}
			sh.mu.RUnlock()
			slices.Sort(ids)
			for _, id := range ids {
				if !yield(id) {
					return
				}
			}
		}
	}
}

// Snapshot returns every entity. Each shard is copied under its read lock.
func (c *Catalog) Snapshot() []entity.Entity {
	out := make([]entity.Entity, 0, c.Len())
	for _, sh := range c.shards {
		sh.mu.RLock()
		out = slices.AppendSeq(out, maps.Values(sh.entities))
		sh.mu.RUnlock()
	}
	return out
}
